package service

import (
	"errors"
	"strings"
	"time"

	"pharmacy/internal/apperr"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

type Service struct {
	store repository.Store
	now   func() time.Time
	newID func() uuid.UUID
}

func New(store repository.Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.New,
	}
}

// classify turns store failures into typed errors. Errors that already carry a
// kind pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Constraint {
		case repository.ConstraintInvoiceNo:
			return apperr.Validation("Invoice No already exists")
		case repository.ConstraintBatchNo:
			return apperr.Validation("Batch No already exists")
		case repository.ConstraintSupplierRef:
			// DeleteSupplier maps this constraint itself.
			return apperr.NotFound("Supplier does not exist")
		default:
			return apperr.Validation("Record conflicts with existing data")
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Record does not exist")
	}
	return apperr.Persistence(op, err)
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

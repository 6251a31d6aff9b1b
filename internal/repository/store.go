package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmacy/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Constraint names shared by every Store implementation.
const (
	ConstraintInvoiceNo     = "purchase_lists_invoice_no_key"
	ConstraintBatchNo       = "purchase_items_batch_no_key"
	ConstraintStockMedicine = "stocks_medicine_id_key"
	ConstraintSupplierRef   = "purchase_lists_supplier_id_fkey"
)

// ConflictError reports a unique or foreign key violation. It matches ErrConflict
// with errors.Is.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s", e.Constraint)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Queries is the set of reads and writes the services need. Lock* methods take a
// row lock when called inside RunAtomically.
type Queries interface {
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) error
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error

	ListMedicines(ctx context.Context) ([]domain.Medicine, error)
	GetMedicine(ctx context.Context, id uuid.UUID) (*domain.Medicine, error)
	CreateMedicine(ctx context.Context, medicine domain.Medicine) error

	ListStock(ctx context.Context) ([]domain.StockView, error)
	LockStock(ctx context.Context, medicineID uuid.UUID) (*domain.Stock, error)
	ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockRow, error)
	ListExpiringItems(ctx context.Context, before domain.Date) ([]domain.ExpiringItem, error)
	InsertStock(ctx context.Context, stock domain.Stock) error
	SaveStock(ctx context.Context, stock domain.Stock) error

	ListPurchaseLists(ctx context.Context) ([]domain.PurchaseListSummary, error)
	GetPurchaseDetails(ctx context.Context, id uuid.UUID) (*domain.PurchaseDetails, error)
	LockPurchaseList(ctx context.Context, id uuid.UUID) (*domain.PurchaseList, error)
	FindPurchaseListByInvoice(ctx context.Context, invoiceNo string) (*domain.PurchaseList, error)
	FindPurchaseItemByBatch(ctx context.Context, batchNo string) (*domain.PurchaseItem, error)
	ListPurchaseItems(ctx context.Context, purchaseListID uuid.UUID) ([]domain.PurchaseItem, error)
	InsertPurchaseList(ctx context.Context, list domain.PurchaseList) error
	UpdatePurchaseList(ctx context.Context, list domain.PurchaseList) error
	ReplacePurchaseItems(ctx context.Context, purchaseListID uuid.UUID, items []domain.PurchaseItem) (int, error)
	DeletePurchaseList(ctx context.Context, id uuid.UUID) (int, error)
}

// Store is a Queries handle that can run a function inside one transaction. When
// fn returns an error nothing it wrote is kept.
type Store interface {
	Queries
	RunAtomically(ctx context.Context, fn func(q Queries) error) error
}

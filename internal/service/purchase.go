package service

import (
	"context"
	"errors"
	"strings"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

const (
	actionCreating = "creating"
	actionUpdating = "updating"
	actionDeleting = "deleting"
)

func (s *Service) ListPurchaseLists(ctx context.Context) ([]domain.PurchaseListSummary, error) {
	lists, err := s.store.ListPurchaseLists(ctx)
	if err != nil {
		return nil, classify("list purchase lists", err)
	}
	return lists, nil
}

func (s *Service) GetPurchaseDetails(ctx context.Context, id uuid.UUID) (*domain.PurchaseDetails, error) {
	details, err := s.store.GetPurchaseDetails(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Purchase Details does not exist")
	}
	if err != nil {
		return nil, classify("get purchase details", err)
	}
	return details, nil
}

// CreatePurchaseList validates the input against the store, then adds every
// item's quantity to its medicine's stock and inserts the record, atomically.
func (s *Service) CreatePurchaseList(ctx context.Context, input domain.PurchaseInput) (*domain.PurchaseList, error) {
	input = normalizePurchaseInput(input)
	if err := validatePurchaseHeader(input); err != nil {
		return nil, err
	}
	if err := validatePurchaseReferences(ctx, s.store, input, uuid.Nil); err != nil {
		return nil, classify("validate purchase list", err)
	}

	now := s.now()
	list := domain.PurchaseList{
		ID:           s.newID(),
		SupplierID:   input.SupplierID,
		PurchaseDate: input.PurchaseDate,
		InvoiceNo:    input.InvoiceNo,
		Details:      input.Details,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	list.Items = s.buildItems(list.ID, input.Items)

	err := s.store.RunAtomically(ctx, func(q repository.Queries) error {
		if err := s.reconcileStock(ctx, q, nil, list.Items, actionCreating); err != nil {
			return err
		}
		return q.InsertPurchaseList(ctx, list)
	})
	if err != nil {
		return nil, classify("create purchase list", err)
	}
	return &list, nil
}

// UpdatePurchaseList replaces the record's header and items. Stock moves by the
// per-medicine difference between the stored items and the new ones.
func (s *Service) UpdatePurchaseList(ctx context.Context, id uuid.UUID, input domain.PurchaseInput) (*domain.PurchaseList, error) {
	input = normalizePurchaseInput(input)
	if err := validatePurchaseHeader(input); err != nil {
		return nil, err
	}

	var updated domain.PurchaseList
	err := s.store.RunAtomically(ctx, func(q repository.Queries) error {
		current, err := q.LockPurchaseList(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Purchase List Record doesn't exist")
		}
		if err != nil {
			return err
		}

		if err := validatePurchaseReferences(ctx, q, input, id); err != nil {
			return err
		}

		oldItems, err := q.ListPurchaseItems(ctx, id)
		if err != nil {
			return err
		}
		newItems := s.buildItems(id, input.Items)

		if err := s.reconcileStock(ctx, q, oldItems, newItems, actionUpdating); err != nil {
			return err
		}
		if _, err := q.ReplacePurchaseItems(ctx, id, newItems); err != nil {
			return err
		}

		updated = *current
		updated.SupplierID = input.SupplierID
		updated.PurchaseDate = input.PurchaseDate
		updated.InvoiceNo = input.InvoiceNo
		updated.Details = input.Details
		updated.UpdatedAt = s.now()
		if err := q.UpdatePurchaseList(ctx, updated); err != nil {
			return err
		}
		updated.Items = newItems
		return nil
	})
	if err != nil {
		return nil, classify("update purchase list", err)
	}
	return &updated, nil
}

// DeletePurchaseList retracts the record's stock and removes it. It returns the
// number of items deleted.
func (s *Service) DeletePurchaseList(ctx context.Context, id uuid.UUID) (int, error) {
	var deleted int
	err := s.store.RunAtomically(ctx, func(q repository.Queries) error {
		if _, err := q.LockPurchaseList(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Purchase List Record doesn't exist")
			}
			return err
		}

		items, err := q.ListPurchaseItems(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reconcileStock(ctx, q, items, nil, actionDeleting); err != nil {
			return err
		}

		deleted, err = q.DeletePurchaseList(ctx, id)
		return err
	})
	if err != nil {
		return 0, classify("delete purchase list", err)
	}
	return deleted, nil
}

func (s *Service) buildItems(purchaseListID uuid.UUID, inputs []domain.PurchaseItemInput) []domain.PurchaseItem {
	items := make([]domain.PurchaseItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.PurchaseItem{
			ID:             s.newID(),
			PurchaseListID: purchaseListID,
			MedicineID:     in.MedicineID,
			Quantity:       in.Quantity,
			BatchNo:        in.BatchNo,
			MfgDate:        in.MfgDate,
			ExpiryDate:     in.ExpiryDate,
		})
	}
	return items
}

func normalizePurchaseInput(input domain.PurchaseInput) domain.PurchaseInput {
	input.InvoiceNo = strings.TrimSpace(input.InvoiceNo)
	input.Details = strings.TrimSpace(input.Details)
	items := make([]domain.PurchaseItemInput, 0, len(input.Items))
	for _, item := range input.Items {
		item.BatchNo = strings.TrimSpace(item.BatchNo)
		items = append(items, item)
	}
	input.Items = items
	return input
}

func validatePurchaseHeader(input domain.PurchaseInput) error {
	if input.PurchaseDate.IsZero() {
		return apperr.Validation("Purchase Date is required")
	}
	if input.InvoiceNo == "" {
		return apperr.Validation("Invoice No is required")
	}
	if input.SupplierID == uuid.Nil {
		return apperr.Validation("Supplier is required")
	}
	if len(input.Items) == 0 {
		return apperr.Validation("At least one purchase item is required")
	}

	seenBatches := make(map[string]int, len(input.Items))
	for idx, item := range input.Items {
		pos := idx + 1
		if item.MedicineID == uuid.Nil {
			return apperr.Validation("Medicine is required in ITEM %d", pos)
		}
		if item.Quantity <= 0 {
			return apperr.Validation("Quantity must be greater than zero in ITEM %d", pos)
		}
		if item.Quantity > domain.MaxQuantity {
			return apperr.Validation("Quantity cannot exceed %d in ITEM %d", domain.MaxQuantity, pos)
		}
		if item.BatchNo == "" {
			return apperr.Validation("Batch No is required in ITEM %d", pos)
		}
		if first, dup := seenBatches[item.BatchNo]; dup {
			return apperr.Validation("Batch No %s in ITEM %d repeats ITEM %d", item.BatchNo, pos, first)
		}
		seenBatches[item.BatchNo] = pos

		if item.ExpiryDate.IsZero() {
			return apperr.Validation("Expiry Date is required in ITEM %d", pos)
		}
		if !item.MfgDate.IsZero() {
			if !item.ExpiryDate.After(item.MfgDate) {
				return apperr.Validation("Expiry Date cannot be less than Manufacturing Date in ITEM %d", pos)
			}
			if !item.MfgDate.Before(input.PurchaseDate) {
				return apperr.Validation("Mfg. Date cannot be greater than Purchase Date in ITEM %d", pos)
			}
		}
		if item.ExpiryDate.Before(input.PurchaseDate) {
			return apperr.Validation("Expiry Date cannot be less than Purchase Date in ITEM %d", pos)
		}
	}
	return nil
}

// validatePurchaseReferences checks the store side of a purchase: the supplier and
// medicines exist, and the invoice and batch numbers are not held by another
// record. ownID is the record being updated, uuid.Nil on create.
func validatePurchaseReferences(ctx context.Context, q repository.Queries, input domain.PurchaseInput, ownID uuid.UUID) error {
	if _, err := q.GetSupplier(ctx, input.SupplierID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Supplier does not exist")
		}
		return err
	}

	existing, err := q.FindPurchaseListByInvoice(ctx, input.InvoiceNo)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != ownID {
		return apperr.Validation("Invoice No already exists")
	}

	for idx, item := range input.Items {
		pos := idx + 1
		if _, err := q.GetMedicine(ctx, item.MedicineID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Medicine with ID %s does not exist in ITEM %d", item.MedicineID, pos)
			}
			return err
		}

		batch, err := q.FindPurchaseItemByBatch(ctx, item.BatchNo)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if batch != nil && batch.PurchaseListID != ownID {
			return apperr.Validation("Batch No %s already exists in ITEM %d", item.BatchNo, pos)
		}
	}
	return nil
}

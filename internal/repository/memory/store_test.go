package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmacy/internal/domain"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

func seed(t *testing.T) (*Store, domain.Supplier, domain.Medicine) {
	t.Helper()
	ctx := context.Background()
	s := New()
	supplier := domain.Supplier{ID: uuid.New(), Name: "Acme", CreatedAt: time.Now()}
	medicine := domain.Medicine{ID: uuid.New(), BrandName: "Aspirin", CreatedAt: time.Now()}
	if err := s.CreateSupplier(ctx, supplier); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	if err := s.CreateMedicine(ctx, medicine); err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	return s, supplier, medicine
}

func purchase(supplierID, medicineID uuid.UUID, invoice, batch string, qty int) domain.PurchaseList {
	id := uuid.New()
	return domain.PurchaseList{
		ID:           id,
		SupplierID:   supplierID,
		PurchaseDate: domain.MustParseDate("2024-01-10"),
		InvoiceNo:    invoice,
		Items: []domain.PurchaseItem{{
			ID:         uuid.New(),
			MedicineID: medicineID,
			Quantity:   qty,
			BatchNo:    batch,
			ExpiryDate: domain.MustParseDate("2026-01-01"),
		}},
	}
}

func TestRunAtomicallyDiscardsFailedWork(t *testing.T) {
	ctx := context.Background()
	s, supplier, medicine := seed(t)
	boom := errors.New("boom")

	err := s.RunAtomically(ctx, func(q repository.Queries) error {
		if err := q.InsertStock(ctx, domain.Stock{ID: uuid.New(), MedicineID: medicine.ID, Stock: 5, InQuantity: 5}); err != nil {
			return err
		}
		if err := q.InsertPurchaseList(ctx, purchase(supplier.ID, medicine.ID, "INV-1", "B-1", 5)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.LockStock(ctx, medicine.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("stock row survived rollback: %v", err)
	}
	lists, _ := s.ListPurchaseLists(ctx)
	if len(lists) != 0 {
		t.Fatalf("purchase list survived rollback: %+v", lists)
	}
}

func TestRunAtomicallyHonoursCancelledContext(t *testing.T) {
	s, _, _ := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunAtomically(ctx, func(repository.Queries) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancelled context to stop the transaction, err=%v called=%v", err, called)
	}
}

func TestConstraints(t *testing.T) {
	ctx := context.Background()
	s, supplier, medicine := seed(t)

	if err := s.InsertPurchaseList(ctx, purchase(supplier.ID, medicine.ID, "INV-1", "B-1", 5)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var conflict *repository.ConflictError
	err := s.InsertPurchaseList(ctx, purchase(supplier.ID, medicine.ID, "INV-1", "B-2", 5))
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintInvoiceNo {
		t.Fatalf("expected invoice conflict, got %v", err)
	}

	err = s.InsertPurchaseList(ctx, purchase(supplier.ID, medicine.ID, "INV-2", "B-1", 5))
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintBatchNo {
		t.Fatalf("expected batch conflict, got %v", err)
	}

	err = s.InsertPurchaseList(ctx, purchase(uuid.New(), medicine.ID, "INV-3", "B-3", 5))
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintSupplierRef {
		t.Fatalf("expected supplier reference conflict, got %v", err)
	}

	if err := s.DeleteSupplier(ctx, supplier.ID); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected supplier delete to conflict, got %v", err)
	}

	stock := domain.Stock{ID: uuid.New(), MedicineID: medicine.ID, Stock: 5, InQuantity: 5}
	if err := s.InsertStock(ctx, stock); err != nil {
		t.Fatalf("insert stock: %v", err)
	}
	if err := s.InsertStock(ctx, stock); !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintStockMedicine {
		t.Fatalf("expected one stock row per medicine, got %v", err)
	}

	stock.OutQuantity = 6
	stock.Stock = -1
	if err := s.SaveStock(ctx, stock); !errors.Is(err, errNegativeStock) {
		t.Fatalf("expected negative stock to be refused, got %v", err)
	}
}

func TestReplacePurchaseItemsKeepsOwnBatches(t *testing.T) {
	ctx := context.Background()
	s, supplier, medicine := seed(t)

	list := purchase(supplier.ID, medicine.ID, "INV-1", "B-1", 5)
	if err := s.InsertPurchaseList(ctx, list); err != nil {
		t.Fatalf("insert: %v", err)
	}

	replacement := []domain.PurchaseItem{
		{ID: uuid.New(), MedicineID: medicine.ID, Quantity: 3, BatchNo: "B-1", ExpiryDate: domain.MustParseDate("2026-01-01")},
		{ID: uuid.New(), MedicineID: medicine.ID, Quantity: 4, BatchNo: "B-2", ExpiryDate: domain.MustParseDate("2026-01-01")},
	}
	removed, err := s.ReplacePurchaseItems(ctx, list.ID, replacement)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed item, got %d", removed)
	}

	items, _ := s.ListPurchaseItems(ctx, list.ID)
	if len(items) != 2 || items[0].BatchNo != "B-1" || items[1].PurchaseListID != list.ID {
		t.Fatalf("unexpected items: %+v", items)
	}

	deleted, err := s.DeletePurchaseList(ctx, list.ID)
	if err != nil || deleted != 2 {
		t.Fatalf("expected 2 items deleted, got %d (%v)", deleted, err)
	}
}

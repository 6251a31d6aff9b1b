package service

import (
	"context"
	"testing"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository/memory"

	"github.com/google/uuid"
)

type fixture struct {
	svc      *Service
	store    *memory.Store
	supplier domain.Supplier
	aspirin  domain.Medicine
	ibuprof  domain.Medicine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	svc := New(store)

	supplier, err := svc.CreateSupplier(ctx, domain.SupplierInput{Name: "Acme Pharma"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	aspirin, err := svc.CreateMedicine(ctx, domain.MedicineInput{BrandName: "Aspirin"})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	ibuprof, err := svc.CreateMedicine(ctx, domain.MedicineInput{BrandName: "Ibuprofen"})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	return &fixture{svc: svc, store: store, supplier: *supplier, aspirin: *aspirin, ibuprof: *ibuprof}
}

func (f *fixture) item(medicineID uuid.UUID, qty int, batch string) domain.PurchaseItemInput {
	return domain.PurchaseItemInput{
		MedicineID: medicineID,
		Quantity:   qty,
		BatchNo:    batch,
		MfgDate:    domain.MustParseDate("2023-06-01"),
		ExpiryDate: domain.MustParseDate("2026-01-01"),
	}
}

func (f *fixture) input(invoice string, items ...domain.PurchaseItemInput) domain.PurchaseInput {
	return domain.PurchaseInput{
		PurchaseDate: domain.MustParseDate("2024-01-10"),
		InvoiceNo:    invoice,
		SupplierID:   f.supplier.ID,
		Details:      "monthly order",
		Items:        items,
	}
}

func (f *fixture) stockOf(t *testing.T, medicineID uuid.UUID) domain.Stock {
	t.Helper()
	stock, err := f.store.LockStock(context.Background(), medicineID)
	if err != nil {
		t.Fatalf("load stock for %s: %v", medicineID, err)
	}
	return *stock
}

func assertStock(t *testing.T, got domain.Stock, stock, in, out int) {
	t.Helper()
	if got.Stock != stock || got.InQuantity != in || got.OutQuantity != out {
		t.Fatalf("expected stock {%d,%d,%d}, got {%d,%d,%d}",
			stock, in, out, got.Stock, got.InQuantity, got.OutQuantity)
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !apperr.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

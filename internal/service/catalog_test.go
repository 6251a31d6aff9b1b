package service

import (
	"context"
	"testing"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"

	"github.com/google/uuid"
)

func TestCreateSupplierRequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSupplier(context.Background(), domain.SupplierInput{Name: " "})
	assertKind(t, err, apperr.KindValidation)
}

func TestUpdateSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	email := " sales@acme.test "
	blank := ""

	updated, err := f.svc.UpdateSupplier(ctx, f.supplier.ID, domain.SupplierInput{
		Name:  "Acme Wholesale",
		Email: &email,
		Phone: &blank,
	})
	if err != nil {
		t.Fatalf("update supplier: %v", err)
	}
	if updated.Name != "Acme Wholesale" || updated.Email == nil || *updated.Email != "sales@acme.test" {
		t.Fatalf("unexpected supplier: %+v", updated)
	}
	if updated.Phone != nil {
		t.Fatalf("expected blank phone to be cleared, got %q", *updated.Phone)
	}
	if !updated.CreatedAt.Equal(f.supplier.CreatedAt) {
		t.Fatalf("createdAt changed")
	}

	_, err = f.svc.UpdateSupplier(ctx, uuid.New(), domain.SupplierInput{Name: "Ghost"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestDeleteSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1", f.item(f.aspirin.ID, 5, "B-1"))); err != nil {
		t.Fatalf("create purchase list: %v", err)
	}
	err := f.svc.DeleteSupplier(ctx, f.supplier.ID)
	assertKind(t, err, apperr.KindValidation)

	other, err := f.svc.CreateSupplier(ctx, domain.SupplierInput{Name: "Beta Labs"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	if err := f.svc.DeleteSupplier(ctx, other.ID); err != nil {
		t.Fatalf("delete supplier: %v", err)
	}
	assertKind(t, f.svc.DeleteSupplier(ctx, other.ID), apperr.KindNotFound)
}

func TestMedicines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateMedicine(ctx, domain.MedicineInput{BrandName: ""})
	assertKind(t, err, apperr.KindValidation)

	medicines, err := f.svc.ListMedicines(ctx)
	if err != nil {
		t.Fatalf("list medicines: %v", err)
	}
	if len(medicines) != 2 || medicines[0].BrandName != "Aspirin" {
		t.Fatalf("unexpected medicines: %+v", medicines)
	}
}

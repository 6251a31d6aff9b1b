package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"

	"github.com/google/uuid"
)

type pgFixture struct {
	repo     *repository.Repository
	svc      *service.Service
	supplier *domain.Supplier
	aspirin  *domain.Medicine
	ibuprof  *domain.Medicine
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	repo, _ := newPostgresRepository(t)
	svc := service.New(repo)
	ctx := context.Background()

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
	return &pgFixture{repo: repo, svc: svc, supplier: supplier, aspirin: aspirin, ibuprof: ibuprof}
}

func (f *pgFixture) input(invoice string, items ...domain.PurchaseItemInput) domain.PurchaseInput {
	return domain.PurchaseInput{
		PurchaseDate: domain.MustParseDate("2024-01-10"),
		InvoiceNo:    invoice,
		SupplierID:   f.supplier.ID,
		Details:      "monthly order",
		Items:        items,
	}
}

func pgItem(medicineID uuid.UUID, qty int, batch string) domain.PurchaseItemInput {
	return domain.PurchaseItemInput{
		MedicineID: medicineID,
		Quantity:   qty,
		BatchNo:    batch,
		MfgDate:    domain.MustParseDate("2023-06-01"),
		ExpiryDate: domain.MustParseDate("2026-01-01"),
	}
}

func (f *pgFixture) stock(t *testing.T, medicineID uuid.UUID) domain.Stock {
	t.Helper()
	stock, err := f.repo.LockStock(context.Background(), medicineID)
	if err != nil {
		t.Fatalf("load stock for %s: %v", medicineID, err)
	}
	return *stock
}

func expectStock(t *testing.T, got domain.Stock, stock, in, out int) {
	t.Helper()
	if got.Stock != stock || got.InQuantity != in || got.OutQuantity != out {
		t.Fatalf("expected stock {%d,%d,%d}, got {%d,%d,%d}",
			stock, in, out, got.Stock, got.InQuantity, got.OutQuantity)
	}
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func TestPostgresPurchaseReconciliation(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	list, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1", pgItem(f.aspirin.ID, 50, "B-1")))
	if err != nil {
		t.Fatalf("create purchase list: %v", err)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 50, 50, 0)

	if _, err := f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-1", pgItem(f.aspirin.ID, 30, "B-1"))); err != nil {
		t.Fatalf("update to 30: %v", err)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 30, 30, 0)

	if _, err := f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-1", pgItem(f.aspirin.ID, 50, "B-1"))); err != nil {
		t.Fatalf("update back to 50: %v", err)
	}
	if _, err := f.svc.Dispense(ctx, domain.DispenseInput{MedicineID: f.aspirin.ID, Quantity: 45}); err != nil {
		t.Fatalf("dispense 45: %v", err)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 5, 50, 45)

	_, err = f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-1", pgItem(f.aspirin.ID, 10, "B-1")))
	expectKind(t, err, apperr.KindReconciliation)
	expectStock(t, f.stock(t, f.aspirin.ID), 5, 50, 45)

	_, err = f.svc.DeletePurchaseList(ctx, list.ID)
	expectKind(t, err, apperr.KindReconciliation)

	_, err = f.svc.CreatePurchaseList(ctx, f.input("INV-1", pgItem(f.aspirin.ID, 5, "B-2")))
	expectKind(t, err, apperr.KindValidation)
	expectStock(t, f.stock(t, f.aspirin.ID), 5, 50, 45)

	details, err := f.svc.GetPurchaseDetails(ctx, list.ID)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if details.SupplierName != "Acme Pharma" || len(details.Medicines) != 1 ||
		details.Medicines[0].Name != "Aspirin" || details.Medicines[0].TotalQuantity != 50 ||
		details.PurchaseDate.String() != "2024-01-10" || details.Medicines[0].MfgDate.String() != "2023-06-01" {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestPostgresUpdateIsAtomicAcrossMedicines(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	list, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1",
		pgItem(f.aspirin.ID, 20, "B-1"),
		pgItem(f.ibuprof.ID, 20, "B-2"),
	))
	if err != nil {
		t.Fatalf("create purchase list: %v", err)
	}
	if _, err := f.svc.Dispense(ctx, domain.DispenseInput{MedicineID: f.ibuprof.ID, Quantity: 15}); err != nil {
		t.Fatalf("dispense: %v", err)
	}

	// Ibuprofen cannot drop to 10 with 15 dispensed, so the aspirin increase rolls back too.
	_, err = f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-1",
		pgItem(f.aspirin.ID, 40, "B-1"),
		pgItem(f.ibuprof.ID, 10, "B-2"),
	))
	expectKind(t, err, apperr.KindReconciliation)
	expectStock(t, f.stock(t, f.aspirin.ID), 20, 20, 0)
	expectStock(t, f.stock(t, f.ibuprof.ID), 5, 20, 15)

	items, err := f.repo.ListPurchaseItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 || items[0].Quantity != 20 || items[1].Quantity != 20 {
		t.Fatalf("items changed by rolled back update: %+v", items)
	}
}

func TestPostgresUpdateReusesOwnBatches(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	list, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1", pgItem(f.aspirin.ID, 10, "B-1")))
	if err != nil {
		t.Fatalf("create purchase list: %v", err)
	}
	if _, err := f.svc.CreatePurchaseList(ctx, f.input("INV-2", pgItem(f.ibuprof.ID, 10, "B-2"))); err != nil {
		t.Fatalf("create second purchase list: %v", err)
	}

	updated, err := f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-1",
		pgItem(f.aspirin.ID, 4, "B-1"),
		pgItem(f.ibuprof.ID, 6, "B-3"),
	))
	if err != nil {
		t.Fatalf("update with own batch: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", updated.Items)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 4, 4, 0)
	expectStock(t, f.stock(t, f.ibuprof.ID), 16, 16, 0)

	_, err = f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-1", pgItem(f.aspirin.ID, 4, "B-2")))
	expectKind(t, err, apperr.KindValidation)
	_, err = f.svc.UpdatePurchaseList(ctx, list.ID, f.input("INV-2", pgItem(f.aspirin.ID, 4, "B-1")))
	expectKind(t, err, apperr.KindValidation)
}

func TestPostgresDeleteRetractsStock(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	list, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1",
		pgItem(f.aspirin.ID, 7, "B-1"),
		pgItem(f.aspirin.ID, 3, "B-2"),
		pgItem(f.ibuprof.ID, 5, "B-3"),
	))
	if err != nil {
		t.Fatalf("create purchase list: %v", err)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 10, 10, 0)

	deleted, err := f.svc.DeletePurchaseList(ctx, list.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted items, got %d", deleted)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 0, 0, 0)
	expectStock(t, f.stock(t, f.ibuprof.ID), 0, 0, 0)

	_, err = f.svc.GetPurchaseDetails(ctx, list.ID)
	expectKind(t, err, apperr.KindNotFound)
	_, err = f.svc.DeletePurchaseList(ctx, list.ID)
	expectKind(t, err, apperr.KindNotFound)

	if _, err := f.svc.CreatePurchaseList(ctx, f.input("INV-2", pgItem(f.aspirin.ID, 2, "B-1"))); err != nil {
		t.Fatalf("batch number should be free after delete: %v", err)
	}
}

func TestPostgresConstraintErrors(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1", pgItem(f.aspirin.ID, 5, "B-1"))); err != nil {
		t.Fatalf("create purchase list: %v", err)
	}

	now := time.Now().UTC()
	list := domain.PurchaseList{
		ID:           uuid.New(),
		SupplierID:   f.supplier.ID,
		PurchaseDate: domain.MustParseDate("2024-02-01"),
		InvoiceNo:    "INV-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var conflict *repository.ConflictError
	err := f.repo.RunAtomically(ctx, func(q repository.Queries) error {
		return q.InsertPurchaseList(ctx, list)
	})
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintInvoiceNo {
		t.Fatalf("expected invoice conflict, got %v", err)
	}

	list.InvoiceNo = "INV-2"
	list.Items = []domain.PurchaseItem{{
		ID:         uuid.New(),
		MedicineID: f.aspirin.ID,
		Quantity:   1,
		BatchNo:    "B-1",
		ExpiryDate: domain.MustParseDate("2026-01-01"),
	}}
	err = f.repo.RunAtomically(ctx, func(q repository.Queries) error {
		return q.InsertPurchaseList(ctx, list)
	})
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintBatchNo {
		t.Fatalf("expected batch conflict, got %v", err)
	}

	list.Items = nil
	list.SupplierID = uuid.New()
	err = f.repo.InsertPurchaseList(ctx, list)
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintSupplierRef {
		t.Fatalf("expected supplier reference conflict, got %v", err)
	}

	err = f.repo.InsertStock(ctx, domain.Stock{ID: uuid.New(), MedicineID: f.aspirin.ID, UpdatedAt: now})
	if !errors.As(err, &conflict) || conflict.Constraint != repository.ConstraintStockMedicine {
		t.Fatalf("expected one stock row per medicine, got %v", err)
	}

	stock := f.stock(t, f.aspirin.ID)
	stock.Stock = stock.InQuantity + 1
	if err := f.repo.SaveStock(ctx, stock); err == nil || errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected balance check violation, got %v", err)
	}
	stock.Stock, stock.OutQuantity = -1, stock.InQuantity+1
	if err := f.repo.SaveStock(ctx, stock); err == nil {
		t.Fatal("expected non-negative check violation")
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 5, 5, 0)

	err = f.svc.DeleteSupplier(ctx, f.supplier.ID)
	expectKind(t, err, apperr.KindValidation)
	if _, err := f.repo.GetSupplier(ctx, f.supplier.ID); err != nil {
		t.Fatalf("supplier should survive rejected delete: %v", err)
	}
}

func TestPostgresConcurrentDispense(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1", pgItem(f.aspirin.ID, 10, "B-1"))); err != nil {
		t.Fatalf("create purchase list: %v", err)
	}

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Dispense(ctx, domain.DispenseInput{MedicineID: f.aspirin.ID, Quantity: 2})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.IsKind(err, apperr.KindReconciliation):
				rejected++
			default:
				t.Errorf("unexpected dispense error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 5 || rejected != 5 {
		t.Fatalf("expected 5 dispensed and 5 rejected, got %d and %d", ok, rejected)
	}
	expectStock(t, f.stock(t, f.aspirin.ID), 0, 10, 10)
}

func TestPostgresStockReports(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	expiring := pgItem(f.aspirin.ID, 3, "B-1")
	expiring.ExpiryDate = domain.NewDate(time.Now().AddDate(0, 0, 10))
	fresh := pgItem(f.ibuprof.ID, 8, "B-2")
	fresh.ExpiryDate = domain.MustParseDate("2099-01-01")
	if _, err := f.svc.CreatePurchaseList(ctx, f.input("INV-1", expiring, fresh)); err != nil {
		t.Fatalf("create purchase list: %v", err)
	}

	low, err := f.svc.ListLowStock(ctx, 10)
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	if len(low) != 2 || low[0].MedicineID != f.aspirin.ID || low[0].Needed != 7 ||
		low[1].MedicineID != f.ibuprof.ID || low[1].Needed != 2 || low[1].Threshold != 10 {
		t.Fatalf("unexpected low stock rows: %+v", low)
	}

	medicine, err := f.svc.CreateMedicine(ctx, domain.MedicineInput{BrandName: "Cetirizine"})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	low, err = f.svc.ListLowStock(ctx, domain.DefaultLowStockThreshold)
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	if len(low) != 2 || low[0].MedicineID != medicine.ID || low[0].Stock != 0 || low[0].Needed != 5 {
		t.Fatalf("unexpected default threshold rows: %+v", low)
	}

	items, err := f.svc.ListExpiringItems(ctx, 30)
	if err != nil {
		t.Fatalf("list expiring items: %v", err)
	}
	if len(items) != 1 || items[0].BatchNo != "B-1" || items[0].InvoiceNo != "INV-1" || items[0].MedicineName != "Aspirin" {
		t.Fatalf("unexpected expiring items: %+v", items)
	}

	views, err := f.svc.ListStock(ctx)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if len(views) != 2 || views[0].MedicineName != "Aspirin" {
		t.Fatalf("unexpected stock views: %+v", views)
	}
}

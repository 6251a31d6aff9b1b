// Package memory is an in-process repository.Store. Transactions run on a copy
// of the dataset that replaces the live one only when the function succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"pharmacy/internal/domain"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

var errNegativeStock = errors.New("check constraint stocks_non_negative violated")

type dataset struct {
	suppliers map[uuid.UUID]domain.Supplier
	medicines map[uuid.UUID]domain.Medicine
	stocks    map[uuid.UUID]domain.Stock
	lists     map[uuid.UUID]domain.PurchaseList
	items     map[uuid.UUID][]domain.PurchaseItem
}

func newDataset() *dataset {
	return &dataset{
		suppliers: make(map[uuid.UUID]domain.Supplier),
		medicines: make(map[uuid.UUID]domain.Medicine),
		stocks:    make(map[uuid.UUID]domain.Stock),
		lists:     make(map[uuid.UUID]domain.PurchaseList),
		items:     make(map[uuid.UUID][]domain.PurchaseItem),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range d.medicines {
		c.medicines[k] = v
	}
	for k, v := range d.stocks {
		c.stocks[k] = v
	}
	for k, v := range d.lists {
		c.lists[k] = v
	}
	for k, v := range d.items {
		c.items[k] = append([]domain.PurchaseItem(nil), v...)
	}
	return c
}

// Store keeps every table in maps guarded by one mutex. A nil mu marks a
// transaction view whose caller already holds the lock.
type Store struct {
	mu   *sync.Mutex
	data *dataset
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newDataset()}
}

func (s *Store) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) RunAtomically(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.mu == nil {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := &Store{data: s.data.clone()}
	if err := fn(view); err != nil {
		return err
	}
	s.data = view.data
	return nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	defer s.lock()()
	result := make([]domain.Supplier, 0, len(s.data.suppliers))
	for _, supplier := range s.data.suppliers {
		result = append(result, supplier)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetSupplier(_ context.Context, id uuid.UUID) (*domain.Supplier, error) {
	defer s.lock()()
	supplier, ok := s.data.suppliers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &supplier, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) error {
	defer s.lock()()
	if _, exists := s.data.suppliers[supplier.ID]; exists {
		return &repository.ConflictError{Constraint: "suppliers_pkey"}
	}
	s.data.suppliers[supplier.ID] = supplier
	return nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) error {
	defer s.lock()()
	current, ok := s.data.suppliers[supplier.ID]
	if !ok {
		return repository.ErrNotFound
	}
	supplier.CreatedAt = current.CreatedAt
	s.data.suppliers[supplier.ID] = supplier
	return nil
}

func (s *Store) DeleteSupplier(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.data.suppliers[id]; !ok {
		return repository.ErrNotFound
	}
	for _, list := range s.data.lists {
		if list.SupplierID == id {
			return &repository.ConflictError{Constraint: repository.ConstraintSupplierRef}
		}
	}
	delete(s.data.suppliers, id)
	return nil
}

func (s *Store) ListMedicines(_ context.Context) ([]domain.Medicine, error) {
	defer s.lock()()
	result := make([]domain.Medicine, 0, len(s.data.medicines))
	for _, medicine := range s.data.medicines {
		result = append(result, medicine)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BrandName < result[j].BrandName })
	return result, nil
}

func (s *Store) GetMedicine(_ context.Context, id uuid.UUID) (*domain.Medicine, error) {
	defer s.lock()()
	medicine, ok := s.data.medicines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &medicine, nil
}

func (s *Store) CreateMedicine(_ context.Context, medicine domain.Medicine) error {
	defer s.lock()()
	if _, exists := s.data.medicines[medicine.ID]; exists {
		return &repository.ConflictError{Constraint: "medicines_pkey"}
	}
	s.data.medicines[medicine.ID] = medicine
	return nil
}

func (s *Store) ListStock(_ context.Context) ([]domain.StockView, error) {
	defer s.lock()()
	result := make([]domain.StockView, 0, len(s.data.stocks))
	for medicineID, stock := range s.data.stocks {
		result = append(result, domain.StockView{
			Stock:        stock,
			MedicineName: s.data.medicines[medicineID].BrandName,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MedicineName < result[j].MedicineName })
	return result, nil
}

func (s *Store) LockStock(_ context.Context, medicineID uuid.UUID) (*domain.Stock, error) {
	defer s.lock()()
	stock, ok := s.data.stocks[medicineID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &stock, nil
}

func (s *Store) InsertStock(_ context.Context, stock domain.Stock) error {
	defer s.lock()()
	if _, exists := s.data.stocks[stock.MedicineID]; exists {
		return &repository.ConflictError{Constraint: repository.ConstraintStockMedicine}
	}
	if err := checkStock(stock); err != nil {
		return err
	}
	s.data.stocks[stock.MedicineID] = stock
	return nil
}

func (s *Store) SaveStock(_ context.Context, stock domain.Stock) error {
	defer s.lock()()
	current, ok := s.data.stocks[stock.MedicineID]
	if !ok || current.ID != stock.ID {
		return repository.ErrNotFound
	}
	if err := checkStock(stock); err != nil {
		return err
	}
	s.data.stocks[stock.MedicineID] = stock
	return nil
}

func (s *Store) ListLowStock(_ context.Context, threshold int) ([]domain.LowStockRow, error) {
	defer s.lock()()
	result := make([]domain.LowStockRow, 0)
	for id, medicine := range s.data.medicines {
		current := s.data.stocks[id].Stock
		if current >= threshold {
			continue
		}
		result = append(result, domain.LowStockRow{
			MedicineID:   id,
			MedicineName: medicine.BrandName,
			Stock:        current,
			Threshold:    threshold,
			Needed:       threshold - current,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Needed != result[j].Needed {
			return result[i].Needed > result[j].Needed
		}
		return result[i].MedicineName < result[j].MedicineName
	})
	return result, nil
}

func (s *Store) ListExpiringItems(_ context.Context, before domain.Date) ([]domain.ExpiringItem, error) {
	defer s.lock()()
	result := make([]domain.ExpiringItem, 0)
	for listID, items := range s.data.items {
		for _, item := range items {
			if item.ExpiryDate.After(before) {
				continue
			}
			result = append(result, domain.ExpiringItem{
				PurchaseListID: listID,
				InvoiceNo:      s.data.lists[listID].InvoiceNo,
				MedicineID:     item.MedicineID,
				MedicineName:   s.data.medicines[item.MedicineID].BrandName,
				BatchNo:        item.BatchNo,
				Quantity:       item.Quantity,
				ExpiryDate:     item.ExpiryDate,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if a.MedicineName != b.MedicineName {
			return a.MedicineName < b.MedicineName
		}
		return a.BatchNo < b.BatchNo
	})
	return result, nil
}

func checkStock(stock domain.Stock) error {
	if stock.Stock < 0 || stock.OutQuantity < 0 || stock.Stock != stock.InQuantity-stock.OutQuantity {
		return fmt.Errorf("medicine %s: %w", stock.MedicineID, errNegativeStock)
	}
	return nil
}

func (s *Store) ListPurchaseLists(_ context.Context) ([]domain.PurchaseListSummary, error) {
	defer s.lock()()
	lists := make([]domain.PurchaseList, 0, len(s.data.lists))
	for _, list := range s.data.lists {
		lists = append(lists, list)
	}
	sort.Slice(lists, func(i, j int) bool {
		if !lists[i].PurchaseDate.Equal(lists[j].PurchaseDate) {
			return lists[i].PurchaseDate.After(lists[j].PurchaseDate)
		}
		return lists[i].CreatedAt.After(lists[j].CreatedAt)
	})

	result := make([]domain.PurchaseListSummary, 0, len(lists))
	for _, list := range lists {
		result = append(result, domain.PurchaseListSummary{
			ID:           list.ID,
			SupplierName: s.data.suppliers[list.SupplierID].Name,
			PurchaseDate: list.PurchaseDate,
			InvoiceNo:    list.InvoiceNo,
			Details:      list.Details,
		})
	}
	return result, nil
}

func (s *Store) GetPurchaseDetails(_ context.Context, id uuid.UUID) (*domain.PurchaseDetails, error) {
	defer s.lock()()
	list, ok := s.data.lists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	details := &domain.PurchaseDetails{
		ID:           list.ID,
		SupplierID:   list.SupplierID,
		SupplierName: s.data.suppliers[list.SupplierID].Name,
		PurchaseDate: list.PurchaseDate,
		InvoiceNo:    list.InvoiceNo,
		Details:      list.Details,
		Medicines:    make([]domain.PurchaseDetailLine, 0, len(s.data.items[id])),
	}
	for _, item := range s.data.items[id] {
		details.Medicines = append(details.Medicines, domain.PurchaseDetailLine{
			MedicineID:    item.MedicineID,
			Name:          s.data.medicines[item.MedicineID].BrandName,
			BatchNo:       item.BatchNo,
			MfgDate:       item.MfgDate,
			ExpDate:       item.ExpiryDate,
			TotalQuantity: item.Quantity,
		})
	}
	return details, nil
}

func (s *Store) LockPurchaseList(_ context.Context, id uuid.UUID) (*domain.PurchaseList, error) {
	defer s.lock()()
	list, ok := s.data.lists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &list, nil
}

func (s *Store) FindPurchaseListByInvoice(_ context.Context, invoiceNo string) (*domain.PurchaseList, error) {
	defer s.lock()()
	for _, list := range s.data.lists {
		if list.InvoiceNo == invoiceNo {
			found := list
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) FindPurchaseItemByBatch(_ context.Context, batchNo string) (*domain.PurchaseItem, error) {
	defer s.lock()()
	if item, ok := s.data.findBatch(batchNo); ok {
		return &item, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListPurchaseItems(_ context.Context, purchaseListID uuid.UUID) ([]domain.PurchaseItem, error) {
	defer s.lock()()
	return append([]domain.PurchaseItem{}, s.data.items[purchaseListID]...), nil
}

func (s *Store) InsertPurchaseList(_ context.Context, list domain.PurchaseList) error {
	defer s.lock()()
	for _, existing := range s.data.lists {
		if existing.InvoiceNo == list.InvoiceNo {
			return &repository.ConflictError{Constraint: repository.ConstraintInvoiceNo}
		}
	}
	if _, ok := s.data.suppliers[list.SupplierID]; !ok {
		return &repository.ConflictError{Constraint: repository.ConstraintSupplierRef}
	}
	items, err := s.data.prepareItems(list.ID, list.Items)
	if err != nil {
		return err
	}
	list.Items = nil
	s.data.lists[list.ID] = list
	s.data.items[list.ID] = items
	return nil
}

func (s *Store) UpdatePurchaseList(_ context.Context, list domain.PurchaseList) error {
	defer s.lock()()
	current, ok := s.data.lists[list.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range s.data.lists {
		if id != list.ID && existing.InvoiceNo == list.InvoiceNo {
			return &repository.ConflictError{Constraint: repository.ConstraintInvoiceNo}
		}
	}
	if _, ok := s.data.suppliers[list.SupplierID]; !ok {
		return &repository.ConflictError{Constraint: repository.ConstraintSupplierRef}
	}
	list.CreatedAt = current.CreatedAt
	list.Items = nil
	s.data.lists[list.ID] = list
	return nil
}

func (s *Store) ReplacePurchaseItems(_ context.Context, purchaseListID uuid.UUID, items []domain.PurchaseItem) (int, error) {
	defer s.lock()()
	removed := len(s.data.items[purchaseListID])
	previous := s.data.items[purchaseListID]
	delete(s.data.items, purchaseListID)

	prepared, err := s.data.prepareItems(purchaseListID, items)
	if err != nil {
		s.data.items[purchaseListID] = previous
		return 0, err
	}
	s.data.items[purchaseListID] = prepared
	return removed, nil
}

func (s *Store) DeletePurchaseList(_ context.Context, id uuid.UUID) (int, error) {
	defer s.lock()()
	if _, ok := s.data.lists[id]; !ok {
		return 0, repository.ErrNotFound
	}
	removed := len(s.data.items[id])
	delete(s.data.items, id)
	delete(s.data.lists, id)
	return removed, nil
}

func (d *dataset) findBatch(batchNo string) (domain.PurchaseItem, bool) {
	for _, items := range d.items {
		for _, item := range items {
			if item.BatchNo == batchNo {
				return item, true
			}
		}
	}
	return domain.PurchaseItem{}, false
}

func (d *dataset) prepareItems(purchaseListID uuid.UUID, items []domain.PurchaseItem) ([]domain.PurchaseItem, error) {
	seen := make(map[string]struct{}, len(items))
	prepared := make([]domain.PurchaseItem, 0, len(items))
	for _, item := range items {
		key := strings.TrimSpace(item.BatchNo)
		if _, dup := seen[key]; dup {
			return nil, &repository.ConflictError{Constraint: repository.ConstraintBatchNo}
		}
		if _, exists := d.findBatch(key); exists {
			return nil, &repository.ConflictError{Constraint: repository.ConstraintBatchNo}
		}
		if _, ok := d.medicines[item.MedicineID]; !ok {
			return nil, &repository.ConflictError{Constraint: "purchase_items_medicine_id_fkey"}
		}
		seen[key] = struct{}{}
		item.PurchaseListID = purchaseListID
		prepared = append(prepared, item)
	}
	return prepared, nil
}

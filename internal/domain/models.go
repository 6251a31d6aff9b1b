package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Quantity limits. Stock columns are 32-bit integers in Postgres.
const (
	MaxQuantity      = 1_000_000
	MaxStockQuantity = math.MaxInt32
)

const DefaultLowStockThreshold = 5

type Supplier struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Medicine struct {
	ID           uuid.UUID `json:"id"`
	BrandName    string    `json:"brandName"`
	GenericName  *string   `json:"genericName,omitempty"`
	Manufacturer *string   `json:"manufacturer,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Stock is the ledger row of a single medicine. Stock always equals
// InQuantity - OutQuantity and never drops below zero.
type Stock struct {
	ID          uuid.UUID `json:"id"`
	MedicineID  uuid.UUID `json:"medicineId"`
	Stock       int       `json:"stock"`
	InQuantity  int       `json:"inQuantity"`
	OutQuantity int       `json:"outQuantity"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type StockView struct {
	Stock
	MedicineName string `json:"medicineName"`
}

type PurchaseList struct {
	ID           uuid.UUID      `json:"id"`
	SupplierID   uuid.UUID      `json:"supplierId"`
	PurchaseDate Date           `json:"purchaseDate"`
	InvoiceNo    string         `json:"invoiceNo"`
	Details      string         `json:"details"`
	Items        []PurchaseItem `json:"purchaseItems"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type PurchaseItem struct {
	ID             uuid.UUID `json:"id"`
	PurchaseListID uuid.UUID `json:"purchaseListId"`
	MedicineID     uuid.UUID `json:"medicineId"`
	Quantity       int       `json:"quantity"`
	BatchNo        string    `json:"batchNo"`
	MfgDate        Date      `json:"mfgDate"`
	ExpiryDate     Date      `json:"expiryDate"`
}

type PurchaseListSummary struct {
	ID           uuid.UUID `json:"id"`
	SupplierName string    `json:"supplierName"`
	PurchaseDate Date      `json:"purchaseDate"`
	InvoiceNo    string    `json:"invoiceNo"`
	Details      string    `json:"details"`
}

type PurchaseDetails struct {
	ID           uuid.UUID            `json:"id"`
	SupplierID   uuid.UUID            `json:"supplierId"`
	SupplierName string               `json:"supplierName"`
	PurchaseDate Date                 `json:"purchaseDate"`
	InvoiceNo    string               `json:"invoiceNo"`
	Details      string               `json:"details"`
	Medicines    []PurchaseDetailLine `json:"medicines"`
}

type PurchaseDetailLine struct {
	MedicineID    uuid.UUID `json:"medicineId"`
	Name          string    `json:"name"`
	BatchNo       string    `json:"batchNo"`
	MfgDate       Date      `json:"mfgDate"`
	ExpDate       Date      `json:"expDate"`
	TotalQuantity int       `json:"totalQuantity"`
}

type PurchaseInput struct {
	PurchaseDate Date
	InvoiceNo    string
	SupplierID   uuid.UUID
	Details      string
	Items        []PurchaseItemInput
}

type PurchaseItemInput struct {
	MedicineID uuid.UUID `json:"medicineId"`
	Quantity   int       `json:"quantity"`
	BatchNo    string    `json:"batchNo"`
	MfgDate    Date      `json:"mfgDate"`
	ExpiryDate Date      `json:"expiryDate"`
}

type SupplierInput struct {
	Name    string
	Email   *string
	Phone   *string
	Address *string
}

type MedicineInput struct {
	BrandName    string
	GenericName  *string
	Manufacturer *string
}

type DispenseInput struct {
	MedicineID uuid.UUID
	Quantity   int
}

// PurchaseItemImportRow is one spreadsheet line before its medicine is resolved.
// Row is the 1-based sheet row, kept for error messages.
type PurchaseItemImportRow struct {
	Row          int
	MedicineID   uuid.UUID
	MedicineName string
	Quantity     int
	BatchNo      string
	MfgDate      Date
	ExpiryDate   Date
}

// LowStockRow is a medicine whose stock is under the reorder threshold.
type LowStockRow struct {
	MedicineID   uuid.UUID `json:"medicineId"`
	MedicineName string    `json:"medicineName"`
	Stock        int       `json:"stock"`
	Threshold    int       `json:"threshold"`
	Needed       int       `json:"needed"`
}

type ExpiringItem struct {
	PurchaseListID uuid.UUID `json:"purchaseListId"`
	InvoiceNo      string    `json:"invoiceNo"`
	MedicineID     uuid.UUID `json:"medicineId"`
	MedicineName   string    `json:"medicineName"`
	BatchNo        string    `json:"batchNo"`
	Quantity       int       `json:"quantity"`
	ExpiryDate     Date      `json:"expiryDate"`
}

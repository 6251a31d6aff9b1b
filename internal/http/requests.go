package http

import (
	"strings"

	"pharmacy/internal/domain"

	"github.com/google/uuid"
)

type purchaseRequest struct {
	PurchaseDate    domain.Date           `json:"purchaseDate"`
	InvoiceNo       string                `json:"invoiceNo" validate:"required,max=64"`
	SupplierID      uuid.UUID             `json:"supplierId"`
	PurchaseDetails string                `json:"purchaseDetails" validate:"max=2000"`
	PurchaseItems   []purchaseItemRequest `json:"purchaseItems" validate:"required,min=1,dive"`
}

type purchaseItemRequest struct {
	MedicineID uuid.UUID   `json:"medicineId"`
	Quantity   int         `json:"quantity" validate:"gt=0,lte=1000000"`
	BatchNo    string      `json:"batchNo" validate:"required,max=64"`
	MfgDate    domain.Date `json:"mfgDate"`
	ExpiryDate domain.Date `json:"expiryDate"`
}

func (req purchaseRequest) toInput() domain.PurchaseInput {
	items := make([]domain.PurchaseItemInput, 0, len(req.PurchaseItems))
	for _, item := range req.PurchaseItems {
		items = append(items, domain.PurchaseItemInput{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
			BatchNo:    item.BatchNo,
			MfgDate:    item.MfgDate,
			ExpiryDate: item.ExpiryDate,
		})
	}
	return domain.PurchaseInput{
		PurchaseDate: req.PurchaseDate,
		InvoiceNo:    req.InvoiceNo,
		SupplierID:   req.SupplierID,
		Details:      req.PurchaseDetails,
		Items:        items,
	}
}

type supplierRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=32"`
	Address string `json:"address" validate:"max=500"`
}

func (req supplierRequest) toInput() domain.SupplierInput {
	return domain.SupplierInput{
		Name:    req.Name,
		Email:   optional(req.Email),
		Phone:   optional(req.Phone),
		Address: optional(req.Address),
	}
}

type medicineRequest struct {
	BrandName    string `json:"brandName" validate:"required,max=200"`
	GenericName  string `json:"genericName" validate:"max=200"`
	Manufacturer string `json:"manufacturer" validate:"max=200"`
}

func (req medicineRequest) toInput() domain.MedicineInput {
	return domain.MedicineInput{
		BrandName:    req.BrandName,
		GenericName:  optional(req.GenericName),
		Manufacturer: optional(req.Manufacturer),
	}
}

type dispenseRequest struct {
	MedicineID uuid.UUID `json:"medicineId"`
	Quantity   int       `json:"quantity" validate:"gt=0,lte=1000000"`
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func (req dispenseRequest) toInput() domain.DispenseInput {
	return domain.DispenseInput{MedicineID: req.MedicineID, Quantity: req.Quantity}
}

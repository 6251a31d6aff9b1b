package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/excel"
	"pharmacy/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	maxUploadBytes          = 32 << 20
	defaultExpiryWindowDays = 90
	xlsxMIME                = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"status": "ok"}, "Service is healthy")
}

func (h *Handler) ListPurchaseLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.ListPurchaseLists(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, lists, "Purchase List retrieved successfully")
}

func (h *Handler) GetPurchaseDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	details, err := h.svc.GetPurchaseDetails(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, details, "Purchase Details retrieved successfully")
}

func (h *Handler) CreatePurchaseList(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.CreatePurchaseList(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("purchase_list_id", list.ID.String()).
		Str("invoice_no", list.InvoiceNo).
		Int("items", len(list.Items)).
		Msg("purchase list created")
	writeOK(w, list, "Purchase List record created successfully")
}

func (h *Handler) UpdatePurchaseList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.UpdatePurchaseList(r.Context(), id, req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("purchase_list_id", list.ID.String()).
		Int("items", len(list.Items)).
		Msg("purchase list updated")
	writeOK(w, list, "Purchase List record updated successfully")
}

func (h *Handler) DeletePurchaseList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.svc.DeletePurchaseList(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("purchase_list_id", id.String()).
		Int("items", deleted).
		Msg("purchase list deleted")
	writeOK(w, map[string]any{"deletedItems": deleted}, "Purchase List Record deleted successfully")
}

func (h *Handler) ExportPurchaseDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	details, err := h.svc.GetPurchaseDetails(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := excel.WritePurchaseDetails(&buf, *details); err != nil {
		writeError(w, r, apperr.Persistence("export purchase details", err))
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(details.InvoiceNo)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) ImportPurchaseItems(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.Validation("File exceeds %d MB", maxUploadBytes>>20).WithStatus(http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, r, apperr.Validation("failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Validation("file field is required"))
		return
	}
	defer file.Close()

	rows, format, err := excel.ParsePurchaseItems(header.Filename, file)
	if err != nil {
		writeError(w, r, apperr.Validation("%s", err.Error()))
		return
	}
	items, err := h.svc.ResolveImportedItems(r.Context(), rows)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{
		"fileName":      header.Filename,
		"format":        format,
		"totalRows":     len(rows),
		"purchaseItems": items,
	}, "Purchase items parsed successfully")
}

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, suppliers, "Suppliers retrieved successfully")
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	supplier, err := h.svc.CreateSupplier(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, supplier, "Supplier created successfully")
}

func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	supplier, err := h.svc.UpdateSupplier(r.Context(), id, req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, supplier, "Supplier updated successfully")
}

func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteSupplier(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"id": id}, "Supplier deleted successfully")
}

func (h *Handler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.svc.ListMedicines(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, medicines, "Medicines retrieved successfully")
}

func (h *Handler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	medicine, err := h.svc.CreateMedicine(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, medicine, "Medicine created successfully")
}

func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.svc.ListStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, stock, "Stock retrieved successfully")
}

func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := parseOptionalInt(r.URL.Query().Get("threshold"), domain.DefaultLowStockThreshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.svc.ListLowStock(r.Context(), threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, rows, "Low stock retrieved successfully")
}

func (h *Handler) ListExpiringItems(w http.ResponseWriter, r *http.Request) {
	days, err := parseOptionalInt(r.URL.Query().Get("days"), defaultExpiryWindowDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.svc.ListExpiringItems(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, items, "Expiring batches retrieved successfully")
}

func (h *Handler) DispenseStock(w http.ResponseWriter, r *http.Request) {
	var req dispenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	stock, err := h.svc.Dispense(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, stock, "Stock dispensed successfully")
}

func exportFileName(invoiceNo string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, invoiceNo)
	return "purchase-" + safe + ".xlsx"
}

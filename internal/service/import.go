package service

import (
	"context"
	"strings"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"

	"github.com/google/uuid"
)

// ResolveImportedItems turns parsed sheet rows into purchase item inputs. Rows
// naming a medicine by brand name are matched case-insensitively; an id column
// wins when both are present.
func (s *Service) ResolveImportedItems(ctx context.Context, rows []domain.PurchaseItemImportRow) ([]domain.PurchaseItemInput, error) {
	medicines, err := s.store.ListMedicines(ctx)
	if err != nil {
		return nil, classify("list medicines", err)
	}
	byID := make(map[uuid.UUID]struct{}, len(medicines))
	byName := make(map[string]uuid.UUID, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = struct{}{}
		byName[strings.ToLower(m.BrandName)] = m.ID
	}

	items := make([]domain.PurchaseItemInput, 0, len(rows))
	for _, row := range rows {
		medicineID := row.MedicineID
		if medicineID != uuid.Nil {
			if _, ok := byID[medicineID]; !ok {
				return nil, apperr.NotFound("Medicine with ID %s does not exist in ROW %d", medicineID, row.Row)
			}
		} else {
			id, ok := byName[strings.ToLower(strings.TrimSpace(row.MedicineName))]
			if !ok {
				return nil, apperr.NotFound("Medicine %q does not exist in ROW %d", row.MedicineName, row.Row)
			}
			medicineID = id
		}
		items = append(items, domain.PurchaseItemInput{
			MedicineID: medicineID,
			Quantity:   row.Quantity,
			BatchNo:    row.BatchNo,
			MfgDate:    row.MfgDate,
			ExpiryDate: row.ExpiryDate,
		})
	}
	return items, nil
}

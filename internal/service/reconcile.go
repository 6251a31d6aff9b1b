package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

// stockDelta is the net change one purchase edit makes to a medicine's stock.
type stockDelta struct {
	MedicineID uuid.UUID
	OldQty     int
	NewQty     int
}

func (d stockDelta) Diff() int {
	return d.NewQty - d.OldQty
}

func aggregateQuantities(items []domain.PurchaseItem) map[uuid.UUID]int {
	result := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		result[item.MedicineID] += item.Quantity
	}
	return result
}

// planStockDeltas diffs two item sets medicine by medicine. The result is ordered
// by medicine id so concurrent transactions take stock row locks in the same order.
func planStockDeltas(oldItems, newItems []domain.PurchaseItem) []stockDelta {
	oldMap := aggregateQuantities(oldItems)
	newMap := aggregateQuantities(newItems)

	keys := make([]uuid.UUID, 0, len(oldMap)+len(newMap))
	for id := range oldMap {
		keys = append(keys, id)
	}
	for id := range newMap {
		if _, seen := oldMap[id]; !seen {
			keys = append(keys, id)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })

	deltas := make([]stockDelta, 0, len(keys))
	for _, id := range keys {
		deltas = append(deltas, stockDelta{MedicineID: id, OldQty: oldMap[id], NewQty: newMap[id]})
	}
	return deltas
}

// applyStockDelta moves stock and inQuantity by the delta. A reduction may never
// take back units that were already dispensed.
func applyStockDelta(
	ctx context.Context,
	q repository.Queries,
	delta stockDelta,
	action string,
	now time.Time,
	newID func() uuid.UUID,
) error {
	diff := delta.Diff()
	if diff == 0 {
		return nil
	}

	stock, err := q.LockStock(ctx, delta.MedicineID)
	if errors.Is(err, repository.ErrNotFound) {
		if diff < 0 {
			return apperr.NotFound("Stock record does not exist for medicine with ID %s", delta.MedicineID)
		}
		if diff > domain.MaxStockQuantity {
			return stockLimitError(delta.MedicineID)
		}
		return q.InsertStock(ctx, domain.Stock{
			ID:          newID(),
			MedicineID:  delta.MedicineID,
			Stock:       diff,
			InQuantity:  diff,
			OutQuantity: 0,
			UpdatedAt:   now,
		})
	}
	if err != nil {
		return err
	}

	if diff < 0 && stock.InQuantity+diff < stock.OutQuantity {
		return apperr.Reconciliation(
			"Cannot Update Stock for medicine %s on %s the Purchase: %d units already dispensed, only %d can be removed",
			delta.MedicineID, action, stock.OutQuantity, stock.InQuantity-stock.OutQuantity,
		)
	}

	if diff > 0 && stock.InQuantity > domain.MaxStockQuantity-diff {
		return stockLimitError(delta.MedicineID)
	}

	stock.InQuantity += diff
	stock.Stock = stock.InQuantity - stock.OutQuantity
	stock.UpdatedAt = now
	if err := q.SaveStock(ctx, *stock); err != nil {
		return fmt.Errorf("save stock for medicine %s: %w", delta.MedicineID, err)
	}
	return nil
}

func stockLimitError(medicineID uuid.UUID) error {
	return apperr.Validation("Stock for medicine %s cannot exceed %d units", medicineID, domain.MaxStockQuantity)
}

func (s *Service) reconcileStock(ctx context.Context, q repository.Queries, oldItems, newItems []domain.PurchaseItem, action string) error {
	now := s.now()
	for _, delta := range planStockDeltas(oldItems, newItems) {
		if err := applyStockDelta(ctx, q, delta, action, now, s.newID); err != nil {
			return err
		}
	}
	return nil
}

package service

import (
	"context"
	"errors"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository"
)

func (s *Service) ListStock(ctx context.Context) ([]domain.StockView, error) {
	items, err := s.store.ListStock(ctx)
	if err != nil {
		return nil, classify("list stock", err)
	}
	return items, nil
}

func (s *Service) ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockRow, error) {
	if threshold <= 0 {
		return nil, apperr.Validation("Threshold must be greater than zero")
	}
	rows, err := s.store.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, classify("list low stock", err)
	}
	return rows, nil
}

// ListExpiringItems lists purchased batches whose expiry falls within the next
// days days, counted from today. Already expired batches are included.
func (s *Service) ListExpiringItems(ctx context.Context, days int) ([]domain.ExpiringItem, error) {
	if days < 0 {
		return nil, apperr.Validation("Days cannot be negative")
	}
	before := domain.NewDate(s.now().AddDate(0, 0, days))
	items, err := s.store.ListExpiringItems(ctx, before)
	if err != nil {
		return nil, classify("list expiring items", err)
	}
	return items, nil
}

// Dispense records units leaving the pharmacy. outQuantity grows and stock
// shrinks by the same amount; stock may not go below zero.
func (s *Service) Dispense(ctx context.Context, input domain.DispenseInput) (*domain.Stock, error) {
	if input.Quantity <= 0 {
		return nil, apperr.Validation("Quantity must be greater than zero")
	}
	if input.Quantity > domain.MaxQuantity {
		return nil, apperr.Validation("Quantity cannot exceed %d", domain.MaxQuantity)
	}

	var result domain.Stock
	err := s.store.RunAtomically(ctx, func(q repository.Queries) error {
		if _, err := q.GetMedicine(ctx, input.MedicineID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Medicine with ID %s does not exist", input.MedicineID)
			}
			return err
		}

		stock, err := q.LockStock(ctx, input.MedicineID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Stock record does not exist for medicine with ID %s", input.MedicineID)
		}
		if err != nil {
			return err
		}
		if stock.Stock < input.Quantity {
			return apperr.Reconciliation("Insufficient stock for medicine %s: %d available, %d requested",
				input.MedicineID, stock.Stock, input.Quantity)
		}

		stock.OutQuantity += input.Quantity
		stock.Stock = stock.InQuantity - stock.OutQuantity
		stock.UpdatedAt = s.now()
		if err := q.SaveStock(ctx, *stock); err != nil {
			return err
		}
		result = *stock
		return nil
	})
	if err != nil {
		return nil, classify("dispense stock", err)
	}
	return &result, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmacy/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) ListStock(ctx context.Context) ([]domain.StockView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			s.id,
			s.medicine_id,
			s.stock,
			s.in_quantity,
			s.out_quantity,
			s.updated_at,
			m.brand_name
		FROM stocks s
		JOIN medicines m ON m.id = s.medicine_id
		ORDER BY m.brand_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	items := make([]domain.StockView, 0)
	for rows.Next() {
		var v domain.StockView
		if err := rows.Scan(
			&v.ID,
			&v.MedicineID,
			&v.Stock.Stock,
			&v.InQuantity,
			&v.OutQuantity,
			&v.UpdatedAt,
			&v.MedicineName,
		); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock: %w", err)
	}
	return items, nil
}

func (r *Repository) LockStock(ctx context.Context, medicineID uuid.UUID) (*domain.Stock, error) {
	var s domain.Stock
	err := r.db.QueryRow(ctx, `
		SELECT id, medicine_id, stock, in_quantity, out_quantity, updated_at
		FROM stocks
		WHERE medicine_id = $1
		FOR UPDATE
	`, medicineID).Scan(&s.ID, &s.MedicineID, &s.Stock, &s.InQuantity, &s.OutQuantity, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load stock for medicine %s: %w", medicineID, err)
	}
	return &s, nil
}

func (r *Repository) InsertStock(ctx context.Context, s domain.Stock) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO stocks (id, medicine_id, stock, in_quantity, out_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.MedicineID, s.Stock, s.InQuantity, s.OutQuantity, s.UpdatedAt); err != nil {
		return fmt.Errorf("insert stock for medicine %s: %w", s.MedicineID, translateError(err))
	}
	return nil
}

func (r *Repository) SaveStock(ctx context.Context, s domain.Stock) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE stocks
		SET
			stock = $2,
			in_quantity = $3,
			out_quantity = $4,
			updated_at = $5
		WHERE id = $1
	`, s.ID, s.Stock, s.InQuantity, s.OutQuantity, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update stock for medicine %s: %w", s.MedicineID, translateError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"pharmacy/internal/domain"
)

func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]domain.LowStockRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			m.id,
			m.brand_name,
			COALESCE(s.stock, 0) AS stock,
			($1 - COALESCE(s.stock, 0)) AS needed
		FROM medicines m
		LEFT JOIN stocks s ON s.medicine_id = m.id
		WHERE COALESCE(s.stock, 0) < $1
		ORDER BY needed DESC, m.brand_name ASC
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	result := make([]domain.LowStockRow, 0)
	for rows.Next() {
		row := domain.LowStockRow{Threshold: threshold}
		if err := rows.Scan(&row.MedicineID, &row.MedicineName, &row.Stock, &row.Needed); err != nil {
			return nil, fmt.Errorf("scan low stock row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low stock rows: %w", err)
	}
	return result, nil
}

// ListExpiringItems returns purchased batches expiring on or before the given day,
// soonest first.
func (r *Repository) ListExpiringItems(ctx context.Context, before domain.Date) ([]domain.ExpiringItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			p.id,
			p.invoice_no,
			i.medicine_id,
			m.brand_name,
			i.batch_no,
			i.quantity,
			i.expiry_date
		FROM purchase_items i
		JOIN purchase_lists p ON p.id = i.purchase_list_id
		JOIN medicines m ON m.id = i.medicine_id
		WHERE i.expiry_date <= $1
		ORDER BY i.expiry_date ASC, m.brand_name ASC, i.batch_no ASC
	`, before.Time)
	if err != nil {
		return nil, fmt.Errorf("list expiring items: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ExpiringItem, 0)
	for rows.Next() {
		var (
			item   domain.ExpiringItem
			expiry time.Time
		)
		if err := rows.Scan(
			&item.PurchaseListID,
			&item.InvoiceNo,
			&item.MedicineID,
			&item.MedicineName,
			&item.BatchNo,
			&item.Quantity,
			&expiry,
		); err != nil {
			return nil, fmt.Errorf("scan expiring item: %w", err)
		}
		item.ExpiryDate = domain.NewDate(expiry)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiring items: %w", err)
	}
	return result, nil
}

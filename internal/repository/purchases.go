package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacy/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) ListPurchaseLists(ctx context.Context) ([]domain.PurchaseListSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			p.id,
			s.name,
			p.purchase_date,
			p.invoice_no,
			p.details
		FROM purchase_lists p
		JOIN suppliers s ON s.id = p.supplier_id
		ORDER BY p.purchase_date DESC, p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list purchase lists: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PurchaseListSummary, 0)
	for rows.Next() {
		var (
			item         domain.PurchaseListSummary
			purchaseDate time.Time
		)
		if err := rows.Scan(&item.ID, &item.SupplierName, &purchaseDate, &item.InvoiceNo, &item.Details); err != nil {
			return nil, fmt.Errorf("scan purchase list: %w", err)
		}
		item.PurchaseDate = domain.NewDate(purchaseDate)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase lists: %w", err)
	}
	return items, nil
}

func (r *Repository) GetPurchaseDetails(ctx context.Context, id uuid.UUID) (*domain.PurchaseDetails, error) {
	var (
		details      domain.PurchaseDetails
		purchaseDate time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT
			p.id,
			p.supplier_id,
			s.name,
			p.purchase_date,
			p.invoice_no,
			p.details
		FROM purchase_lists p
		JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.id = $1
	`, id).Scan(&details.ID, &details.SupplierID, &details.SupplierName, &purchaseDate, &details.InvoiceNo, &details.Details)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase details %s: %w", id, err)
	}
	details.PurchaseDate = domain.NewDate(purchaseDate)

	rows, err := r.db.Query(ctx, `
		SELECT
			i.medicine_id,
			m.brand_name,
			i.batch_no,
			i.mfg_date,
			i.expiry_date,
			i.quantity
		FROM purchase_items i
		JOIN medicines m ON m.id = i.medicine_id
		WHERE i.purchase_list_id = $1
		ORDER BY i.position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query purchase detail lines %s: %w", id, err)
	}
	defer rows.Close()

	details.Medicines = make([]domain.PurchaseDetailLine, 0)
	for rows.Next() {
		var (
			line    domain.PurchaseDetailLine
			mfgDate *time.Time
			expDate time.Time
		)
		if err := rows.Scan(&line.MedicineID, &line.Name, &line.BatchNo, &mfgDate, &expDate, &line.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan purchase detail line: %w", err)
		}
		line.MfgDate = dateFromNullable(mfgDate)
		line.ExpDate = domain.NewDate(expDate)
		details.Medicines = append(details.Medicines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase detail lines %s: %w", id, err)
	}
	return &details, nil
}

func (r *Repository) LockPurchaseList(ctx context.Context, id uuid.UUID) (*domain.PurchaseList, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, supplier_id, purchase_date, invoice_no, details, created_at, updated_at
		FROM purchase_lists
		WHERE id = $1
		FOR UPDATE
	`, id)
	list, err := scanPurchaseListRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load purchase list %s: %w", id, err)
	}
	return &list, nil
}

func (r *Repository) FindPurchaseListByInvoice(ctx context.Context, invoiceNo string) (*domain.PurchaseList, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, supplier_id, purchase_date, invoice_no, details, created_at, updated_at
		FROM purchase_lists
		WHERE invoice_no = $1
	`, invoiceNo)
	list, err := scanPurchaseListRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find purchase list by invoice %q: %w", invoiceNo, err)
	}
	return &list, nil
}

func (r *Repository) FindPurchaseItemByBatch(ctx context.Context, batchNo string) (*domain.PurchaseItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, purchase_list_id, medicine_id, quantity, batch_no, mfg_date, expiry_date
		FROM purchase_items
		WHERE batch_no = $1
	`, batchNo)
	item, err := scanPurchaseItemRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find purchase item by batch %q: %w", batchNo, err)
	}
	return &item, nil
}

func (r *Repository) ListPurchaseItems(ctx context.Context, purchaseListID uuid.UUID) ([]domain.PurchaseItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, purchase_list_id, medicine_id, quantity, batch_no, mfg_date, expiry_date
		FROM purchase_items
		WHERE purchase_list_id = $1
		ORDER BY position ASC
	`, purchaseListID)
	if err != nil {
		return nil, fmt.Errorf("query purchase items %s: %w", purchaseListID, err)
	}
	defer rows.Close()

	items := make([]domain.PurchaseItem, 0)
	for rows.Next() {
		item, err := scanPurchaseItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase items %s: %w", purchaseListID, err)
	}
	return items, nil
}

func (r *Repository) InsertPurchaseList(ctx context.Context, list domain.PurchaseList) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO purchase_lists (
			id,
			supplier_id,
			purchase_date,
			invoice_no,
			details,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, list.ID, list.SupplierID, list.PurchaseDate.Time, list.InvoiceNo, list.Details, list.CreatedAt, list.UpdatedAt); err != nil {
		return fmt.Errorf("insert purchase list: %w", translateError(err))
	}
	return r.insertPurchaseItems(ctx, list.ID, list.Items)
}

func (r *Repository) UpdatePurchaseList(ctx context.Context, list domain.PurchaseList) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE purchase_lists
		SET
			supplier_id = $2,
			purchase_date = $3,
			invoice_no = $4,
			details = $5,
			updated_at = $6
		WHERE id = $1
	`, list.ID, list.SupplierID, list.PurchaseDate.Time, list.InvoiceNo, list.Details, list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update purchase list %s: %w", list.ID, translateError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ReplacePurchaseItems(ctx context.Context, purchaseListID uuid.UUID, items []domain.PurchaseItem) (int, error) {
	cmd, err := r.db.Exec(ctx, "DELETE FROM purchase_items WHERE purchase_list_id = $1", purchaseListID)
	if err != nil {
		return 0, fmt.Errorf("clear purchase items %s: %w", purchaseListID, err)
	}
	if err := r.insertPurchaseItems(ctx, purchaseListID, items); err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *Repository) DeletePurchaseList(ctx context.Context, id uuid.UUID) (int, error) {
	cmd, err := r.db.Exec(ctx, "DELETE FROM purchase_items WHERE purchase_list_id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete purchase items %s: %w", id, err)
	}
	deleted, err := r.db.Exec(ctx, "DELETE FROM purchase_lists WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete purchase list %s: %w", id, err)
	}
	if deleted.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return int(cmd.RowsAffected()), nil
}

func (r *Repository) insertPurchaseItems(ctx context.Context, purchaseListID uuid.UUID, items []domain.PurchaseItem) error {
	for position, item := range items {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO purchase_items (
				id,
				purchase_list_id,
				medicine_id,
				quantity,
				batch_no,
				mfg_date,
				expiry_date,
				position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, purchaseListID, item.MedicineID, item.Quantity, item.BatchNo, item.MfgDate.Ptr(), item.ExpiryDate.Time, position); err != nil {
			return fmt.Errorf("insert purchase item %q: %w", item.BatchNo, translateError(err))
		}
	}
	return nil
}

func scanPurchaseListRow(row pgx.Row) (domain.PurchaseList, error) {
	var (
		list         domain.PurchaseList
		purchaseDate time.Time
	)
	if err := row.Scan(
		&list.ID,
		&list.SupplierID,
		&purchaseDate,
		&list.InvoiceNo,
		&list.Details,
		&list.CreatedAt,
		&list.UpdatedAt,
	); err != nil {
		return domain.PurchaseList{}, err
	}
	list.PurchaseDate = domain.NewDate(purchaseDate)
	return list, nil
}

func scanPurchaseItemRow(row pgx.Row) (domain.PurchaseItem, error) {
	var (
		item       domain.PurchaseItem
		mfgDate    *time.Time
		expiryDate time.Time
	)
	if err := row.Scan(
		&item.ID,
		&item.PurchaseListID,
		&item.MedicineID,
		&item.Quantity,
		&item.BatchNo,
		&mfgDate,
		&expiryDate,
	); err != nil {
		return domain.PurchaseItem{}, err
	}
	item.MfgDate = dateFromNullable(mfgDate)
	item.ExpiryDate = domain.NewDate(expiryDate)
	return item, nil
}

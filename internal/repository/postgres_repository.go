package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacy/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres Store. The same type serves pooled reads and, inside
// RunAtomically, statements bound to a single transaction.
type Repository struct {
	pool *pgxpool.Pool
	db   dbtx
}

var _ Store = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

func (r *Repository) RunAtomically(ctx context.Context, fn func(q Queries) error) error {
	if _, inTx := r.db.(pgx.Tx); inTx {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{pool: r.pool, db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", translateError(err))
	}
	return nil
}

func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return &ConflictError{Constraint: pgErr.ConstraintName}
		}
	}
	return err
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, phone, address, created_at, updated_at
		FROM suppliers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0)
	for rows.Next() {
		s, err := scanSupplierRow(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *Repository) GetSupplier(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, phone, address, created_at, updated_at
		FROM suppliers
		WHERE id = $1
	`, id)
	supplier, err := scanSupplierRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get supplier %s: %w", id, err)
	}
	return &supplier, nil
}

func (r *Repository) CreateSupplier(ctx context.Context, s domain.Supplier) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO suppliers (id, name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.Name, s.Email, s.Phone, s.Address, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("create supplier: %w", translateError(err))
	}
	return nil
}

func (r *Repository) UpdateSupplier(ctx context.Context, s domain.Supplier) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE suppliers
		SET name = $2, email = $3, phone = $4, address = $5, updated_at = $6
		WHERE id = $1
	`, s.ID, s.Name, s.Email, s.Phone, s.Address, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update supplier %s: %w", s.ID, translateError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete supplier %s: %w", id, translateError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, brand_name, generic_name, manufacturer, created_at
		FROM medicines
		ORDER BY brand_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()

	medicines := make([]domain.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicineRow(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medicines: %w", err)
	}
	return medicines, nil
}

func (r *Repository) GetMedicine(ctx context.Context, id uuid.UUID) (*domain.Medicine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, brand_name, generic_name, manufacturer, created_at
		FROM medicines
		WHERE id = $1
	`, id)
	medicine, err := scanMedicineRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get medicine %s: %w", id, err)
	}
	return &medicine, nil
}

func (r *Repository) CreateMedicine(ctx context.Context, m domain.Medicine) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO medicines (id, brand_name, generic_name, manufacturer, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.BrandName, m.GenericName, m.Manufacturer, m.CreatedAt); err != nil {
		return fmt.Errorf("create medicine: %w", translateError(err))
	}
	return nil
}

func scanSupplierRow(row pgx.Row) (domain.Supplier, error) {
	var s domain.Supplier
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Phone,
		&s.Address,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return domain.Supplier{}, err
	}
	return s, nil
}

func scanMedicineRow(row pgx.Row) (domain.Medicine, error) {
	var m domain.Medicine
	if err := row.Scan(
		&m.ID,
		&m.BrandName,
		&m.GenericName,
		&m.Manufacturer,
		&m.CreatedAt,
	); err != nil {
		return domain.Medicine{}, err
	}
	return m, nil
}

func dateFromNullable(t *time.Time) domain.Date {
	if t == nil {
		return domain.Date{}
	}
	return domain.NewDate(*t)
}

package tenants

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkit/shopkit/pkg/pg"
)

// PGStorage is the PostgreSQL-backed tenant storage.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates tenant storage on the given pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) List(ctx context.Context, skip, limit int) ([]Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY id OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("tenants: list: %w", err)
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("tenants: scan: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *PGStorage) FindByName(ctx context.Context, name string) (Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE lower(name) = lower($1)`, name).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if pg.IsNotFoundError(err) {
		return Tenant{}, fmt.Errorf("%w: %s", ErrTenantNotFound, name)
	}
	if err != nil {
		return Tenant{}, fmt.Errorf("tenants: find by name: %w", err)
	}
	return t, nil
}

func (s *PGStorage) Create(ctx context.Context, name string) (Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name) VALUES ($1) RETURNING id, name, created_at`, name).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return Tenant{}, fmt.Errorf("%w: %s", ErrTenantExists, name)
	}
	if err != nil {
		return Tenant{}, fmt.Errorf("tenants: create: %w", err)
	}
	return t, nil
}

// Delete dissociates the tenant's users before removing the row; products
// and their order items go via ON DELETE CASCADE.
func (s *PGStorage) Delete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET tenant_id = NULL WHERE tenant_id = $1`, id); err != nil {
			return fmt.Errorf("tenants: dissociate users: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("tenants: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrTenantNotFound
		}
		return nil
	})
}

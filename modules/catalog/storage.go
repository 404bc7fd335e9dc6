package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkit/shopkit/pkg/pg"
)

// PGStorage is the PostgreSQL-backed product storage.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates product storage on the given pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

const productColumns = `id, tenant_id, name, description, category, price, available_quantity`

func (s *PGStorage) ListByTenant(ctx context.Context, tenantID int64, f Filter) ([]Product, error) {
	query, args := buildListQuery(f, tenantID)
	return s.queryProducts(ctx, query, args)
}

func (s *PGStorage) ListAll(ctx context.Context, f Filter) ([]Product, error) {
	query, args := buildListQuery(f, 0)
	return s.queryProducts(ctx, query, args)
}

// buildListQuery assembles the filtered listing. tenantID 0 means all tenants.
func buildListQuery(f Filter, tenantID int64) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + productColumns + ` FROM products`)

	var conds []string
	var args []any
	if tenantID != 0 {
		args = append(args, tenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	args = append(args, f.Skip)
	sb.WriteString(fmt.Sprintf(" ORDER BY id OFFSET $%d", len(args)))
	args = append(args, f.Limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))

	return sb.String(), args
}

func (s *PGStorage) queryProducts(ctx context.Context, query string, args []any) ([]Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Category, &p.Price, &p.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PGStorage) FindByID(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Category, &p.Price, &p.AvailableQuantity)
	if pg.IsNotFoundError(err) {
		return Product{}, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: find by id: %w", err)
	}
	return p, nil
}

func (s *PGStorage) Create(ctx context.Context, p Product) (Product, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO products (tenant_id, name, description, category, price, available_quantity)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.TenantID, p.Name, p.Description, p.Category, p.Price, p.AvailableQuantity).
		Scan(&p.ID)
	if pg.IsDuplicateKeyError(err) {
		return Product{}, fmt.Errorf("%w: %s", ErrProductExists, p.Name)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	return p, nil
}

func (s *PGStorage) Update(ctx context.Context, p Product) (Product, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET name = $1, description = $2, category = $3, price = $4, available_quantity = $5
		 WHERE id = $6`,
		p.Name, p.Description, p.Category, p.Price, p.AvailableQuantity, p.ID)
	if pg.IsDuplicateKeyError(err) {
		return Product{}, fmt.Errorf("%w: %s", ErrProductExists, p.Name)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, fmt.Errorf("%w: id %d", ErrProductNotFound, p.ID)
	}
	return p, nil
}

func (s *PGStorage) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return nil
}

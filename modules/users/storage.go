package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkit/shopkit/modules/catalog"
	"github.com/shopkit/shopkit/pkg/identity"
	"github.com/shopkit/shopkit/pkg/pg"
)

// PGStorage is the PostgreSQL-backed user storage.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates user storage on the given pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Create(ctx context.Context, username string, role identity.Role, tenantID *int64) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, role, tenant_id) VALUES ($1, $2, $3)
		 RETURNING id, username, role, tenant_id`,
		username, string(role), tenantID).
		Scan(&u.ID, &u.Username, &u.Role, &u.TenantID)
	if pg.IsDuplicateKeyError(err) {
		return User{}, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	if err != nil {
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return u, nil
}

func (s *PGStorage) FindByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, role, tenant_id FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Role, &u.TenantID)
	if pg.IsNotFoundError(err) {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return User{}, fmt.Errorf("users: find by username: %w", err)
	}
	return u, nil
}

func (s *PGStorage) FindInTenant(ctx context.Context, userID, tenantID int64) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, role, tenant_id FROM users WHERE id = $1 AND tenant_id = $2`,
		userID, tenantID).
		Scan(&u.ID, &u.Username, &u.Role, &u.TenantID)
	if pg.IsNotFoundError(err) {
		return User{}, fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
	}
	if err != nil {
		return User{}, fmt.Errorf("users: find in tenant: %w", err)
	}
	return u, nil
}

func (s *PGStorage) Update(ctx context.Context, user User) (User, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $1, tenant_id = $2 WHERE id = $3`,
		string(user.Role), user.TenantID, user.ID)
	if err != nil {
		return User{}, fmt.Errorf("users: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("%w: id %d", ErrUserNotFound, user.ID)
	}
	return user, nil
}

func (s *PGStorage) Delete(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
	}
	return nil
}

func (s *PGStorage) ListForTenant(ctx context.Context, tenantID int64, skip, limit int) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, role, tenant_id FROM users
		 WHERE tenant_id = $1 ORDER BY id OFFSET $2 LIMIT $3`,
		tenantID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("users: list for tenant: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.TenantID); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PGStorage) AddFavourite(ctx context.Context, username string, productID int64) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO user_favourites (user_id, product_id)
		 SELECT id, $2 FROM users WHERE username = $1
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		username, productID)
	if err != nil {
		return fmt.Errorf("users: add favourite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrAlreadyFavourited, productID)
	}
	return nil
}

func (s *PGStorage) RemoveFavourite(ctx context.Context, username string, productID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_favourites
		 WHERE product_id = $2 AND user_id = (SELECT id FROM users WHERE username = $1)`,
		username, productID)
	if err != nil {
		return fmt.Errorf("users: remove favourite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFavourited, productID)
	}
	return nil
}

func (s *PGStorage) ListFavourites(ctx context.Context, username string, skip, limit int) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.tenant_id, p.name, p.description, p.category, p.price, p.available_quantity
		 FROM user_favourites f
		 JOIN users u ON u.id = f.user_id
		 JOIN products p ON p.id = f.product_id
		 WHERE u.username = $1 ORDER BY f.id OFFSET $2 LIMIT $3`,
		username, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("users: list favourites: %w", err)
	}
	defer rows.Close()

	out := []catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Category, &p.Price, &p.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("users: scan favourite: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

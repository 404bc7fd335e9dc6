package tenants

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrTenantExists is returned when creating a tenant whose name is taken.
	ErrTenantExists = errors.New("tenants: tenant already exists")
	// ErrTenantNotFound is returned when the named tenant does not exist.
	ErrTenantNotFound = errors.New("tenants: tenant not found")
	// ErrInvalidName is returned when the tenant name is empty.
	ErrInvalidName = errors.New("tenants: invalid tenant name")
)

// Tenant is a storefront on the platform. Tenant names are unique
// case-insensitively and appear in URL paths.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage is the persistence surface the service needs.
type Storage interface {
	List(ctx context.Context, skip, limit int) ([]Tenant, error)
	FindByName(ctx context.Context, name string) (Tenant, error)
	Create(ctx context.Context, name string) (Tenant, error)
	// Delete removes the tenant and its products; users of the tenant are
	// dissociated, not deleted.
	Delete(ctx context.Context, id int64) error
}

// Service implements tenant lifecycle rules on top of Storage.
type Service struct {
	storage Storage
}

// NewService creates a tenant Service.
func NewService(storage Storage) *Service {
	if storage == nil {
		panic("tenants: nil storage")
	}
	return &Service{storage: storage}
}

// List returns tenants with the platform's pagination caps applied.
func (s *Service) List(ctx context.Context, skip, limit int) ([]Tenant, error) {
	return s.storage.List(ctx, clampSkip(skip), clampLimit(limit))
}

// Create registers a new tenant. Names are trimmed and must be unique
// regardless of case.
func (s *Service) Create(ctx context.Context, name string) (Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tenant{}, ErrInvalidName
	}
	return s.storage.Create(ctx, name)
}

// FindByName returns the tenant with the given name.
func (s *Service) FindByName(ctx context.Context, name string) (Tenant, error) {
	return s.storage.FindByName(ctx, name)
}

// Delete removes the named tenant. The tenant's products go with it; its
// users stay on the platform as regular users.
func (s *Service) Delete(ctx context.Context, name string) error {
	tenant, err := s.storage.FindByName(ctx, name)
	if err != nil {
		return err
	}
	return s.storage.Delete(ctx, tenant.ID)
}

// Pagination caps shared by all list endpoints.
const (
	defaultLimit = 10
	maxLimit     = 100
)

func clampSkip(skip int) int {
	if skip < 0 {
		return 0
	}
	return skip
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

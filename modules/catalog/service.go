package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopkit/shopkit/modules/tenants"
)

var (
	// ErrProductExists is returned when a tenant already has a product with
	// the same name.
	ErrProductExists = errors.New("catalog: product already exists")
	// ErrProductNotFound is returned when no product matches the lookup.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrInvalidProduct is returned when product fields fail validation.
	ErrInvalidProduct = errors.New("catalog: invalid product")
)

// Product is one catalog entry owned by a tenant. Product names are unique
// within a tenant, case-insensitively.
type Product struct {
	ID                int64   `json:"id"`
	TenantID          int64   `json:"tenant_id"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Category          string  `json:"category,omitempty"`
	Price             float64 `json:"price"`
	AvailableQuantity int     `json:"available_quantity"`
}

// Filter narrows product listings.
type Filter struct {
	Skip     int
	Limit    int
	Category string
	Search   string
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	Price             float64 `json:"price"`
	AvailableQuantity int     `json:"available_quantity"`
}

// ProductUpdate is a partial update; nil fields stay unchanged.
type ProductUpdate struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Category          *string  `json:"category"`
	Price             *float64 `json:"price"`
	AvailableQuantity *int     `json:"available_quantity"`
}

// TenantDirectory resolves tenant names from URL paths.
type TenantDirectory interface {
	FindByName(ctx context.Context, name string) (tenants.Tenant, error)
}

// Storage is the persistence surface the service needs.
type Storage interface {
	ListByTenant(ctx context.Context, tenantID int64, f Filter) ([]Product, error)
	ListAll(ctx context.Context, f Filter) ([]Product, error)
	FindByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// Service implements the product catalog: tenant-scoped CRUD plus the
// public cross-tenant listing.
type Service struct {
	storage Storage
	dir     TenantDirectory
}

// NewService creates a catalog Service.
func NewService(storage Storage, dir TenantDirectory) *Service {
	if storage == nil {
		panic("catalog: nil storage")
	}
	if dir == nil {
		panic("catalog: nil tenant directory")
	}
	return &Service{storage: storage, dir: dir}
}

// Create adds a product to the named tenant's catalog.
func (s *Service) Create(ctx context.Context, tenantName string, input ProductInput) (Product, error) {
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return Product{}, err
	}
	return s.storage.Create(ctx, Product{
		TenantID:          tenant.ID,
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		Category:          input.Category,
		Price:             input.Price,
		AvailableQuantity: input.AvailableQuantity,
	})
}

// List returns the named tenant's products, filtered and clamped.
func (s *Service) List(ctx context.Context, tenantName string, f Filter) ([]Product, error) {
	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return nil, err
	}
	return s.storage.ListByTenant(ctx, tenant.ID, clampFilter(f))
}

// Get returns one product of the named tenant. A product belonging to a
// different tenant is reported as not found, not as someone else's product.
func (s *Service) Get(ctx context.Context, tenantName string, productID int64) (Product, error) {
	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return Product{}, err
	}
	p, err := s.storage.FindByID(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if p.TenantID != tenant.ID {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// Update applies a partial update to one of the named tenant's products.
func (s *Service) Update(ctx context.Context, tenantName string, productID int64, update ProductUpdate) (Product, error) {
	p, err := s.Get(ctx, tenantName, productID)
	if err != nil {
		return Product{}, err
	}

	if update.Name != nil {
		p.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Category != nil {
		p.Category = *update.Category
	}
	if update.Price != nil {
		p.Price = *update.Price
	}
	if update.AvailableQuantity != nil {
		p.AvailableQuantity = *update.AvailableQuantity
	}

	if err := validateInput(ProductInput{
		Name:              p.Name,
		Price:             p.Price,
		AvailableQuantity: p.AvailableQuantity,
	}); err != nil {
		return Product{}, err
	}
	return s.storage.Update(ctx, p)
}

// Delete removes one of the named tenant's products.
func (s *Service) Delete(ctx context.Context, tenantName string, productID int64) error {
	if _, err := s.Get(ctx, tenantName, productID); err != nil {
		return err
	}
	return s.storage.Delete(ctx, productID)
}

// ListAll is the public cross-tenant catalog listing.
func (s *Service) ListAll(ctx context.Context, f Filter) ([]Product, error) {
	return s.storage.ListAll(ctx, clampFilter(f))
}

// GetGlobal returns a product by id regardless of owning tenant.
func (s *Service) GetGlobal(ctx context.Context, productID int64) (Product, error) {
	return s.storage.FindByID(ctx, productID)
}

func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return errors.Join(ErrInvalidProduct, errors.New("name is required"))
	}
	if input.Price < 0 {
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	}
	if input.AvailableQuantity < 0 {
		return errors.Join(ErrInvalidProduct, errors.New("available quantity must not be negative"))
	}
	return nil
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

func clampFilter(f Filter) Filter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	return f
}

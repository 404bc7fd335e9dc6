package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shopkit/shopkit/modules/tenants"
)

var (
	// ErrEmptyOrder is returned when an order carries no items.
	ErrEmptyOrder = errors.New("orders: order must contain at least one item")
	// ErrInvalidQuantity is returned when an item quantity is not positive.
	ErrInvalidQuantity = errors.New("orders: quantity must be positive")
	// ErrInsufficientStock is returned when a product cannot cover the
	// requested quantity.
	ErrInsufficientStock = errors.New("orders: insufficient stock")
	// ErrProductNotFound is returned when an item references a product that
	// does not exist in the target tenant's catalog.
	ErrProductNotFound = errors.New("orders: product not found")
	// ErrUserNotFound is returned when the ordering user has no platform record.
	ErrUserNotFound = errors.New("orders: user not found")
)

// Order is a placed purchase with denormalized totals. Reference is the
// customer-facing confirmation identifier, assigned at placement.
type Order struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"`
	Username      string    `json:"username"`
	TotalQuantity int       `json:"total_quantity"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
	Items         []Item    `json:"items"`
}

// Item is one order line. UnitPrice is captured at order time so later
// price changes do not rewrite history.
type Item struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ItemInput is the requested product and quantity for one order line.
type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// TenantDirectory resolves tenant names from URL paths.
type TenantDirectory interface {
	FindByName(ctx context.Context, name string) (tenants.Tenant, error)
}

// Storage is the persistence surface the service needs. Create must be
// transactional: the stock decrement and the order rows commit or roll back
// together.
type Storage interface {
	Create(ctx context.Context, username string, tenantID int64, reference string, items []ItemInput) (Order, error)
	ListForUser(ctx context.Context, username string, skip, limit int) ([]Order, error)
}

// Service places and lists orders within one tenant's shop.
type Service struct {
	storage Storage
	dir     TenantDirectory
}

// NewService creates an orders Service.
func NewService(storage Storage, dir TenantDirectory) *Service {
	if storage == nil {
		panic("orders: nil storage")
	}
	if dir == nil {
		panic("orders: nil tenant directory")
	}
	return &Service{storage: storage, dir: dir}
}

// Create places an order for the user against the named tenant's catalog.
func (s *Service) Create(ctx context.Context, tenantName, username string, items []ItemInput) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return Order{}, ErrInvalidQuantity
		}
	}

	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return Order{}, err
	}
	return s.storage.Create(ctx, username, tenant.ID, uuid.NewString(), items)
}

// List returns the user's orders, newest last, with pagination caps applied.
func (s *Service) List(ctx context.Context, username string, skip, limit int) ([]Order, error) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	return s.storage.ListForUser(ctx, username, skip, limit)
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopkit/shopkit/modules/catalog"
	"github.com/shopkit/shopkit/modules/tenants"
	"github.com/shopkit/shopkit/pkg/identity"
	"github.com/shopkit/shopkit/pkg/keycloakadmin"
	"github.com/shopkit/shopkit/pkg/logger"
)

var (
	// ErrUserExists is returned when the username is already registered.
	ErrUserExists = errors.New("users: user already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidInput is returned when required signup or create fields are
	// missing.
	ErrInvalidInput = errors.New("users: invalid input")
	// ErrUnknownRole is returned when a role is outside the application set.
	ErrUnknownRole = errors.New("users: unknown role")
	// ErrAlreadyFavourited is returned when a product is favourited twice.
	ErrAlreadyFavourited = errors.New("users: product already favourited")
	// ErrNotFavourited is returned when removing a favourite that was never
	// added.
	ErrNotFavourited = errors.New("users: product not favourited")
)

// User is a platform account. TenantID is set only while the user operates
// within a tenant context; deleting the tenant clears it without deleting
// the account.
type User struct {
	ID       int64         `json:"id"`
	Username string        `json:"username"`
	Role     identity.Role `json:"role"`
	TenantID *int64        `json:"tenant_id"`
}

// CreateInput carries the fields for admin-driven user creation.
type CreateInput struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Role     identity.Role `json:"role"`
}

// TenantDirectory resolves tenant names from URL paths.
type TenantDirectory interface {
	FindByName(ctx context.Context, name string) (tenants.Tenant, error)
}

// ProductDirectory looks up catalog products for favourite operations.
type ProductDirectory interface {
	GetGlobal(ctx context.Context, productID int64) (catalog.Product, error)
}

// AccountProvider is the external identity store the platform records are
// synced against. Implemented by keycloakadmin.Client.
type AccountProvider interface {
	CreateUser(ctx context.Context, username, password string, role identity.Role, email string) error
	DeleteUser(ctx context.Context, username string) error
	UpdateUserRole(ctx context.Context, username string, oldRole, newRole identity.Role) error
	Login(ctx context.Context, username, password string) (keycloakadmin.TokenPair, error)
}

// Storage is the persistence surface the service needs.
type Storage interface {
	Create(ctx context.Context, username string, role identity.Role, tenantID *int64) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindInTenant(ctx context.Context, userID, tenantID int64) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, userID int64) error
	ListForTenant(ctx context.Context, tenantID int64, skip, limit int) ([]User, error)

	AddFavourite(ctx context.Context, username string, productID int64) error
	RemoveFavourite(ctx context.Context, username string, productID int64) error
	ListFavourites(ctx context.Context, username string, skip, limit int) ([]catalog.Product, error)
}

// Service manages platform user records, keeps them synced with the external
// identity store, and owns per-user favourites.
type Service struct {
	storage  Storage
	dir      TenantDirectory
	products ProductDirectory
	accounts AccountProvider
	log      *slog.Logger
}

// NewService creates a users Service.
func NewService(storage Storage, dir TenantDirectory, products ProductDirectory, accounts AccountProvider, log *slog.Logger) *Service {
	if storage == nil {
		panic("users: nil storage")
	}
	if dir == nil {
		panic("users: nil tenant directory")
	}
	if products == nil {
		panic("users: nil product directory")
	}
	if accounts == nil {
		panic("users: nil account provider")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{storage: storage, dir: dir, products: products, accounts: accounts, log: log}
}

// Signup registers a public account. The role is always RoleUser; elevated
// accounts go through the tenant-admin endpoints. The account is created in
// the identity store first, then recorded locally; a pre-existing identity
// store entry is tolerated so the two stay in sync after partial failures.
func (s *Service) Signup(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	if _, err := s.storage.FindByUsername(ctx, username); err == nil {
		return User{}, fmt.Errorf("%w: %s", ErrUserExists, username)
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	err := s.accounts.CreateUser(ctx, username, password, identity.RoleUser, "")
	if err != nil && !errors.Is(err, keycloakadmin.ErrUserExists) {
		return User{}, fmt.Errorf("users: identity store create: %w", err)
	}

	return s.storage.Create(ctx, username, identity.RoleUser, nil)
}

// Login exchanges user credentials for realm tokens.
func (s *Service) Login(ctx context.Context, username, password string) (keycloakadmin.TokenPair, error) {
	if username == "" || password == "" {
		return keycloakadmin.TokenPair{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	return s.accounts.Login(ctx, username, password)
}

// ListForTenant returns the users associated with the named tenant.
func (s *Service) ListForTenant(ctx context.Context, tenantName string, skip, limit int) ([]User, error) {
	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return nil, err
	}
	skip, limit = clamp(skip, limit)
	return s.storage.ListForTenant(ctx, tenant.ID, skip, limit)
}

// CreateInTenant registers a user inside the named tenant with an explicit
// role. Identity store first, local record second, as in Signup.
func (s *Service) CreateInTenant(ctx context.Context, tenantName string, input CreateInput) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" || input.Password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	role, ok := identity.ParseRole(string(input.Role))
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownRole, input.Role)
	}

	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return User{}, err
	}

	if _, err := s.storage.FindByUsername(ctx, input.Username); err == nil {
		return User{}, fmt.Errorf("%w: %s", ErrUserExists, input.Username)
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	err = s.accounts.CreateUser(ctx, input.Username, input.Password, role, "")
	if err != nil && !errors.Is(err, keycloakadmin.ErrUserExists) {
		return User{}, fmt.Errorf("users: identity store create: %w", err)
	}
	if errors.Is(err, keycloakadmin.ErrUserExists) {
		s.log.InfoContext(ctx, "identity store entry already exists, syncing record",
			logger.Username(input.Username))
	}

	return s.storage.Create(ctx, input.Username, role, &tenant.ID)
}

// UpdateRole changes the role of a user inside the named tenant. A role
// change is pushed to the identity store before the local record moves.
// Tenant association follows the role: tenant_admin binds to the tenant,
// any other role clears the binding.
func (s *Service) UpdateRole(ctx context.Context, tenantName string, userID int64, newRole identity.Role) (User, error) {
	role, ok := identity.ParseRole(string(newRole))
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownRole, newRole)
	}

	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return User{}, err
	}
	user, err := s.storage.FindInTenant(ctx, userID, tenant.ID)
	if err != nil {
		return User{}, err
	}

	if user.Role != role {
		if err := s.accounts.UpdateUserRole(ctx, user.Username, user.Role, role); err != nil {
			return User{}, fmt.Errorf("users: identity store role update: %w", err)
		}
	}

	user.Role = role
	if role == identity.RoleTenantAdmin {
		user.TenantID = &tenant.ID
	} else {
		user.TenantID = nil
	}
	return s.storage.Update(ctx, user)
}

// AssignToTenant moves an existing user, found by username, into the named
// tenant with the given role. Same association rules as UpdateRole.
func (s *Service) AssignToTenant(ctx context.Context, tenantName, username string, newRole identity.Role) (User, error) {
	role, ok := identity.ParseRole(string(newRole))
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownRole, newRole)
	}

	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return User{}, err
	}
	user, err := s.storage.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}

	if user.Role != role {
		if err := s.accounts.UpdateUserRole(ctx, user.Username, user.Role, role); err != nil {
			return User{}, fmt.Errorf("users: identity store role update: %w", err)
		}
	}

	user.Role = role
	if role == identity.RoleTenantAdmin {
		user.TenantID = &tenant.ID
	} else {
		user.TenantID = nil
	}
	return s.storage.Update(ctx, user)
}

// Delete removes a user from the named tenant. The identity store delete is
// best effort: the entry may already be gone, and the local record is the
// source of truth.
func (s *Service) Delete(ctx context.Context, tenantName string, userID int64) error {
	tenant, err := s.dir.FindByName(ctx, tenantName)
	if err != nil {
		return err
	}
	user, err := s.storage.FindInTenant(ctx, userID, tenant.ID)
	if err != nil {
		return err
	}

	if err := s.accounts.DeleteUser(ctx, user.Username); err != nil {
		s.log.WarnContext(ctx, "identity store delete failed, removing local record anyway",
			logger.Username(user.Username), logger.Error(err))
	}
	return s.storage.Delete(ctx, user.ID)
}

// AddFavourite marks a product as a favourite of the user. Any authenticated
// user can favourite any product regardless of tenant.
func (s *Service) AddFavourite(ctx context.Context, username string, productID int64) error {
	if _, err := s.products.GetGlobal(ctx, productID); err != nil {
		return err
	}
	return s.storage.AddFavourite(ctx, username, productID)
}

// RemoveFavourite drops a product from the user's favourites.
func (s *Service) RemoveFavourite(ctx context.Context, username string, productID int64) error {
	if _, err := s.products.GetGlobal(ctx, productID); err != nil {
		return err
	}
	return s.storage.RemoveFavourite(ctx, username, productID)
}

// ListFavourites returns the user's favourite products with pagination caps
// applied.
func (s *Service) ListFavourites(ctx context.Context, username string, skip, limit int) ([]catalog.Product, error) {
	skip, limit = clamp(skip, limit)
	return s.storage.ListFavourites(ctx, username, skip, limit)
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

func clamp(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	return skip, limit
}

package keycloakadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopkit/shopkit/pkg/identity"
)

// Config contains Keycloak admin API settings loaded from the environment.
type Config struct {
	BaseURL       string        `env:"KEYCLOAK_ADMIN_URL"`
	Realm         string        `env:"KEYCLOAK_REALM" envDefault:"ecommerce"`
	AdminUsername string        `env:"KEYCLOAK_ADMIN_USERNAME"`
	AdminPassword string        `env:"KEYCLOAK_ADMIN_PASSWORD"`
	ClientID      string        `env:"KEYCLOAK_CLIENT_ID" envDefault:"ecommerce-api"`
	ClientSecret  string        `env:"KEYCLOAK_CLIENT_SECRET"`
	HTTPTimeout   time.Duration `env:"KEYCLOAK_ADMIN_HTTP_TIMEOUT" envDefault:"10s"`
}

// Client talks to the Keycloak Admin API for user lifecycle and realm-role
// management. The admin token is acquired lazily against the master realm
// and refreshed once on a 401 response.
type Client struct {
	baseURL       string
	realm         string
	adminUsername string
	adminPassword string
	clientID      string
	clientSecret  string
	httpClient    *http.Client

	mu    sync.Mutex
	token string
}

// Option configures the Client.
type Option func(*Client)

// WithClientCredentials sets the realm client used for end-user password
// grants issued through Login.
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(k *Client) {
		if clientID == "" {
			panic("keycloakadmin: empty client id")
		}
		k.clientID = clientID
		k.clientSecret = clientSecret
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(k *Client) {
		if c == nil {
			panic("keycloakadmin: nil http client")
		}
		k.httpClient = c
	}
}

// New creates a Client for the given Keycloak base URL and realm.
func New(baseURL, realm, adminUsername, adminPassword string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrMissingEndpoint
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		realm:         realm,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		clientID:      "ecommerce-api",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig creates a Client from environment configuration.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	c, err := New(cfg.BaseURL, cfg.Realm, cfg.AdminUsername, cfg.AdminPassword, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.ClientID != "" {
		c.clientID = cfg.ClientID
	}
	c.clientSecret = cfg.ClientSecret
	if cfg.HTTPTimeout > 0 {
		c.httpClient.Timeout = cfg.HTTPTimeout
	}
	return c, nil
}

// user is the subset of Keycloak's user representation this client touches.
type user struct {
	ID            string         `json:"id,omitempty"`
	Username      string         `json:"username"`
	Email         string         `json:"email,omitempty"`
	FirstName     string         `json:"firstName,omitempty"`
	LastName      string         `json:"lastName,omitempty"`
	Enabled       bool           `json:"enabled"`
	EmailVerified bool           `json:"emailVerified"`
	Attributes    map[string]any `json:"attributes"`
}

// roleRepresentation is Keycloak's realm-role payload.
type roleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateUser creates a Keycloak user with a permanent password and one realm
// role. Returns ErrUserExists when the username is already taken.
func (c *Client) CreateUser(ctx context.Context, username, password string, role identity.Role, email string) error {
	if email == "" {
		email = username + "@ecommerce.local"
	}
	payload := user{
		Username:      username,
		Email:         email,
		FirstName:     capitalize(username),
		LastName:      "User",
		Enabled:       true,
		EmailVerified: true,
		Attributes:    map[string]any{},
	}

	resp, err := c.do(ctx, http.MethodPost, c.realmPath("users"), nil, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	default:
		return unexpectedStatus(resp)
	}

	id, err := c.userID(ctx, username)
	if err != nil {
		return err
	}
	if err := c.setPassword(ctx, id, password); err != nil {
		return err
	}
	if role != "" {
		return c.assignRole(ctx, id, role)
	}
	return nil
}

// DeleteUser removes a Keycloak user by username. Returns ErrUserNotFound
// when no such user exists.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	id, err := c.userID(ctx, username)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodDelete, c.realmPath("users/"+id), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	return nil
}

// UserExists reports whether a user with the exact username exists.
func (c *Client) UserExists(ctx context.Context, username string) (bool, error) {
	users, err := c.findUsers(ctx, username)
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

// UpdateUserRole swaps a user's application realm role. Only the three
// application roles are touched; Keycloak's built-in roles stay untouched.
// Removal failures of the old role are tolerated since the role may be gone.
func (c *Client) UpdateUserRole(ctx context.Context, username string, oldRole, newRole identity.Role) error {
	id, err := c.userID(ctx, username)
	if err != nil {
		return err
	}
	if _, ok := identity.ParseRole(string(oldRole)); ok {
		_ = c.removeRole(ctx, id, oldRole)
	}
	if _, ok := identity.ParseRole(string(newRole)); !ok {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, newRole)
	}
	return c.assignRole(ctx, id, newRole)
}

func (c *Client) userID(ctx context.Context, username string) (string, error) {
	users, err := c.findUsers(ctx, username)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return users[0].ID, nil
}

func (c *Client) findUsers(ctx context.Context, username string) ([]user, error) {
	query := url.Values{"username": {username}, "exact": {"true"}}
	resp, err := c.do(ctx, http.MethodGet, c.realmPath("users"), query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	var users []user
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("keycloakadmin: decode users: %w", err)
	}
	return users, nil
}

func (c *Client) setPassword(ctx context.Context, userID, password string) error {
	payload := map[string]any{
		"type":      "password",
		"value":     password,
		"temporary": false,
	}
	resp, err := c.do(ctx, http.MethodPut, c.realmPath("users/"+userID+"/reset-password"), nil, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	return nil
}

func (c *Client) roleRepresentation(ctx context.Context, role identity.Role) (roleRepresentation, error) {
	resp, err := c.do(ctx, http.MethodGet, c.realmPath("roles/"+string(role)), nil, nil)
	if err != nil {
		return roleRepresentation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return roleRepresentation{}, fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}
	if resp.StatusCode != http.StatusOK {
		return roleRepresentation{}, unexpectedStatus(resp)
	}
	var rep roleRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return roleRepresentation{}, fmt.Errorf("keycloakadmin: decode role: %w", err)
	}
	return rep, nil
}

func (c *Client) assignRole(ctx context.Context, userID string, role identity.Role) error {
	return c.mapRole(ctx, http.MethodPost, userID, role)
}

func (c *Client) removeRole(ctx context.Context, userID string, role identity.Role) error {
	return c.mapRole(ctx, http.MethodDelete, userID, role)
}

func (c *Client) mapRole(ctx context.Context, method, userID string, role identity.Role) error {
	rep, err := c.roleRepresentation(ctx, role)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, method, c.realmPath("users/"+userID+"/role-mappings/realm"), nil, []roleRepresentation{rep})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

// do performs one admin API request, refreshing the token and retrying once
// on a 401 response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	token, err := c.adminToken(ctx, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, path, query, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	token, err = c.adminToken(ctx, true)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, query, body, token)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("keycloakadmin: marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("keycloakadmin: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloakadmin: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// adminToken returns the cached admin token, fetching a fresh one from the
// master realm on first use or when refresh is forced.
func (c *Client) adminToken(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !refresh {
		return c.token, nil
	}

	form := url.Values{
		"client_id":  {"admin-cli"},
		"username":   {c.adminUsername},
		"password":   {c.adminPassword},
		"grant_type": {"password"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/realms/master/protocol/openid-connect/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("keycloakadmin: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrTokenAcquisition, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrTokenAcquisition, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenAcquisition)
	}

	c.token = payload.AccessToken
	return c.token, nil
}

func (c *Client) realmPath(suffix string) string {
	return "/admin/realms/" + c.realm + "/" + suffix
}

func unexpectedStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s %s returned %d: %s",
		ErrRequestFailed, resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

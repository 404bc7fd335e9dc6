package keycloakadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TokenPair is the outcome of a successful password grant against the
// application realm.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Login exchanges end-user credentials for realm tokens using the resource
// owner password grant. Returns ErrInvalidCredentials on a 401 response so
// callers can distinguish bad credentials from transport failures.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	form := url.Values{
		"client_id":  {c.clientID},
		"username":   {username},
		"password":   {password},
		"grant_type": {"password"},
	}
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	endpoint := c.baseURL + "/realms/" + c.realm + "/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenPair{}, fmt.Errorf("keycloakadmin: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("keycloakadmin: login request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		// Keycloak answers invalid_grant with 401 (or 400 on older
		// versions) for wrong credentials.
		return TokenPair{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, username)
	default:
		return TokenPair{}, unexpectedStatus(resp)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return TokenPair{}, fmt.Errorf("keycloakadmin: decode token response: %w", err)
	}
	if pair.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("%w: empty access token", ErrTokenAcquisition)
	}
	return pair, nil
}

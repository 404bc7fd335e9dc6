package keycloakadmin

import "errors"

var (
	// ErrMissingEndpoint is returned when no admin API base URL is configured.
	ErrMissingEndpoint = errors.New("keycloakadmin: admin endpoint not configured")

	// ErrTokenAcquisition is returned when the master-realm token request fails.
	ErrTokenAcquisition = errors.New("keycloakadmin: admin token acquisition failed")

	// ErrUserExists is returned when creating a username that is already taken.
	ErrUserExists = errors.New("keycloakadmin: user already exists")

	// ErrUserNotFound is returned when an operation targets an unknown username.
	ErrUserNotFound = errors.New("keycloakadmin: user not found")

	// ErrRoleNotFound is returned when a realm role does not exist.
	ErrRoleNotFound = errors.New("keycloakadmin: role not found")

	// ErrInvalidCredentials is returned when an end-user password grant is
	// rejected by the realm.
	ErrInvalidCredentials = errors.New("keycloakadmin: invalid credentials")

	// ErrRequestFailed is returned on any other unexpected admin API response.
	ErrRequestFailed = errors.New("keycloakadmin: request failed")
)

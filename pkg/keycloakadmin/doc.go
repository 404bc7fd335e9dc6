// Package keycloakadmin is a minimal Keycloak Admin API client covering the
// user lifecycle this platform needs: create and delete realm users, check
// existence, and swap a user's application realm role.
//
// The admin token comes from the master realm via the admin-cli password
// grant. It is cached on the client and refreshed exactly once when a
// request answers 401, so an expired token costs one extra round trip
// instead of a failed operation.
package keycloakadmin

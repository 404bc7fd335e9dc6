// Package keyset resolves token verification keys from a remote JWKS
// endpoint (Keycloak or any OIDC-compatible issuer).
//
// The fetched key set is cached for a configurable TTL and shared read-only
// across requests. Refreshes run lazily (on first use, TTL expiry, or a
// key-id miss after rotation) and concurrent misses are collapsed into a
// single outbound fetch with golang.org/x/sync/singleflight, so a cold cache
// under load produces exactly one request to the issuer.
//
// Fetch failures are never fatal: if a still-fresh cached set exists it is
// served, otherwise the lookup fails with ErrKeyUnavailable and the caller
// rejects the request.
package keyset

// Package idtoken validates bearer tokens against a remote key set.
//
// Verification is strictly ordered (structure, key resolution, signature,
// expiration, then the optional audience and issuer checks) and every stage
// fails with its own sentinel wrapping ErrInvalidToken. The reasons exist for
// logs and tests; HTTP handling collapses them all into a 401 so a caller
// cannot probe which stage rejected the token.
//
// Audience and issuer checks are skipped entirely (not relaxed) when no
// expected value is configured. Deployments should set both.
package idtoken

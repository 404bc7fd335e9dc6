package idtoken

import "errors"

// ErrInvalidToken is the parent of every verification failure. The specific
// reasons below are for internal diagnostics; request handling collapses all
// of them to an unauthenticated outcome and never echoes the reason back.
var ErrInvalidToken = errors.New("idtoken: invalid token")

var (
	ErrMalformedToken = errors.Join(ErrInvalidToken, errors.New("idtoken: malformed token"))
	ErrKeyUnavailable = errors.Join(ErrInvalidToken, errors.New("idtoken: verification key unavailable"))
	ErrBadSignature   = errors.Join(ErrInvalidToken, errors.New("idtoken: signature mismatch"))
	ErrExpiredToken   = errors.Join(ErrInvalidToken, errors.New("idtoken: token expired"))
	ErrBadAudience    = errors.Join(ErrInvalidToken, errors.New("idtoken: audience mismatch"))
	ErrBadIssuer      = errors.Join(ErrInvalidToken, errors.New("idtoken: issuer mismatch"))

	// ErrMissingKeyResolver is returned when a Verifier is constructed without keys.
	ErrMissingKeyResolver = errors.New("idtoken: missing key resolver")
)

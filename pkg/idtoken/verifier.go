package idtoken

import (
	"context"
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the environment-driven claim expectations. Leaving an
// expectation empty skips that check outright rather than relaxing it,
// a deliberately weak default worth setting in any real deployment.
type Config struct {
	ExpectedAudience string `env:"AUTH_EXPECTED_AUDIENCE"`
	ExpectedIssuer   string `env:"AUTH_EXPECTED_ISSUER"`
}

// KeyResolver resolves a key identifier from a token header into a
// verification key. *keyset.Resolver satisfies this interface.
type KeyResolver interface {
	Key(ctx context.Context, keyID string) (crypto.PublicKey, error)
}

// validMethods restricts accepted signing algorithms to the asymmetric ones
// the key set can carry. Rejecting everything else up front prevents
// algorithm confusion attacks (an HMAC token "signed" with a public key).
var validMethods = []string{"RS256", "ES256"}

// Verifier validates bearer tokens: structure, signature, expiration, and,
// when configured, audience and issuer. It returns the raw claim mapping on
// success; claim interpretation belongs to the identity resolver.
type Verifier struct {
	keys     KeyResolver
	audience string
	issuer   string
	leeway   time.Duration
}

// Option configures the Verifier.
type Option func(*Verifier)

// WithAudience enables the audience check against the expected value.
func WithAudience(aud string) Option {
	return func(v *Verifier) { v.audience = aud }
}

// WithIssuer enables the issuer check against the expected value.
func WithIssuer(iss string) Option {
	return func(v *Verifier) { v.issuer = iss }
}

// WithLeeway sets the accepted clock skew for temporal claims.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) { v.leeway = d }
}

// New creates a Verifier backed by the given key resolver.
func New(keys KeyResolver, opts ...Option) (*Verifier, error) {
	if keys == nil {
		return nil, ErrMissingKeyResolver
	}
	v := &Verifier{keys: keys}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// NewFromConfig creates a Verifier with claim expectations from Config.
func NewFromConfig(keys KeyResolver, cfg Config, opts ...Option) (*Verifier, error) {
	configOpts := make([]Option, 0, 2)
	if cfg.ExpectedAudience != "" {
		configOpts = append(configOpts, WithAudience(cfg.ExpectedAudience))
	}
	if cfg.ExpectedIssuer != "" {
		configOpts = append(configOpts, WithIssuer(cfg.ExpectedIssuer))
	}
	return New(keys, append(configOpts, opts...)...)
}

// Verify validates tokenString and returns its claims. Checks run in a fixed
// order, each with its own failure reason wrapping ErrInvalidToken:
//
//  1. structural decode          → ErrMalformedToken
//  2. key id resolution          → ErrKeyUnavailable
//  3. signature                  → ErrBadSignature
//  4. expiration                 → ErrExpiredToken
//  5. audience (if configured)   → ErrBadAudience
//  6. issuer (if configured)     → ErrBadIssuer
func (v *Verifier) Verify(ctx context.Context, tokenString string) (map[string]any, error) {
	// Structural decode first, so a garbage token never costs a key fetch.
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}

	keyID, _ := unverified.Header["kid"].(string)
	if keyID == "" {
		return nil, errors.Join(ErrMalformedToken, errors.New("idtoken: token header missing kid"))
	}

	key, err := v.keys.Key(ctx, keyID)
	if err != nil {
		return nil, errors.Join(ErrKeyUnavailable, err)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	}
	if v.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(v.leeway))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return key, nil
	}, parserOpts...)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	return map[string]any(claims), nil
}

// classify maps golang-jwt errors onto the package's ordered failure
// taxonomy so callers can log a precise reason without parsing messages.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return errors.Join(ErrBadAudience, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return errors.Join(ErrBadIssuer, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		// A token without exp cannot prove it is still alive.
		return errors.Join(ErrExpiredToken, err)
	default:
		return errors.Join(ErrMalformedToken, err)
	}
}

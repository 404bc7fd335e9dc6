package keyset

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config is the environment-driven key resolver configuration.
// An empty URL disables token verification for the whole service.
type Config struct {
	URL          string        `env:"AUTH_KEYSET_URL"`
	TTL          time.Duration `env:"AUTH_KEYSET_TTL" envDefault:"1h"`
	FetchTimeout time.Duration `env:"AUTH_KEYSET_FETCH_TIMEOUT" envDefault:"5s"`
}

// maxResponseSize bounds the JWKS response body to guard against a
// misbehaving or hostile endpoint.
const maxResponseSize = 1 << 20

// snapshot is one immutable fetched key set. Readers share it without
// locking once published; a refresh swaps in a whole new snapshot.
type snapshot struct {
	keys      map[string]crypto.PublicKey
	fetchedAt time.Time
}

func (s *snapshot) fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.fetchedAt) < ttl
}

// Resolver fetches and caches the remote signing-key set and resolves a
// key identifier from a token header into a verification key.
//
// The cache holds a single key set refreshed lazily: on first use, when the
// TTL elapses, or when a looked-up key id is absent from the cached set
// (key rotation). Concurrent misses collapse into one outbound fetch.
// Resolver is safe for concurrent use.
type Resolver struct {
	url     string
	ttl     time.Duration
	timeout time.Duration
	client  *http.Client

	mu      sync.RWMutex
	current *snapshot

	group singleflight.Group
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithTTL sets the key set time-to-live.
func WithTTL(ttl time.Duration) Option {
	if ttl <= 0 {
		panic("WithTTL: duration must be > 0")
	}
	return func(r *Resolver) { r.ttl = ttl }
}

// WithFetchTimeout bounds a single remote fetch.
func WithFetchTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("WithFetchTimeout: duration must be > 0")
	}
	return func(r *Resolver) { r.timeout = d }
}

// WithHTTPClient supplies a custom HTTP client; nil clients are ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// New creates a Resolver for the given key set endpoint.
func New(url string, opts ...Option) (*Resolver, error) {
	if url == "" {
		return nil, ErrMissingEndpoint
	}

	r := &Resolver{
		url:     url,
		ttl:     time.Hour,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: r.timeout}
	}
	return r, nil
}

// NewFromConfig creates a Resolver from the environment-driven Config.
func NewFromConfig(cfg Config, opts ...Option) (*Resolver, error) {
	configOpts := make([]Option, 0, 2)
	if cfg.TTL > 0 {
		configOpts = append(configOpts, WithTTL(cfg.TTL))
	}
	if cfg.FetchTimeout > 0 {
		configOpts = append(configOpts, WithFetchTimeout(cfg.FetchTimeout))
	}
	return New(cfg.URL, append(configOpts, opts...)...)
}

// Key resolves a key identifier into a verification key.
//
// A fresh cached set is consulted first. On a cache miss, TTL expiry, or an
// unknown key id, the set is re-fetched once; concurrent callers share the
// in-flight fetch. If the fetch fails while a still-fresh set exists, that
// set is served instead. Every unrecoverable outcome is reported as
// ErrKeyUnavailable.
func (r *Resolver) Key(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	if keyID == "" {
		return nil, ErrKeyUnavailable
	}

	now := time.Now()
	if snap := r.snapshot(); snap != nil && snap.fresh(r.ttl, now) {
		if key, ok := snap.keys[keyID]; ok {
			return key, nil
		}
		// Unknown kid in a fresh set: fall through and refresh once, the
		// remote may have rotated keys since the last fetch.
	}

	snap, err := r.refresh(ctx)
	if err != nil {
		// Stale-if-available applies only within the TTL window.
		if cached := r.snapshot(); cached != nil && cached.fresh(r.ttl, time.Now()) {
			if key, ok := cached.keys[keyID]; ok {
				return key, nil
			}
		}
		return nil, errors.Join(ErrKeyUnavailable, err)
	}

	key, ok := snap.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown key id %q", ErrKeyUnavailable, keyID)
	}
	return key, nil
}

func (r *Resolver) snapshot() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// refresh fetches the remote key set, collapsing concurrent callers into a
// single outbound request.
func (r *Resolver) refresh(ctx context.Context) (*snapshot, error) {
	v, err, _ := r.group.Do("refresh", func() (any, error) {
		snap, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.current = snap
		r.mu.Unlock()

		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

func (r *Resolver) fetch(ctx context.Context) (*snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		if jwk.KeyID == "" {
			continue
		}
		key, err := jwk.publicKey()
		if err != nil {
			// Skip keys this service cannot use; the rest of the set stays usable.
			continue
		}
		keys[jwk.KeyID] = key
	}

	return &snapshot{keys: keys, fetchedAt: time.Now()}, nil
}

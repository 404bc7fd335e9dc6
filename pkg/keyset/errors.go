package keyset

import "errors"

var (
	// ErrKeyUnavailable is returned when a verification key cannot be
	// resolved: the remote fetch failed with no usable cached set, or the
	// key id is absent from a freshly fetched set.
	ErrKeyUnavailable = errors.New("keyset: verification key unavailable")

	// ErrFetchFailed wraps transport and decoding failures of the remote
	// key set fetch. Internal diagnostics only; callers match ErrKeyUnavailable.
	ErrFetchFailed = errors.New("keyset: key set fetch failed")

	// ErrMissingEndpoint is returned when a Resolver is constructed without a URL.
	ErrMissingEndpoint = errors.New("keyset: missing key set endpoint URL")
)

package guard

import (
	"errors"

	"github.com/shopkit/shopkit/pkg/identity"
)

// ErrUnauthenticated means no identity could be established. Aliased from
// the identity package so callers depend on a single error surface.
var ErrUnauthenticated = identity.ErrUnauthenticated

// ErrForbidden means an identity was established but the action is
// disallowed for it. The deny reason is wrapped behind it.
var ErrForbidden = errors.New("guard: forbidden")

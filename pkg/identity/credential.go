package identity

import (
	"net/http"
	"strings"
)

// DebugHeaderName is the fixed development-mode header carrying a
// pipe-delimited identity triple.
const DebugHeaderName = "X-Debug-Identity"

// Credential is the tagged variant of what a request presented for
// authentication. It is resolved once per request and then matched
// exhaustively; the variant, not ad-hoc conditionals, decides which
// verification path runs.
type Credential interface {
	credential()
}

// BearerToken is a token from an Authorization: Bearer header.
type BearerToken struct {
	Token string
}

// DebugHeader is the raw value of the development identity header.
type DebugHeader struct {
	Value string
}

// Absent means the request presented no credential at all.
type Absent struct{}

func (BearerToken) credential() {}
func (DebugHeader) credential() {}
func (Absent) credential()      {}

// CredentialFromRequest classifies the request's credential. A bearer token
// always wins over the debug header: sending an invalid token must not let a
// caller reach the weaker path.
func CredentialFromRequest(r *http.Request) Credential {
	return CredentialFromHeaders(r.Header.Get("Authorization"), r.Header.Get(DebugHeaderName))
}

// CredentialFromHeaders classifies raw header values; see CredentialFromRequest.
func CredentialFromHeaders(authorization, debug string) Credential {
	if token, ok := bearerToken(authorization); ok {
		return BearerToken{Token: token}
	}
	if debug != "" {
		return DebugHeader{Value: debug}
	}
	return Absent{}
}

func bearerToken(authorization string) (string, bool) {
	if authorization == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

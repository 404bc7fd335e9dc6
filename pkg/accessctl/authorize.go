package accessctl

import "github.com/shopkit/shopkit/pkg/identity"

// Reason explains why a request was denied.
type Reason string

const (
	// ReasonNone is the reason on an allowed decision.
	ReasonNone Reason = ""
	// ReasonInsufficientRole means the caller's role ranks below the
	// capability's tier, or the capability is not recognized at all.
	ReasonInsufficientRole Reason = "insufficient_role"
	// ReasonTenantMismatch means the role ranks high enough but the caller
	// belongs to a different tenant than the one targeted.
	ReasonTenantMismatch Reason = "tenant_mismatch"
)

// Decision is the outcome of one authorization check. It is computed per
// request and never stored.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Authorize decides whether the identity may exercise the capability against
// the target tenant. Each call is independent and idempotent.
//
// Rules, in order: the role must rank at least the capability's tier;
// platform admins then bypass the tenant comparison entirely; everyone else
// must target their own tenant. Browsing products with an empty target
// tenant is a cross-tenant public read and skips the tenant comparison.
func Authorize(id identity.Identity, targetTenant string, capability Capability) Decision {
	required, known := capabilityTiers[capability]
	if !known {
		return deny(ReasonInsufficientRole)
	}
	if roleTiers[id.Role] < required {
		return deny(ReasonInsufficientRole)
	}

	if id.Role == identity.RolePlatformAdmin {
		return allow()
	}
	if capability == CapabilityProductBrowse && targetTenant == "" {
		return allow()
	}
	if id.Tenant != targetTenant {
		return deny(ReasonTenantMismatch)
	}
	return allow()
}

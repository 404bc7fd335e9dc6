// Package accessctl decides whether a resolved identity may exercise a
// capability against a target tenant.
//
// Every capability carries a minimum role tier (user, tenant admin,
// platform). A decision is a single ordered check: rank the role against the
// capability's tier, then compare tenants. Platform admins skip the tenant
// comparison; product browsing without a target tenant is a public
// cross-tenant read. Denials carry a reason (insufficient role or tenant
// mismatch) so the transport layer can answer 403 with an accurate cause.
//
//	decision := accessctl.Authorize(id, "brandx", accessctl.CapabilityOrderCreate)
//	if !decision.Allowed {
//		// decision.Reason says why
//	}
package accessctl

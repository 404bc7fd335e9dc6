package identity

// Role is the coarse access tier a caller acts under.
type Role string

const (
	// RolePlatformAdmin operates across tenants: tenant lifecycle and
	// cross-tenant user management.
	RolePlatformAdmin Role = "platform_admin"
	// RoleTenantAdmin manages resources inside exactly one tenant.
	RoleTenantAdmin Role = "tenant_admin"
	// RoleUser is a regular tenant-scoped shopper.
	RoleUser Role = "user"
)

// ParseRole converts a raw role string into a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePlatformAdmin, RoleTenantAdmin, RoleUser:
		return Role(s), true
	default:
		return "", false
	}
}

// Identity is the authenticated caller of one request. It is built fresh on
// every request and never persisted or cached.
//
// Invariant: Tenant is empty only for RolePlatformAdmin; tenant-scoped roles
// always carry the tenant they belong to.
type Identity struct {
	Username string
	Role     Role
	Tenant   string
}

// valid reports whether the identity satisfies the tenant invariant.
func (id Identity) valid() bool {
	if id.Username == "" || id.Role == "" {
		return false
	}
	return id.Role == RolePlatformAdmin || id.Tenant != ""
}

// rolePrecedence is the ordered claim-to-role table: the first recognized
// entry present in a token's role list wins, so the tie-break rule stays
// auditable in one place.
var rolePrecedence = []struct {
	claim string
	role  Role
}{
	{"platform_admin", RolePlatformAdmin},
	{"tenant_admin", RoleTenantAdmin},
}

// roleFromList returns the highest-privilege recognized role in the list,
// defaulting to RoleUser.
func roleFromList(roles []string) Role {
	for _, entry := range rolePrecedence {
		for _, r := range roles {
			if r == entry.claim {
				return entry.role
			}
		}
	}
	return RoleUser
}

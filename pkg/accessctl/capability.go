package accessctl

import "github.com/shopkit/shopkit/pkg/identity"

// Capability is a named action a caller may request. Capabilities are
// hierarchical strings ("resource.action") so route tables and audit logs
// read the same way.
type Capability string

const (
	// Platform-level capabilities: tenant lifecycle and cross-tenant user
	// management.
	CapabilityTenantCreate Capability = "tenants.create"
	CapabilityTenantDelete Capability = "tenants.delete"
	CapabilityTenantList   Capability = "tenants.list"
	CapabilityUserManage   Capability = "users.manage"

	// Tenant-admin capabilities: catalog management inside one tenant.
	CapabilityProductCreate Capability = "products.create"
	CapabilityProductUpdate Capability = "products.update"
	CapabilityProductDelete Capability = "products.delete"

	// User-level capabilities: shopping inside one tenant. Browsing with no
	// target tenant is a cross-tenant public read.
	CapabilityProductBrowse   Capability = "products.browse"
	CapabilityOrderCreate     Capability = "orders.create"
	CapabilityOrderList       Capability = "orders.list"
	CapabilityFavouriteManage Capability = "favourites.manage"
)

// tier is the minimum role rank a capability demands.
type tier int

const (
	tierUser tier = iota + 1
	tierTenantAdmin
	tierPlatform
)

// capabilityTiers maps every recognized capability to its minimum tier.
// Unknown capabilities are absent on purpose so they fail closed.
var capabilityTiers = map[Capability]tier{
	CapabilityTenantCreate: tierPlatform,
	CapabilityTenantDelete: tierPlatform,
	CapabilityTenantList:   tierPlatform,
	CapabilityUserManage:   tierPlatform,

	CapabilityProductCreate: tierTenantAdmin,
	CapabilityProductUpdate: tierTenantAdmin,
	CapabilityProductDelete: tierTenantAdmin,

	CapabilityProductBrowse:   tierUser,
	CapabilityOrderCreate:     tierUser,
	CapabilityOrderList:       tierUser,
	CapabilityFavouriteManage: tierUser,
}

// roleTiers ranks roles so "at least tier X" is a single comparison.
var roleTiers = map[identity.Role]tier{
	identity.RoleUser:          tierUser,
	identity.RoleTenantAdmin:   tierTenantAdmin,
	identity.RolePlatformAdmin: tierPlatform,
}

// Package discovery probes a catalog of well-known controller API paths,
// classifies failures and caches the results with a TTL.
package discovery

import "github.com/fabricsync/fabricsync/pkg/types"

// CatalogEntry describes one well-known API path and how its probe failures
// should be interpreted.
type CatalogEntry struct {
	Path     string
	Category types.EndpointCategory

	// Federation marks paths only present when federation is configured.
	Federation bool
	// FeatureOnly marks paths tied to an optional product feature.
	FeatureOnly bool
	// ConfigDependent marks paths that return 400 until a dependent feature
	// is configured.
	ConfigDependent bool
}

// Role-detection probe paths, in strict priority order: global manager,
// local manager, standalone. First success wins; downstream catalogs are
// selected from the detected role, so this order must not change.
const (
	globalManagerProbePath = "/global-manager/api/v1/global-infra"
	localManagerProbePath  = "/policy/api/v1/infra"
	standaloneProbePath    = "/api/v1/node"
)

// managementCatalog covers the management-plane API family.
var managementCatalog = []CatalogEntry{
	{Path: "/api/v1/node", Category: types.CategoryManagement},
	{Path: "/api/v1/cluster/status", Category: types.CategoryManagement},
	{Path: "/api/v1/transport-zones", Category: types.CategoryManagement},
	{Path: "/api/v1/transport-nodes", Category: types.CategoryManagement},
	{Path: "/api/v1/edge-clusters", Category: types.CategoryManagement},
	{Path: "/api/v1/logical-switches", Category: types.CategoryManagement},
	{Path: "/api/v1/logical-routers", Category: types.CategoryManagement},
	{Path: "/api/v1/firewall/sections", Category: types.CategoryManagement},
	{Path: "/api/v1/fabric/nodes", Category: types.CategoryManagement, FeatureOnly: true},
	{Path: "/api/v1/ipam/ip-pools", Category: types.CategoryManagement, ConfigDependent: true},
}

// policyCatalog covers the declarative policy API family.
var policyCatalog = []CatalogEntry{
	{Path: "/policy/api/v1/infra", Category: types.CategoryPolicy},
	{Path: "/policy/api/v1/infra/segments", Category: types.CategoryPolicy},
	{Path: "/policy/api/v1/infra/tier-0s", Category: types.CategoryPolicy},
	{Path: "/policy/api/v1/infra/tier-1s", Category: types.CategoryPolicy},
	{Path: "/policy/api/v1/infra/domains/default/groups", Category: types.CategoryPolicy},
	{Path: "/policy/api/v1/infra/domains/default/security-policies", Category: types.CategoryPolicy},
	{Path: "/policy/api/v1/infra/ip-pools", Category: types.CategoryPolicy, ConfigDependent: true},
	{Path: "/policy/api/v1/infra/federation-config", Category: types.CategoryPolicy, Federation: true},
	{Path: "/policy/api/v1/infra/sites", Category: types.CategoryPolicy, Federation: true},
	{Path: "/policy/api/v1/infra/dhcp-server-configs", Category: types.CategoryPolicy, FeatureOnly: true},
}

// globalCatalog covers paths only a global manager exposes.
var globalCatalog = []CatalogEntry{
	{Path: "/global-manager/api/v1/global-infra", Category: types.CategoryPolicy},
	{Path: "/global-manager/api/v1/global-infra/segments", Category: types.CategoryPolicy},
	{Path: "/global-manager/api/v1/global-infra/tier-0s", Category: types.CategoryPolicy},
	{Path: "/global-manager/api/v1/global-infra/domains/default/groups", Category: types.CategoryPolicy},
}

// CatalogForRole returns the probe catalog for the detected manager role.
func CatalogForRole(role types.ManagerRole) []CatalogEntry {
	switch role {
	case types.RoleGlobalManager:
		catalog := make([]CatalogEntry, 0, len(globalCatalog)+len(policyCatalog)+len(managementCatalog))
		catalog = append(catalog, globalCatalog...)
		catalog = append(catalog, policyCatalog...)
		catalog = append(catalog, managementCatalog...)
		return catalog
	case types.RoleLocalManager:
		catalog := make([]CatalogEntry, 0, len(policyCatalog)+len(managementCatalog))
		catalog = append(catalog, policyCatalog...)
		catalog = append(catalog, managementCatalog...)
		return catalog
	default:
		catalog := make([]CatalogEntry, 0, len(managementCatalog)+len(policyCatalog))
		catalog = append(catalog, managementCatalog...)
		catalog = append(catalog, policyCatalog...)
		return catalog
	}
}

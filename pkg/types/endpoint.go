package types

import "time"

// ManagerRole is the detected controller topology.
type ManagerRole string

const (
	RoleGlobalManager ManagerRole = "global"
	RoleLocalManager  ManagerRole = "local"
	RoleStandalone    ManagerRole = "standalone"
)

// EndpointCategory groups API paths by the API family they belong to.
type EndpointCategory string

const (
	CategoryManagement EndpointCategory = "management"
	CategoryPolicy     EndpointCategory = "policy"
)

// FailureKind is the probe failure taxonomy, in classification priority order.
type FailureKind string

const (
	FailureGlobalManagerPolicyLimitation FailureKind = "global_manager_policy_api_limitation"
	FailureConnectivity                  FailureKind = "connectivity"
	FailureConfiguration                 FailureKind = "configuration"
	FailureFederation                    FailureKind = "federation"
	FailureFeature                       FailureKind = "feature"
	FailureExpectedOther                 FailureKind = "expected_other"
	FailureUnexpected                    FailureKind = "unexpected"
)

// FailureClassification explains why an endpoint probe failed and whether
// the failure is expected for this controller.
type FailureClassification struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Expected   bool        `json:"expected"`
	Warning    bool        `json:"warning,omitempty"`
	// ReviewAdvised flags benefit-of-doubt classifications for operator
	// review.
	ReviewAdvised bool   `json:"review_advised,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// EndpointRecord is the probe outcome for one API path.
type EndpointRecord struct {
	Path         string                 `json:"path"`
	Valid        bool                   `json:"valid"`
	HasData      bool                   `json:"hasData"`
	ItemCount    int                    `json:"itemCount"`
	ResponseTime time.Duration          `json:"responseTime"`
	LastTested   time.Time              `json:"lastTested"`
	Category     EndpointCategory       `json:"category"`
	Federation   bool                   `json:"federation,omitempty"`
	Failure      *FailureClassification `json:"failure,omitempty"`
}

// CacheStatistics aggregates a discovery run.
type CacheStatistics struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Valid     int `json:"valid"`
	Optimized int `json:"optimized"`
}

// CacheMetadata describes the discovery run that produced a cache record.
type CacheMetadata struct {
	Hostname      string      `json:"hostname"`
	ManagerRole   ManagerRole `json:"managerRole"`
	LastValidated time.Time   `json:"lastValidated"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	Source        string      `json:"source"`
}

// EndpointSets holds the discovered endpoints: full records plus the derived
// path lists persisted for quick lookup.
type EndpointSets struct {
	All       []EndpointRecord `json:"allEndpoints"`
	Active    []string         `json:"activeEndpoints"`
	Optimized []string         `json:"optimizedEndpoints"`
	Valid     []string         `json:"validEndpoints"`
}

// EndpointCache is the persisted capability record for one controller
// identity.
type EndpointCache struct {
	Metadata   CacheMetadata   `json:"metadata"`
	Statistics CacheStatistics `json:"statistics"`
	Endpoints  EndpointSets    `json:"endpoints"`
}

// IsValid reports cache validity as a pure function of now vs expiry.
func (c *EndpointCache) IsValid(now time.Time) bool {
	return now.Before(c.Metadata.ExpiresAt)
}

// TTLRemaining returns the remaining cache lifetime, clamped at zero.
func (c *EndpointCache) TTLRemaining(now time.Time) time.Duration {
	remaining := c.Metadata.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasValidEndpoint reports whether the given path probed successfully.
func (c *EndpointCache) HasValidEndpoint(path string) bool {
	for _, p := range c.Endpoints.Valid {
		if p == path {
			return true
		}
	}
	return false
}

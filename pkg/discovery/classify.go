package discovery

import (
	"fmt"
	"net/http"

	"github.com/fabricsync/fabricsync/pkg/types"
)

// ClassifyFailure maps a probe failure onto the failure taxonomy. Rules are
// evaluated in strict priority order; the first match wins.
func ClassifyFailure(entry CatalogEntry, role types.ManagerRole, statusCode int, callErr error) *types.FailureClassification {
	// 1. A global manager answers 500 on policy paths it cannot serve.
	if statusCode == http.StatusInternalServerError &&
		entry.Category == types.CategoryPolicy &&
		role == types.RoleGlobalManager {
		return &types.FailureClassification{
			Kind:       types.FailureGlobalManagerPolicyLimitation,
			StatusCode: statusCode,
			Expected:   true,
			Detail:     "policy API not served by global manager",
		}
	}

	// 2. Auth, transport and server failures are real connectivity problems.
	if callErr != nil {
		return &types.FailureClassification{
			Kind:     types.FailureConnectivity,
			Expected: false,
			Detail:   callErr.Error(),
		}
	}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusInternalServerError, http.StatusServiceUnavailable:
		return &types.FailureClassification{
			Kind:       types.FailureConnectivity,
			StatusCode: statusCode,
			Expected:   false,
			Detail:     fmt.Sprintf("HTTP %d", statusCode),
		}
	}

	// 3. Known configuration-dependent paths return 400 until configured.
	if statusCode == http.StatusBadRequest && entry.ConfigDependent {
		return &types.FailureClassification{
			Kind:       types.FailureConfiguration,
			StatusCode: statusCode,
			Expected:   true,
			Detail:     "endpoint requires a dependent feature to be configured",
		}
	}

	// 4. Known federation-/feature-only paths return 404 when absent.
	if statusCode == http.StatusNotFound {
		if entry.Federation {
			return &types.FailureClassification{
				Kind:       types.FailureFederation,
				StatusCode: statusCode,
				Expected:   true,
				Detail:     "federation not configured",
			}
		}
		if entry.FeatureOnly {
			return &types.FailureClassification{
				Kind:       types.FailureFeature,
				StatusCode: statusCode,
				Expected:   true,
				Detail:     "optional feature not enabled",
			}
		}
	}

	// 5. Any other 400/404 gets the benefit of the doubt, flagged for
	// operator review.
	if statusCode == http.StatusBadRequest || statusCode == http.StatusNotFound {
		return &types.FailureClassification{
			Kind:          types.FailureExpectedOther,
			StatusCode:    statusCode,
			Expected:      true,
			ReviewAdvised: true,
			Detail:        fmt.Sprintf("HTTP %d treated as expected", statusCode),
		}
	}

	// 6. Everything else warrants a warning.
	return &types.FailureClassification{
		Kind:       types.FailureUnexpected,
		StatusCode: statusCode,
		Expected:   false,
		Warning:    true,
		Detail:     fmt.Sprintf("unclassified HTTP %d", statusCode),
	}
}

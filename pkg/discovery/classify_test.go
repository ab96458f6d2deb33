package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricsync/fabricsync/pkg/types"
)

func TestGlobalManagerPolicyLimitation(t *testing.T) {
	entry := CatalogEntry{Path: "/policy/api/v1/infra/segments", Category: types.CategoryPolicy}

	failure := ClassifyFailure(entry, types.RoleGlobalManager, 500, nil)
	require.NotNil(t, failure)
	assert.Equal(t, types.FailureGlobalManagerPolicyLimitation, failure.Kind)
	assert.True(t, failure.Expected)
}

func TestServerErrorOutsideGlobalPolicyIsConnectivity(t *testing.T) {
	entry := CatalogEntry{Path: "/api/v1/node", Category: types.CategoryManagement}

	// same 500, but standalone topology: a real failure
	failure := ClassifyFailure(entry, types.RoleStandalone, 500, nil)
	assert.Equal(t, types.FailureConnectivity, failure.Kind)
	assert.False(t, failure.Expected)
}

func TestAuthAndTransportFailuresAreConnectivity(t *testing.T) {
	entry := CatalogEntry{Path: "/api/v1/node", Category: types.CategoryManagement}

	for _, status := range []int{401, 403, 503} {
		failure := ClassifyFailure(entry, types.RoleStandalone, status, nil)
		assert.Equal(t, types.FailureConnectivity, failure.Kind, "status %d", status)
		assert.False(t, failure.Expected)
	}

	failure := ClassifyFailure(entry, types.RoleStandalone, 0, errors.New("tls: handshake failure"))
	assert.Equal(t, types.FailureConnectivity, failure.Kind)
	assert.False(t, failure.Expected)
}

func TestConfigurationDependent400(t *testing.T) {
	entry := CatalogEntry{Path: "/api/v1/ipam/ip-pools", Category: types.CategoryManagement, ConfigDependent: true}

	failure := ClassifyFailure(entry, types.RoleStandalone, 400, nil)
	assert.Equal(t, types.FailureConfiguration, failure.Kind)
	assert.True(t, failure.Expected)
}

func TestFederationAndFeature404(t *testing.T) {
	fed := CatalogEntry{Path: "/policy/api/v1/infra/federation-config", Category: types.CategoryPolicy, Federation: true}
	failure := ClassifyFailure(fed, types.RoleLocalManager, 404, nil)
	assert.Equal(t, types.FailureFederation, failure.Kind)
	assert.True(t, failure.Expected)

	feat := CatalogEntry{Path: "/api/v1/fabric/nodes", Category: types.CategoryManagement, FeatureOnly: true}
	failure = ClassifyFailure(feat, types.RoleStandalone, 404, nil)
	assert.Equal(t, types.FailureFeature, failure.Kind)
	assert.True(t, failure.Expected)
}

func TestOther400And404GetBenefitOfDoubt(t *testing.T) {
	entry := CatalogEntry{Path: "/api/v1/logical-switches", Category: types.CategoryManagement}

	for _, status := range []int{400, 404} {
		failure := ClassifyFailure(entry, types.RoleStandalone, status, nil)
		assert.Equal(t, types.FailureExpectedOther, failure.Kind, "status %d", status)
		assert.True(t, failure.Expected)
		assert.True(t, failure.ReviewAdvised)
	}
}

func TestUnclassifiedStatusIsUnexpectedWarning(t *testing.T) {
	entry := CatalogEntry{Path: "/api/v1/node", Category: types.CategoryManagement}

	failure := ClassifyFailure(entry, types.RoleStandalone, 418, nil)
	assert.Equal(t, types.FailureUnexpected, failure.Kind)
	assert.False(t, failure.Expected)
	assert.True(t, failure.Warning)
}

func TestRuleOnePrecedesConnectivity(t *testing.T) {
	// rule 1 outranks the 500 connectivity rule when topology is global
	entry := CatalogEntry{Path: "/policy/api/v1/infra", Category: types.CategoryPolicy}

	global := ClassifyFailure(entry, types.RoleGlobalManager, 500, nil)
	local := ClassifyFailure(entry, types.RoleLocalManager, 500, nil)

	assert.Equal(t, types.FailureGlobalManagerPolicyLimitation, global.Kind)
	assert.Equal(t, types.FailureConnectivity, local.Kind)
}

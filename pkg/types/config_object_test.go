package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigObjectUnmarshalFlattensAttributes(t *testing.T) {
	doc := []byte(`{
		"path": "/infra/segments/web",
		"resource_type": "Segment",
		"_system_owned": false,
		"display_name": "web",
		"vlan_ids": [10, 20],
		"children": [
			{"path": "/infra/segments/web/ports/p1", "resource_type": "ChildSegmentPort", "_system_owned": true}
		]
	}`)

	var obj ConfigObject
	require.NoError(t, json.Unmarshal(doc, &obj))

	assert.Equal(t, "/infra/segments/web", obj.Path)
	assert.Equal(t, "Segment", obj.ResourceType)
	assert.False(t, obj.SystemOwned)
	assert.Equal(t, "web", obj.Attributes["display_name"])
	assert.Len(t, obj.Attributes, 2)
	require.Len(t, obj.Children, 1)
	assert.True(t, obj.Children[0].IsManagedChild())
}

func TestConfigObjectUnmarshalRequiresPath(t *testing.T) {
	var obj ConfigObject
	err := json.Unmarshal([]byte(`{"resource_type": "Segment"}`), &obj)
	assert.Error(t, err)
}

func TestConfigObjectMarshalRoundTrip(t *testing.T) {
	obj := &ConfigObject{
		Path:         "/infra/tier-1s/t1",
		ResourceType: "Tier1",
		Attributes:   map[string]interface{}{"display_name": "t1", "ha_mode": "ACTIVE_STANDBY"},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var decoded ConfigObject
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, obj.Path, decoded.Path)
	assert.Equal(t, obj.ResourceType, decoded.ResourceType)
	assert.Equal(t, obj.Attributes, decoded.Attributes)
}

func TestIsManagedChild(t *testing.T) {
	tests := []struct {
		name         string
		resourceType string
		systemOwned  bool
		want         bool
	}{
		{"marker and system owned", "ChildSegmentPort", true, true},
		{"marker but operator owned", "ChildSegmentPort", false, false},
		{"system owned without marker", "Segment", true, false},
		{"plain object", "Segment", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := &ConfigObject{ResourceType: tt.resourceType, SystemOwned: tt.systemOwned}
			assert.Equal(t, tt.want, obj.IsManagedChild())
		})
	}
}

func TestPathDepthAndParent(t *testing.T) {
	assert.Equal(t, 0, PathDepth(""))
	assert.Equal(t, 1, PathDepth("/infra"))
	assert.Equal(t, 3, PathDepth("/infra/segments/web"))

	obj := &ConfigObject{Path: "/infra/segments/web"}
	assert.Equal(t, "/infra/segments", obj.ParentPath())

	root := &ConfigObject{Path: "/infra"}
	assert.Equal(t, "", root.ParentPath())
}

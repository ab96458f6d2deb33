package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSnapshotFileJSON(t *testing.T) {
	path := writeTempFile(t, "desired.json", `{
		"objects": [
			{"path": "/infra/segments/web", "resource_type": "Segment", "display_name": "web",
			 "children": [{"path": "/infra/segments/web/ports/p1", "resource_type": "SegmentPort"}]}
		]
	}`)

	snap, err := ParseSnapshotFile(path)
	require.NoError(t, err)

	assert.Equal(t, SnapshotSourceFile, snap.Source)
	assert.Equal(t, 2, snap.ObjectCount)

	index := snap.Index()
	require.Contains(t, index, "/infra/segments/web")
	require.Contains(t, index, "/infra/segments/web/ports/p1")
}

func TestParseSnapshotFileBareArray(t *testing.T) {
	path := writeTempFile(t, "desired.json", `[
		{"path": "/infra/tier-1s/t1", "resource_type": "Tier1"}
	]`)

	snap, err := ParseSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ObjectCount)
}

func TestParseSnapshotFileYAML(t *testing.T) {
	path := writeTempFile(t, "desired.yaml", `
objects:
  - path: /infra/segments/db
    resource_type: Segment
    display_name: db
    vlan_ids: [30]
`)

	snap, err := ParseSnapshotFile(path)
	require.NoError(t, err)
	require.Len(t, snap.Objects, 1)
	assert.Equal(t, "db", snap.Objects[0].Attributes["display_name"])
}

func TestParseSnapshotFileMissingIsValidationError(t *testing.T) {
	_, err := ParseSnapshotFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestParseSnapshotFileMalformedIsValidationError(t *testing.T) {
	path := writeTempFile(t, "broken.json", `{"objects": [{]}`)
	_, err := ParseSnapshotFile(path)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

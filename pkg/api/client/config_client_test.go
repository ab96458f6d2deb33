package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricsync/fabricsync/pkg/types"
)

func newConfigTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *ConfigClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api := newTestClient(t, server, nil)
	return server, NewConfigClient(api, types.RoleStandalone)
}

func TestPullSnapshotUnwrapsChildren(t *testing.T) {
	_, cc := newConfigTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/policy/api/v1/infra", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"children": [
				{"path": "/infra/segments/web", "resource_type": "Segment",
				 "children": [{"path": "/infra/segments/web/ports/p1", "resource_type": "ChildSegmentPort", "_system_owned": true}]}
			]
		}`))
	})

	snap, err := cc.PullSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.SnapshotSourceLive, snap.Source)
	assert.Equal(t, 2, snap.ObjectCount)
}

func TestGlobalManagerUsesGlobalRoot(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"children": []}`))
	}))
	defer server.Close()

	api := newTestClient(t, server, nil)
	cc := NewConfigClient(api, types.RoleGlobalManager)

	_, err := cc.PullSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/global-manager/api/v1/global-infra", gotPath)
}

func TestGetObjectNotFound(t *testing.T) {
	_, cc := newConfigTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := cc.GetObject(context.Background(), "/infra/segments/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateObjectPostsToParentCollection(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]interface{}
	_, cc := newConfigTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})

	obj := &types.ConfigObject{
		Path:         "/infra/segments/web",
		ResourceType: "Segment",
		Attributes:   map[string]interface{}{"display_name": "web"},
	}
	require.NoError(t, cc.CreateObject(context.Background(), obj))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/policy/api/v1/infra/segments", gotPath)
	assert.Equal(t, "web", gotBody["display_name"])
}

func TestUpdateObjectPutsToOwnPath(t *testing.T) {
	var gotMethod, gotPath string
	_, cc := newConfigTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	obj := &types.ConfigObject{Path: "/infra/segments/web", ResourceType: "Segment"}
	require.NoError(t, cc.UpdateObject(context.Background(), obj))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/policy/api/v1/infra/segments/web", gotPath)
}

func TestDeleteObject(t *testing.T) {
	var gotMethod, gotPath string
	_, cc := newConfigTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, cc.DeleteObject(context.Background(), "/infra/segments/web"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/policy/api/v1/infra/segments/web", gotPath)
}

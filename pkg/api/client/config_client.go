package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fabricsync/fabricsync/pkg/types"
)

// ErrNotFound is returned when the controller reports a targeted object does
// not exist.
var ErrNotFound = errors.New("object not found")

// API prefixes and configuration roots per detected manager role.
const (
	policyAPIPrefix = "/policy/api/v1"
	globalAPIPrefix = "/global-manager/api/v1"

	policyConfigRoot = "/infra"
	globalConfigRoot = "/global-infra"
)

// ConfigClient reads and mutates the controller configuration tree through a
// role-specific API root.
type ConfigClient struct {
	api    *Client
	prefix string
	root   string
}

// NewConfigClient creates a configuration client for the detected manager
// role.
func NewConfigClient(api *Client, role types.ManagerRole) *ConfigClient {
	prefix, root := policyAPIPrefix, policyConfigRoot
	if role == types.RoleGlobalManager {
		prefix, root = globalAPIPrefix, globalConfigRoot
	}
	return &ConfigClient{api: api, prefix: prefix, root: root}
}

// configDocument is the controller's tree response shape.
type configDocument struct {
	Children []*types.ConfigObject `json:"children"`
}

// PullSnapshot reads the full configuration tree from the role-specific root
// and returns it as a live snapshot.
func (c *ConfigClient) PullSnapshot(ctx context.Context) (*types.ConfigSnapshot, error) {
	resp, err := c.api.Get(ctx, c.prefix+c.root)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to pull configuration from %s: HTTP %d", c.root, resp.StatusCode)
	}

	var doc configDocument
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, fmt.Errorf("invalid configuration document: %w", err)
	}
	return types.NewConfigSnapshot(types.SnapshotSourceLive, doc.Children), nil
}

// GetObject reads one configuration object by hierarchical path. Returns
// ErrNotFound when the controller reports 404.
func (c *ConfigClient) GetObject(ctx context.Context, path string) (*types.ConfigObject, error) {
	resp, err := c.api.Get(ctx, c.prefix+path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to read %s: HTTP %d", path, resp.StatusCode)
	}

	var obj types.ConfigObject
	if err := json.Unmarshal(resp.Body, &obj); err != nil {
		return nil, fmt.Errorf("invalid object document for %s: %w", path, err)
	}
	return &obj, nil
}

// CreateObject creates an object by POSTing it to its parent collection.
func (c *ConfigClient) CreateObject(ctx context.Context, obj *types.ConfigObject) error {
	parent := obj.ParentPath()
	if parent == "" {
		parent = c.root
	}
	resp, err := c.api.Post(ctx, c.prefix+parent, obj)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("create %s failed: HTTP %d", obj.Path, resp.StatusCode)
	}
	return nil
}

// UpdateObject replaces an object by PUTting it to its own path.
func (c *ConfigClient) UpdateObject(ctx context.Context, obj *types.ConfigObject) error {
	resp, err := c.api.Put(ctx, c.prefix+obj.Path, obj)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("update %s failed: HTTP %d", obj.Path, resp.StatusCode)
	}
	return nil
}

// DeleteObject removes the object at path.
func (c *ConfigClient) DeleteObject(ctx context.Context, path string) error {
	resp, err := c.api.Delete(ctx, c.prefix+path)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete %s failed: HTTP %d", path, resp.StatusCode)
	}
	return nil
}

// Package types defines the core data model shared by fabricsync components.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ManagedChildMarker is the resource-type prefix the controller uses for
// children it creates and owns implicitly. Objects carrying this marker with
// the system-owned flag set are never diffed or deleted.
const ManagedChildMarker = "Child"

// ConfigObject is one node of a controller configuration tree. The
// hierarchical path is the unique key.
type ConfigObject struct {
	Path         string
	ResourceType string
	SystemOwned  bool
	Attributes   map[string]interface{}
	Children     []*ConfigObject
}

// IsManagedChild reports whether the object is a controller-managed child:
// its resource type carries the reserved marker and it is system-owned.
func (o *ConfigObject) IsManagedChild() bool {
	return strings.HasPrefix(o.ResourceType, ManagedChildMarker) && o.SystemOwned
}

// Depth returns the number of path segments, used for parent-before-child
// ordering during apply.
func (o *ConfigObject) Depth() int {
	return PathDepth(o.Path)
}

// ParentPath returns the path of the object's parent, or "" for a root.
func (o *ConfigObject) ParentPath() string {
	trimmed := strings.TrimSuffix(o.Path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return ""
	}
	return trimmed[:idx]
}

// PathDepth returns the number of segments in a hierarchical path.
func PathDepth(path string) int {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

// Reserved wire-format keys. Every other key in an object document is an
// attribute.
const (
	keyPath         = "path"
	keyResourceType = "resource_type"
	keySystemOwned  = "_system_owned"
	keyChildren     = "children"
)

// UnmarshalJSON decodes the controller wire format: path, resource_type,
// _system_owned and children are structural, all remaining keys land in
// Attributes.
func (o *ConfigObject) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.Attributes = make(map[string]interface{})
	for key, value := range raw {
		switch key {
		case keyPath:
			if err := json.Unmarshal(value, &o.Path); err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}
		case keyResourceType:
			if err := json.Unmarshal(value, &o.ResourceType); err != nil {
				return fmt.Errorf("invalid resource_type: %w", err)
			}
		case keySystemOwned:
			if err := json.Unmarshal(value, &o.SystemOwned); err != nil {
				return fmt.Errorf("invalid %s: %w", keySystemOwned, err)
			}
		case keyChildren:
			if err := json.Unmarshal(value, &o.Children); err != nil {
				return fmt.Errorf("invalid children: %w", err)
			}
		default:
			var attr interface{}
			if err := json.Unmarshal(value, &attr); err != nil {
				return fmt.Errorf("invalid attribute %q: %w", key, err)
			}
			o.Attributes[key] = attr
		}
	}

	if o.Path == "" {
		return fmt.Errorf("configuration object missing path")
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON: attributes are flattened back
// alongside the structural keys.
func (o *ConfigObject) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(o.Attributes)+4)
	for key, value := range o.Attributes {
		doc[key] = value
	}
	doc[keyPath] = o.Path
	doc[keyResourceType] = o.ResourceType
	if o.SystemOwned {
		doc[keySystemOwned] = true
	}
	if len(o.Children) > 0 {
		doc[keyChildren] = o.Children
	}
	return json.Marshal(doc)
}

package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SnapshotSource identifies where a configuration snapshot came from.
type SnapshotSource string

const (
	// SnapshotSourceLive marks a snapshot pulled from the controller.
	SnapshotSourceLive SnapshotSource = "live"
	// SnapshotSourceFile marks a snapshot parsed from a desired-state document.
	SnapshotSourceFile SnapshotSource = "file"
)

// ConfigSnapshot is an ordered collection of configuration objects captured
// at one instant. Snapshots are created per run and discarded afterwards.
type ConfigSnapshot struct {
	Source      SnapshotSource  `json:"source"`
	CapturedAt  time.Time       `json:"captured_at"`
	Objects     []*ConfigObject `json:"objects"`
	ObjectCount int             `json:"object_count"`
}

// NewConfigSnapshot builds a snapshot over the given object trees. The object
// count includes nested children.
func NewConfigSnapshot(source SnapshotSource, objects []*ConfigObject) *ConfigSnapshot {
	snap := &ConfigSnapshot{
		Source:     source,
		CapturedAt: time.Now().UTC(),
		Objects:    objects,
	}
	snap.ObjectCount = len(snap.Index())
	return snap
}

// Index flattens the object trees into a map keyed by hierarchical path.
func (s *ConfigSnapshot) Index() map[string]*ConfigObject {
	index := make(map[string]*ConfigObject)
	var walk func(objs []*ConfigObject)
	walk = func(objs []*ConfigObject) {
		for _, obj := range objs {
			index[obj.Path] = obj
			walk(obj.Children)
		}
	}
	walk(s.Objects)
	return index
}

// snapshotDocument is the accepted desired-state file shape. A bare array of
// objects is also accepted.
type snapshotDocument struct {
	Objects []*ConfigObject `json:"objects"`
}

// ParseSnapshotFile reads a desired-state document (JSON or YAML) into a
// snapshot. Malformed or missing files yield a ValidationError.
func ParseSnapshotFile(path string) (*ConfigSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("cannot read desired-state file %s: %v", path, err))
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("invalid YAML in %s: %v", path, err))
		}
	}

	objects, err := parseSnapshotDocument(data)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid desired-state document %s: %v", path, err))
	}
	return NewConfigSnapshot(SnapshotSourceFile, objects), nil
}

func parseSnapshotDocument(data []byte) ([]*ConfigObject, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var objects []*ConfigObject
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, err
		}
		return objects, nil
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Objects == nil {
		return nil, fmt.Errorf("document has no objects array")
	}
	return doc.Objects, nil
}

// yamlToJSON re-encodes a YAML document as JSON so the ConfigObject wire
// decoding applies to both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

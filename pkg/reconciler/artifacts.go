package reconciler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fabricsync/fabricsync/pkg/apply"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// Artifacts lists the files a run wrote for audit and rollback reference.
type Artifacts struct {
	Baseline           string `json:"baseline,omitempty"`
	Delta              string `json:"delta,omitempty"`
	VerificationReport string `json:"verification_report,omitempty"`
}

// WriteDiffArtifacts persists the filtered pre-change baseline and the delta
// document as separate files under the output directory, named by operation
// id so repeated runs never overwrite each other.
func WriteDiffArtifacts(outputDir, operationID string, baseline *types.ConfigSnapshot, delta *types.DeltaSet) (Artifacts, error) {
	artifacts := Artifacts{}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return artifacts, fmt.Errorf("failed to create output dir: %w", err)
	}

	baselinePath := filepath.Join(outputDir, fmt.Sprintf("baseline_%s.json", operationID))
	if err := writeJSON(baselinePath, baseline); err != nil {
		return artifacts, err
	}
	artifacts.Baseline = baselinePath

	deltaPath := filepath.Join(outputDir, fmt.Sprintf("delta_%s.json", operationID))
	if err := writeJSON(deltaPath, delta); err != nil {
		return artifacts, err
	}
	artifacts.Delta = deltaPath

	return artifacts, nil
}

// WriteVerificationReport persists the verification report and returns its
// path.
func WriteVerificationReport(outputDir, operationID string, report *apply.VerificationReport) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("verification_%s.json", operationID))
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

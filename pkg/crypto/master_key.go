package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MasterKeyEnvVar is the environment variable holding a base64-encoded
// 32-byte master key. It takes precedence over the key file.
const MasterKeyEnvVar = "FABRICSYNC_MASTER_KEY"

// LoadOrGenerateMasterKey returns the 32-byte key protecting the credential
// store. Resolution order: MasterKeyEnvVar, then the key file under dataDir
// (generated with 0600 permissions on first use).
func LoadOrGenerateMasterKey(dataDir string) ([]byte, error) {
	if val := os.Getenv(MasterKeyEnvVar); val != "" {
		key, err := decodeKey(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", MasterKeyEnvVar, err)
		}
		return key, nil
	}

	path := filepath.Join(dataDir, "master.key")
	encoded, err := os.ReadFile(path)
	if err == nil {
		key, err := decodeKey(strings.TrimSpace(string(encoded)))
		if err != nil {
			return nil, fmt.Errorf("invalid master key file %s: %w", path, err)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}
	return generateAndPersistKey(path)
}

func generateAndPersistKey(path string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create master key dir: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write master key file: %w", err)
	}
	return key, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length: got %d, want 32", len(key))
	}
	return key, nil
}

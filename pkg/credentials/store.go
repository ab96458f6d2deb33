// Package credentials provides the opaque credential store keyed by
// controller identity. Records are encrypted at rest with AES-256-GCM.
package credentials

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/fabricsync/fabricsync/pkg/crypto"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/store"
	"github.com/fabricsync/fabricsync/pkg/store/repos"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// encryptedRecord is the persisted shape: ciphertext bound to the controller
// identity via AEAD associated data.
type encryptedRecord struct {
	Controller string `json:"controller"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store holds controller credentials encrypted in the local state store.
type Store struct {
	cipher *crypto.AEADCipher
	repo   *repos.BaseRepo[encryptedRecord]
	logger log.Logger
}

// NewStore creates a credential store over the given state store and master
// key.
func NewStore(core store.Store, masterKey []byte, logger log.Logger) (*Store, error) {
	cipher, err := crypto.NewAEADCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential cipher: %w", err)
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Store{
		cipher: cipher,
		repo:   repos.NewBaseRepo[encryptedRecord](core, store.BucketCredentials),
		logger: logger.WithComponent("credential-store"),
	}, nil
}

// ControllerKey normalizes a controller address into the store key: the bare
// hostname, lowercased.
func ControllerKey(controller string) string {
	addr := controller
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	if u, err := url.Parse(addr); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(controller)
}

// Get returns the stored credential for a controller, or nil when absent.
func (s *Store) Get(controller string) (*types.Credential, error) {
	key := ControllerKey(controller)
	record, err := s.repo.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential for %s: %w", key, err)
	}
	if record == nil {
		return nil, nil
	}

	plaintext, err := s.cipher.Decrypt(record.Ciphertext, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential for %s: %w", key, err)
	}

	var cred types.Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, fmt.Errorf("corrupt credential record for %s: %w", key, err)
	}
	return &cred, nil
}

// Save encrypts and persists a credential for a controller.
func (s *Store) Save(controller string, cred *types.Credential) error {
	key := ControllerKey(controller)
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	ciphertext, err := s.cipher.Encrypt(plaintext, []byte(key))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	if err := s.repo.Put(key, &encryptedRecord{Controller: key, Ciphertext: ciphertext}); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	s.logger.Debug("Credential saved", log.Str("controller", key), log.Str("scheme", string(cred.Scheme)))
	return nil
}

// Remove deletes the stored credential for a controller.
func (s *Store) Remove(controller string) error {
	return s.repo.Delete(ControllerKey(controller))
}

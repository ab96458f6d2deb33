// Package authretry implements the bounded, lockout-safe authentication
// recovery state machine wrapping every outbound controller call.
package authretry

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// DefaultMaxRetries bounds consecutive auth retries per target URL before
// lockout protection engages.
const DefaultMaxRetries = 2

// authFailureKeywords mark error messages that indicate an authentication
// problem even without an HTTP status.
var authFailureKeywords = []string{
	"authentication",
	"unauthorized",
	"forbidden",
	"credential",
	"invalid username",
	"invalid password",
	"lockout",
	"locked",
	"access denied",
}

// CredentialSource is the external credential store collaborator.
type CredentialSource interface {
	Get(controller string) (*types.Credential, error)
	Save(controller string, cred *types.Credential) error
}

// StateStore mirrors retry state outside process memory so rapid successive
// invocations stay lockout-safe. Implementations may be nil-free no-ops.
type StateStore interface {
	Load(target string) (*types.AuthRetryState, error)
	Save(state *types.AuthRetryState) error
	Clear(target string) error
}

// Decision is the manager's verdict after an auth failure.
type Decision struct {
	// Retry allows exactly one retry of the original call.
	Retry bool
	// LockedOut means the retry budget is exhausted; no network attempt may
	// be issued.
	LockedOut bool
	// Credential to use for the retry, when one could be obtained.
	Credential *types.Credential
	// Scheme inferred from the failure response.
	Scheme types.AuthScheme
	// Reason is a human-readable explanation for logging and errors.
	Reason string
}

// Options configures a Manager.
type Options struct {
	MaxRetries  int
	Credentials CredentialSource
	States      StateStore
	Logger      log.Logger
}

// Manager tracks auth retry state per target URL. Access per key is
// single-writer: all state transitions happen under the manager mutex.
type Manager struct {
	mu     sync.Mutex
	states map[string]*types.AuthRetryState

	maxRetries int
	creds      CredentialSource
	stateStore StateStore
	logger     log.Logger
}

// NewManager creates an authentication recovery manager.
func NewManager(opts Options) *Manager {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Manager{
		states:     make(map[string]*types.AuthRetryState),
		maxRetries: maxRetries,
		creds:      opts.Credentials,
		stateStore: opts.States,
		logger:     logger.WithComponent("auth-recovery"),
	}
}

// IsAuthFailure reports whether a status code or error indicates an
// authentication failure.
func (m *Manager) IsAuthFailure(statusCode int, err error) bool {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range authFailureKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// state returns the tracked state for target, loading any persisted mirror on
// first access. Caller must hold m.mu.
func (m *Manager) state(target string) *types.AuthRetryState {
	if s, ok := m.states[target]; ok {
		return s
	}
	s := &types.AuthRetryState{Target: target}
	if m.stateStore != nil {
		if persisted, err := m.stateStore.Load(target); err == nil && persisted != nil {
			s = persisted
		}
	}
	m.states[target] = s
	return s
}

func (m *Manager) persist(s *types.AuthRetryState) {
	if m.stateStore == nil {
		return
	}
	if err := m.stateStore.Save(s); err != nil {
		m.logger.Warn("Failed to persist auth retry state",
			log.Str("target", s.Target), log.Err(err))
	}
}

// HandleFailure processes a detected auth failure for target. When the retry
// budget is exhausted it returns a lockout decision without any network
// attempt; otherwise it increments the counter, infers the expected scheme
// and obtains a credential for one retry.
func (m *Manager) HandleFailure(ctx context.Context, target string, statusCode int, header http.Header, callErr error) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state(target)

	if s.RetryCount >= m.maxRetries {
		s.LockedOut = true
		m.persist(s)
		m.logger.Warn("Lockout protection engaged, refusing further auth attempts",
			log.Str("target", target), log.Int("retries", s.RetryCount))
		return Decision{
			LockedOut: true,
			Reason:    "maximum authentication retries reached, refusing to risk account lockout",
		}
	}

	s.RetryCount++
	s.LastAttempt = time.Now()

	scheme := InferScheme(statusCode, header, callErr, target)
	s.Scheme = scheme
	m.persist(s)

	m.logger.Info("Authentication failure detected, preparing retry",
		log.Str("target", target),
		log.Int("attempt", s.RetryCount),
		log.Int("max_retries", m.maxRetries),
		log.Str("scheme", string(scheme)))

	decision := Decision{Retry: true, Scheme: scheme, Reason: "retrying with refreshed credential"}
	if m.creds != nil {
		cred, err := m.creds.Get(target)
		if err != nil {
			m.logger.Warn("Credential store lookup failed", log.Str("target", target), log.Err(err))
		} else if cred != nil {
			if cred.Scheme == "" {
				cred.Scheme = scheme
			}
			decision.Credential = cred
		}
	}
	return decision
}

// ResetRetryAttempts clears the retry counter for target, e.g. after a
// confirmed success.
func (m *Manager) ResetRetryAttempts(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, target)
	if m.stateStore != nil {
		if err := m.stateStore.Clear(target); err != nil {
			m.logger.Warn("Failed to clear persisted retry state",
				log.Str("target", target), log.Err(err))
		}
	}
}

// RetryCount returns the current retry count for target.
func (m *Manager) RetryCount(target string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state(target).RetryCount
}

// PersistWorkingCredential saves a credential that recovered a session back
// to the credential store for reuse.
func (m *Manager) PersistWorkingCredential(target string, cred *types.Credential, scheme types.AuthScheme) {
	if m.creds == nil || cred == nil {
		return
	}
	cred.Scheme = scheme
	if err := m.creds.Save(target, cred); err != nil {
		m.logger.Warn("Failed to persist working credential",
			log.Str("target", target), log.Err(err))
		return
	}
	m.logger.Debug("Working credential persisted",
		log.Str("target", target), log.Str("scheme", string(scheme)))
}

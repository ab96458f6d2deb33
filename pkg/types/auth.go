package types

import "time"

// AuthScheme is the authentication scheme a controller expects.
type AuthScheme string

const (
	SchemeBasic  AuthScheme = "basic"
	SchemeBearer AuthScheme = "bearer"
	SchemeAPIKey AuthScheme = "apikey"
)

// Credential is an opaque controller credential held by the credential store.
type Credential struct {
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
	Token    string     `json:"token,omitempty"`
	APIKey   string     `json:"api_key,omitempty"`
	Scheme   AuthScheme `json:"scheme,omitempty"`
}

// AuthRetryState tracks bounded authentication retries for one target URL.
// The retry count never exceeds the configured maximum before lockout
// protection engages.
type AuthRetryState struct {
	Target      string     `json:"target"`
	RetryCount  int        `json:"retry_count"`
	LastAttempt time.Time  `json:"last_attempt"`
	LockedOut   bool       `json:"locked_out"`
	Scheme      AuthScheme `json:"scheme,omitempty"`
}

// OperationResult is the per-object outcome of an apply call and its
// verification.
type OperationResult struct {
	Path     string  `json:"path"`
	Op       DeltaOp `json:"op"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
	Verified bool    `json:"verified,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

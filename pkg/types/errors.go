package types

import (
	"errors"
	"fmt"
)

// ValidationError represents a malformed input or missing required
// parameter. It is fatal and surfaced immediately.
type ValidationError struct {
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConnectivityError represents a network, TLS or timeout failure reaching the
// controller. It is fatal and aborts before any mutation.
type ConnectivityError struct {
	Endpoint string
	Cause    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity failure on %s: %v", e.Endpoint, e.Cause)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// IsConnectivityError checks if an error is a ConnectivityError.
func IsConnectivityError(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// AuthenticationError represents an auth failure on an outbound call. It is
// routed through the retry state machine; bounded retries then fatal.
type AuthenticationError struct {
	Target     string
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed for %s (HTTP %d): %s", e.Target, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authentication failed for %s: %s", e.Target, e.Message)
}

// IsAuthenticationError checks if an error is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// ConfigurationDependentError represents a 400/404 on a known optional
// feature. It is expected, logged informationally and never fails the run.
type ConfigurationDependentError struct {
	Endpoint   string
	StatusCode int
}

func (e *ConfigurationDependentError) Error() string {
	return fmt.Sprintf("endpoint %s unavailable in this configuration (HTTP %d)", e.Endpoint, e.StatusCode)
}

// IsConfigurationDependentError checks if an error is a
// ConfigurationDependentError.
func IsConfigurationDependentError(err error) bool {
	var ce *ConfigurationDependentError
	return errors.As(err, &ce)
}

// VerificationError represents a non-100% verification success rate. It is
// always surfaced, never swallowed.
type VerificationError struct {
	Expected int
	Verified int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification confirmed %d of %d applied objects", e.Verified, e.Expected)
}

// IsVerificationError checks if an error is a VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

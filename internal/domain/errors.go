package domain

import (
	"errors"
	"fmt"
)

// CredentialErrorKind classifies credential resolution failures.
type CredentialErrorKind string

const (
	CredentialProfileNotFound    CredentialErrorKind = "profile_not_found"
	CredentialAssumeRoleDenied   CredentialErrorKind = "assume_role_denied"
	CredentialAssumeRoleThrottle CredentialErrorKind = "assume_role_throttled"
)

func (k CredentialErrorKind) Valid() bool {
	switch k {
	case CredentialProfileNotFound, CredentialAssumeRoleDenied, CredentialAssumeRoleThrottle:
		return true
	}
	return false
}

// Retryable reports whether the failure is transient.
func (k CredentialErrorKind) Retryable() bool {
	return k == CredentialAssumeRoleThrottle
}

// CredentialError is a failure to resolve credentials for one account.
type CredentialError struct {
	Kind       CredentialErrorKind
	AccountRef string
	Err        error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials for %s: %s: %v", e.AccountRef, e.Kind, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// ProviderErrorKind classifies billing backend failures.
type ProviderErrorKind string

const (
	ProviderThrottled    ProviderErrorKind = "throttled"
	ProviderAccessDenied ProviderErrorKind = "access_denied"
	ProviderUnavailable  ProviderErrorKind = "unavailable"
	ProviderMalformed    ProviderErrorKind = "malformed"
)

func (k ProviderErrorKind) Valid() bool {
	switch k {
	case ProviderThrottled, ProviderAccessDenied, ProviderUnavailable, ProviderMalformed:
		return true
	}
	return false
}

// Retryable reports whether the failure is transient.
func (k ProviderErrorKind) Retryable() bool {
	return k == ProviderThrottled || k == ProviderUnavailable
}

// ProviderError is a failure reported by a cost provider call.
type ProviderError struct {
	Kind ProviderErrorKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrorKind extracts the stable kind label from a contained account error.
// Unknown errors map to "error".
func ErrorKind(err error) string {
	var ce *CredentialError
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "error"
}

// RetryableError reports whether err is a transient credential or
// provider failure worth retrying.
func RetryableError(err error) bool {
	var ce *CredentialError
	if errors.As(err, &ce) {
		return ce.Kind.Retryable()
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind.Retryable()
	}
	return false
}

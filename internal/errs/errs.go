// Package errs defines the error taxonomy used throughout the secret
// access core: ValidationError for caller-supplied data that violates an
// invariant, ConfigurationError for registration/build-time misuse, and
// AccessError for failures to fetch from a backing store. Modeled on the
// teacher's internal/errors package (UserError/ConfigError/CommandError),
// narrowed to the three kinds this spec's error taxonomy (§7) names.
package errs

import (
	"fmt"

	"github.com/systmms/secretaccess/pkg/provider"
)

// ValidationError is raised synchronously by constructors and setters when
// caller-supplied data violates an invariant (null, empty, wrong payload
// shape for a credential method). It is never swallowed.
//
// It is a type alias for provider.ValidationError rather than a distinct
// type: pkg/provider's own constructors (NewSecretReference,
// NewCyberArkApiKeyCredential, NewIamRoleCredential, ...) raise the same
// type directly, so a caller anywhere in the core can match either
// source with one errors.As(err, &errs.ValidationError{}).
type ValidationError = provider.ValidationError

// NewValidation builds a ValidationError.
func NewValidation(field, message string) error {
	return provider.NewValidationError(field, message)
}

// ConfigurationError is raised synchronously for registration or
// build-time misuse: a duplicate registration name, a missing cache, or
// no Provider supporting a reference's store type.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: field %q: %s", e.Field, e.Message)
	}
	return "configuration error: " + e.Message
}

// NewConfiguration builds a ConfigurationError.
func NewConfiguration(field, message string) error {
	return ConfigurationError{Field: field, Message: message}
}

// AccessError indicates a failure to fetch a secret from a backing store:
// network failure, auth denial, "not found", "access denied", or a
// transient I/O error. It carries the offending reference and an optional
// cause. The Resolver Aggregate never retries on AccessError; retry and
// back-off are the Provider's or the Refresh Policy's concern.
type AccessError struct {
	Reference provider.SecretReference
	Message   string
	Cause     error
}

func (e AccessError) Error() string {
	msg := fmt.Sprintf("access error for %s", e.Reference)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e AccessError) Unwrap() error {
	return e.Cause
}

// NewAccess builds an AccessError.
func NewAccess(reference provider.SecretReference, message string, cause error) error {
	return AccessError{Reference: reference, Message: message, Cause: cause}
}

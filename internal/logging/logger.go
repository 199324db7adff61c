// Package logging provides structured logging with redaction support.
// The Logger is the diagnostic sink background workers (Refresh Policy
// ticks, Refresh Coordinator sweeps, swallowed AccessErrors, Event Bus
// handler panics) report through; it is never on the critical path of a
// successful resolve. Its domain-specific methods format
// provider.SecretReference and provider.AccessCredential values the way
// those types already render themselves — via their own redacting
// String() methods — so a call site can never bypass that redaction by
// logging a credential through a raw %v/%+v verb.
package logging

import (
	"fmt"
	"os"

	"github.com/systmms/secretaccess/pkg/provider"
)

// Logger provides structured logging with redaction support.
type Logger struct {
	debug   bool
	noColor bool
}

// New creates a new logger instance.
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[32m✓\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "✓ %s\n", msg)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[33m⚠\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", msg)
	}
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
	}
}

// Debug logs a debug message if debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(os.Stderr, "\033[36m[DEBUG]\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", msg)
	}
}

// RefreshFailed logs a swallowed refresh failure for ref at warn level.
// Used by the Refresh Coordinator and both Refresh Policy
// implementations (polling and event-driven) at their one shared failure
// shape: a Provider fetch that errored during a background refresh,
// which is never raised to a caller blocked on Get.
func (l *Logger) RefreshFailed(source string, ref provider.SecretReference, err error) {
	l.Warn("%s: refresh failed for %s: %v", source, ref, err)
}

// CredentialRegistered logs, at debug level, that credential was bound
// to ref. It relies entirely on AccessCredential's own String() for
// redaction — CyberArkApiKey payloads and STSAssumeRoleConfig external
// IDs render as "[REDACTED]" there, so this method never needs its own
// scrubbing logic.
func (l *Logger) CredentialRegistered(ref provider.SecretReference, credential provider.AccessCredential) {
	l.Debug("registered %s for %s", credential, ref)
}

// EventHandlerPanic logs, at error level, that a caller-supplied Event
// Bus handler panicked while processing event. recovered is whatever
// value the panic carried; events never carry secret material (see
// eventbus.Event), so no redaction is needed here.
func (l *Logger) EventHandlerPanic(event interface{}, recovered interface{}) {
	l.Error("event handler panic for %T: %v", event, recovered)
}

// Redacted is a value that always renders as "[REDACTED]" in any string
// form, for passing secret-shaped values through fmt-style logging calls
// without risking accidental disclosure. Domain types that carry secret
// material (provider.AccessCredential, provider.Secret) implement their
// own redacting String() instead of using Redacted directly; it remains
// available for call sites that only have a bare string before it is
// wrapped into one of those types.
type Redacted string

// String implements the Stringer interface, always returning a redacted value.
func (r Redacted) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting.
func (r Redacted) GoString() string {
	return "[REDACTED]"
}

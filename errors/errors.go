// Package errors provides the exporter's error taxonomy. Every failure that can
// reach the scrape orchestrator is reduced to one Kind, which becomes the
// error_type label of the scrape error counter.
package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind identifies what went wrong talking to a remote source
type Kind int

const (
	// KindRemote is a non-success response or a failed query. It is the default for unknown errors.
	KindRemote Kind = iota
	// KindTimeout is a call that exceeded its deadline
	KindTimeout
	// KindConnection is a source that could not be reached
	KindConnection
	// KindAuth is a source that rejected the configured credentials
	KindAuth
	// KindRegistryConflict is a metric declared twice with different labels. Startup only.
	KindRegistryConflict
)

// String returns the label value used for the Kind
func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote_error"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection_error"
	case KindAuth:
		return "auth_error"
	case KindRegistryConflict:
		return "registry_conflict"
	default:
		return "unknown"
	}
}

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors; the next scrape may succeed
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop the process
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Class maps a Kind onto its handling class
func (k Kind) Class() ErrorClass {
	switch k {
	case KindAuth:
		return ErrorInvalid
	case KindRegistryConflict:
		return ErrorFatal
	default:
		return ErrorTransient
	}
}

// Standard error variables for common conditions
var (
	// Remote source errors
	ErrUnauthorized     = errors.New("credentials rejected")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedBody    = errors.New("malformed response body")
	ErrNotConfigured    = errors.New("source not configured")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Registry errors
	ErrRegistryConflict = errors.New("metric registry conflict")

	// Scrape errors
	ErrCollectorPanic = errors.New("collector panicked")
)

// ClassifiedError wraps an error with its Kind
type ClassifiedError struct {
	Kind      Kind
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Class returns the handling class derived from the Kind
func (ce *ClassifiedError) Class() ErrorClass {
	return ce.Kind.Class()
}

// KindOf reports the Kind of err. Explicitly classified errors win; otherwise
// the chain is inspected for context, network and driver errors. Anything
// unrecognised is a remote error.
func KindOf(err error) Kind {
	if err == nil {
		return KindRemote
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	switch {
	case errors.Is(err, ErrRegistryConflict):
		return KindRegistryConflict
	case errors.Is(err, ErrUnauthorized):
		return KindAuth
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if isConnectionFailure(err) {
		return KindConnection
	}

	return KindRemote
}

// isConnectionFailure reports dial and transport level failures
func isConnectionFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "no such host", "database is closed", "failed to connect"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// IsTransient checks if an error may clear up on its own
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Class() == ErrorTransient
}

// IsFatal checks if an error should stop the process
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Class() == ErrorFatal
}

// IsInvalid checks if an error is due to invalid credentials or configuration
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig) {
		return true
	}
	return KindOf(err).Class() == ErrorInvalid
}

// newClassified creates a new classified error
// This is an internal helper - use the WrapX functions instead.
func newClassified(kind Kind, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:      kind,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapKind wraps an error with context and an explicit Kind
func WrapKind(kind Kind, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(kind, wrappedErr, component, method, wrappedErr.Error())
}

// WrapClassified wraps an error with context, deriving the Kind from the error itself
func WrapClassified(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return WrapKind(KindOf(err), err, component, method, action)
}

// WrapTimeout wraps an error as a timeout
func WrapTimeout(err error, component, method, action string) error {
	return WrapKind(KindTimeout, err, component, method, action)
}

// WrapConnection wraps an error as an unreachable source
func WrapConnection(err error, component, method, action string) error {
	return WrapKind(KindConnection, err, component, method, action)
}

// WrapAuth wraps an error as rejected credentials
func WrapAuth(err error, component, method, action string) error {
	return WrapKind(KindAuth, err, component, method, action)
}

// WrapRemote wraps an error as a failed remote call
func WrapRemote(err error, component, method, action string) error {
	return WrapKind(KindRemote, err, component, method, action)
}

// WrapFatal wraps an error as a registry conflict, the only fatal kind
func WrapFatal(err error, component, method, action string) error {
	return WrapKind(KindRegistryConflict, err, component, method, action)
}

// WrapInvalid wraps a configuration error so that IsInvalid reports it
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return Wrap(fmt.Errorf("%w: %w", ErrInvalidConfig, err), component, method, action)
}

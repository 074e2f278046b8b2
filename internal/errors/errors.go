// Package errors provides the coded error type shared by the remote gateway,
// the certificate manager and the stores.
//
// Every failure that leaves this module's core is an *OpError. The Code field
// is the discriminator callers switch on; Output carries whatever the remote
// command printed so operators can diagnose a failure without re-running it.
//
// # Error Codes
//
//	NO_SERVER           domain has no server, no remote call was made
//	TRANSPORT           ssh could not start or the connection failed
//	TIMEOUT             the remote command exceeded its deadline and was killed
//	REMOTE_COMMAND      the command ran and exited non-zero
//	CREDENTIAL_STAGING  private key material could not be validated or staged
//	NOT_FOUND           domain record does not exist
//	VALIDATION          bad input (host target, domain name)
//	CONFIG              configuration is invalid
//	STORE               persisting or loading domain state failed
//	INTERNAL            anything else
//
// # Error Checking
//
// Sentinels compare by code, so errors.Is works on any OpError in a chain:
//
//	if errors.Is(err, errors.ErrTimedOut) {
//	    // retry later
//	}
//
//	var opErr *errors.OpError
//	if errors.As(err, &opErr) {
//	    fmt.Println(opErr.Code, opErr.Output)
//	}
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors for programmatic handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeNoServer      ErrorCode = "NO_SERVER"
	ErrCodeTransport     ErrorCode = "TRANSPORT"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeRemoteCommand ErrorCode = "REMOTE_COMMAND"
	ErrCodeCredential    ErrorCode = "CREDENTIAL_STAGING"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeValidation    ErrorCode = "VALIDATION"
	ErrCodeConfig        ErrorCode = "CONFIG"
	ErrCodeStore         ErrorCode = "STORE"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// OpError is a structured error with context about the failed operation.
type OpError struct {
	Code    ErrorCode // Error category
	Message string    // Human-readable message
	Domain  string    // Domain name (if applicable)
	Output  string    // Captured remote stdout/stderr (if any)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface. Output is deliberately left out; it
// can be megabytes long and is exposed through the Output field instead.
func (e *OpError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Domain != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Domain, msg, e.Err)
	}
	if e.Domain != "" {
		return fmt.Sprintf("%s: %s", e.Domain, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain traversal.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
// Comparison is based on error code.
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors, one per code. Use these with errors.Is().
var (
	// ErrNoServerAssociated indicates the domain has no server to run on.
	ErrNoServerAssociated = &OpError{Code: ErrCodeNoServer, Message: "domain has no associated server"}

	// ErrTransportFailure indicates ssh could not start or connect.
	ErrTransportFailure = &OpError{Code: ErrCodeTransport, Message: "transport failure"}

	// ErrTimedOut indicates the remote command was killed at its deadline.
	ErrTimedOut = &OpError{Code: ErrCodeTimeout, Message: "remote command timed out"}

	// ErrRemoteCommandFailed indicates the remote command exited non-zero.
	ErrRemoteCommandFailed = &OpError{Code: ErrCodeRemoteCommand, Message: "remote command failed"}

	// ErrCredentialStaging indicates key material could not be staged.
	ErrCredentialStaging = &OpError{Code: ErrCodeCredential, Message: "credential staging failed"}

	// ErrDomainNotFound indicates the domain record does not exist.
	ErrDomainNotFound = &OpError{Code: ErrCodeNotFound, Message: "domain not found"}

	// ErrInvalidInput indicates input validation failed.
	ErrInvalidInput = &OpError{Code: ErrCodeValidation, Message: "invalid input"}

	// ErrConfigInvalid indicates the configuration is invalid.
	ErrConfigInvalid = &OpError{Code: ErrCodeConfig, Message: "invalid configuration"}

	// ErrStore indicates the domain store failed.
	ErrStore = &OpError{Code: ErrCodeStore, Message: "store failure"}
)

// NoServer creates the precondition error for a domain without a server.
func NoServer(domain string) error {
	return &OpError{
		Code:    ErrCodeNoServer,
		Message: "domain has no associated server",
		Domain:  domain,
	}
}

// NotFound creates an error for a domain that doesn't exist.
func NotFound(domain string) error {
	return &OpError{
		Code:    ErrCodeNotFound,
		Message: "domain not found",
		Domain:  domain,
	}
}

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &OpError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &OpError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// Remote creates an error for a finished or aborted remote execution,
// keeping the captured output for diagnosis.
func Remote(code ErrorCode, msg, output string, err error) error {
	return &OpError{
		Code:    code,
		Message: msg,
		Output:  output,
		Err:     err,
	}
}

// WithDomain attaches a domain to err. An OpError is copied so shared
// sentinels are never mutated; any other error is wrapped as INTERNAL.
func WithDomain(err error, domain string) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		cp := *opErr
		if cp.Domain == "" {
			cp.Domain = domain
		}
		return &cp
	}
	return &OpError{Code: ErrCodeInternal, Domain: domain, Message: "unexpected failure", Err: err}
}

// CodeOf returns the code of the first OpError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ErrCodeInternal
}

// OutputOf returns the captured remote output carried by err, if any.
func OutputOf(err error) string {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Output
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As

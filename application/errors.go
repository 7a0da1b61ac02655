package application

import (
	"fmt"

	"tunnelhost/domain"
)

// SessionError is returned by a handler when the session manager (or the
// handler itself, once it has determined the caller is an authenticated-
// enough client) rejects a request for a reason the client deserves to
// see. The per-connection pipeline catches it one layer up and serializes
// it as a SessionResponseBase; it never falls through to the 401 path.
type SessionError struct {
	Code       domain.SessionErrorCode
	Diagnostic string
}

func (e *SessionError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("session error: %s", e.Code)
	}
	return fmt.Sprintf("session error: %s: %s", e.Code, e.Diagnostic)
}

func NewSessionError(code domain.SessionErrorCode, diagnostic string) *SessionError {
	return &SessionError{Code: code, Diagnostic: diagnostic}
}

// TransportClosedError marks a connection close that happened before any
// request was read, or any other benign disconnect. It is traced, not
// logged at error level, and never produces a reply.
type TransportClosedError struct {
	Cause error
}

func (e *TransportClosedError) Error() string { return "transport closed" }
func (e *TransportClosedError) Unwrap() error { return e.Cause }

// TLSAuthError wraps a failed TLS handshake, distinguishing whether
// cancellation caused it.
type TLSAuthError struct {
	Cause       error
	Cancelled   bool
}

func (e *TLSAuthError) Error() string { return fmt.Sprintf("tls authenticate: %v", e.Cause) }
func (e *TLSAuthError) Unwrap() error { return e.Cause }

// RequestParseError marks malformed framing or an unknown request code.
// The pipeline answers these with the anonymous 401 reply.
type RequestParseError struct {
	Cause error
}

func (e *RequestParseError) Error() string { return fmt.Sprintf("request parse: %v", e.Cause) }
func (e *RequestParseError) Unwrap() error { return e.Cause }

// SelfLogging is implemented by errors that carry enough context to be
// worth a dedicated, structured log line. Errors that do not implement it
// fall through to the pipeline's default informational log.
type SelfLogging interface {
	LogSelf(logger Logger)
}

func (e *TLSAuthError) LogSelf(logger Logger) {
	if e.Cancelled {
		logger.Printf("tls handshake cancelled: %v", e.Cause)
		return
	}
	logger.Printf("tls handshake failed: %v", e.Cause)
}

package transport

import "fmt"

// TransportError reports a network-level failure: host unreachable,
// connection reset, request timeout. Never retried by this layer.
type TransportError struct {
	// Op names the failed operation, e.g. "GET /blogs".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports a terminal authentication failure: a 401 on a
// request that has already been retried once, or a failed token
// refresh. The session is over; the caller should send the user back
// to login.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError reports input rejected before any network call was
// made. No state has been mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ServerError reports a non-401 error status from the API. The body's
// error message, if any, is carried along for display.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server: status %d", e.StatusCode)
}

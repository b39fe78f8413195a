package errors

import "errors"

// Sentinel errors shared across the client SDK.
var (
	// Session errors
	ErrNoSession            = errors.New("no active session")
	ErrAuthorizationExpired = errors.New("authorization expired")

	// Tenant errors
	ErrTenantNotFound = errors.New("tenant not found")
	ErrNoSubdomain    = errors.New("no tenant subdomain in host")
)

// GenericConnectionMessage replaces transport error text that is not
// human-readable (fetch internals, echoed request URLs).
const GenericConnectionMessage = "connection error with the server"

// ApplicationError is a failure the backend signals in-band: an HTTP success
// response whose JSON body carries error === 1 plus a message, or a non-2xx
// response with a structured message. The message is user-facing.
type ApplicationError struct {
	Message    string
	Status     string
	StatusCode int
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// TransportError is a network or connection level failure. Message has
// already been normalized for display.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SessionIntegrityError reports that a session write could not be confirmed
// durable. The session has been fully rolled back by the time it is returned.
type SessionIntegrityError struct {
	Message string
}

func (e *SessionIntegrityError) Error() string {
	return e.Message
}

// ApplicationMessage returns the backend message from err, or "" if err is
// not an ApplicationError.
func ApplicationMessage(err error) string {
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

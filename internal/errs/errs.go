// Package errs contains the error taxonomy shared by the protocol layers.
//
// Callers classify failures with errors.Is against the sentinels below or
// with KindOf, which also recognises *ProtocolError values.
package errs

import (
	"errors"
	"fmt"
)

// Sentinels for the taxonomy.
var (
	// ErrConfiguration indicates a missing or inconsistent credential. Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound indicates an identifier could not be mapped to a peer or record.
	ErrNotFound = errors.New("not found")

	// ErrPasswordNeeded indicates the account requires a second factor after code sign-in.
	ErrPasswordNeeded = errors.New("two-factor password needed")

	// ErrSignUpRequired indicates the phone number is not registered.
	ErrSignUpRequired = errors.New("signup required")

	// ErrCodeRequired indicates a login would need an interactive verification code.
	ErrCodeRequired = errors.New("phone code required: generate a session string first using the auth flow")

	// ErrForeignPeer indicates a peer reference resolved on another connection.
	ErrForeignPeer = errors.New("peer reference belongs to another connection")

	// ErrPeerKind indicates a peer of the wrong class for an operation, e.g. a
	// user passed where a channel is required.
	ErrPeerKind = errors.New("peer has the wrong kind for this operation")

	// ErrNotConnected indicates an operation was invoked before Connect.
	ErrNotConnected = errors.New("client not connected")
)

// Kind is the coarse class of a failure.
type Kind string

// Failure kinds.
const (
	KindConfiguration Kind = "configuration"
	KindResolution    Kind = "resolution"
	KindProtocol      Kind = "protocol"
	KindTransport     Kind = "transport"
)

// ProtocolError is a request rejected by the server.
type ProtocolError struct {
	Code    int
	Type    string
	Message string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Message != "" && e.Message != e.Type {
		return fmt.Sprintf("rpc error %d %s: %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("rpc error %d %s", e.Code, e.Type)
}

// KindOf classifies err. Anything not recognised is a transport failure and
// is surfaced as-is by callers.
func KindOf(err error) Kind {
	var perr *ProtocolError
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrCodeRequired):
		return KindConfiguration
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForeignPeer), errors.Is(err, ErrPeerKind):
		return KindResolution
	case errors.Is(err, ErrSignUpRequired), errors.Is(err, ErrPasswordNeeded), errors.As(err, &perr):
		return KindProtocol
	default:
		return KindTransport
	}
}

// Configf returns an ErrConfiguration wrapped with a formatted detail.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound wrapped with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

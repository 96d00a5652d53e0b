// Package mtproto adapts the gotd MTProto client to the narrow surface used
// by tgflow: dialing a connection from a session blob, the RPC subset the
// domain operations call, the connection-scoped entity cache, and mapping of
// RPC failures onto the errs taxonomy.
package mtproto

import (
	"context"

	"github.com/gotd/td/tg"
)

// Device defaults reported to the server when the caller leaves them empty.
const (
	DefaultDeviceModel   = "tgflow MTProto Node"
	DefaultSystemVersion = "1.0.0"
	DefaultAppVersion    = "1.0.0"
)

// Device identifies this client to the server.
type Device struct {
	Model         string
	SystemVersion string
	AppVersion    string
}

// withDefaults fills empty fields with the package defaults.
func (d Device) withDefaults() Device {
	if d.Model == "" {
		d.Model = DefaultDeviceModel
	}
	if d.SystemVersion == "" {
		d.SystemVersion = DefaultSystemVersion
	}
	if d.AppVersion == "" {
		d.AppVersion = DefaultAppVersion
	}
	return d
}

// Params are the application credentials needed to open a connection.
type Params struct {
	APIID   int
	APIHash string
	Device  Device
}

// Dialer opens authenticated or unauthenticated connections.
type Dialer interface {
	// Dial connects using the given session. An empty blob starts a fresh,
	// unauthorized session.
	Dial(ctx context.Context, p Params, session Blob) (Conn, error)
}

// Conn is one live connection. It must be closed by whoever dialed it.
type Conn interface {
	// API returns the RPC surface. Results flowing through it feed Entities.
	API() API
	Auth() Authenticator
	Entities() *Entities
	// Self returns the authorized user and records it as the self peer.
	Self(ctx context.Context) (*tg.User, error)
	// Upload sends a file to the server and returns a handle usable in media.
	Upload(ctx context.Context, name string, data []byte) (tg.InputFileClass, error)
	// Session serializes the current session state.
	Session(ctx context.Context) (Blob, error)
	Close() error
}

// Authenticator drives sign-in on a connection. Failures are mapped with
// Wrap, so a password-protected account surfaces errs.ErrPasswordNeeded and
// an unregistered number errs.ErrSignUpRequired.
type Authenticator interface {
	SendCode(ctx context.Context, phone string) (*tg.AuthSentCode, error)
	SignIn(ctx context.Context, phone, code, codeHash string) (*tg.User, error)
	// Password completes a second factor with an SRP proof.
	Password(ctx context.Context, password string) (*tg.User, error)
	// Login signs in without prompting. Any need for a verification code
	// fails with errs.ErrCodeRequired.
	Login(ctx context.Context, phone, password string) error
}

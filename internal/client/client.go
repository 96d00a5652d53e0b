// Package client is the facade the operation handlers use: it owns one
// long-lived connection and implements every domain operation on top of the
// resolver, the paginator and the normalizer.
//
// A Client is not safe for concurrent use. Callers connect once, run their
// operations sequentially, and defer Disconnect.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/resolve"
)

// Credentials configure a Client. They are copied on construction.
type Credentials struct {
	APIID             int    `yaml:"api_id" json:"apiId"`
	APIHash           string `yaml:"api_hash" json:"apiHash"`
	PhoneNumber       string `yaml:"phone_number" json:"phoneNumber"`
	SessionString     string `yaml:"session_string" json:"sessionString"`
	TwoFactorPassword string `yaml:"two_factor_password" json:"twoFactorPassword"`
	DeviceModel       string `yaml:"device_model" json:"deviceModel"`
	SystemVersion     string `yaml:"system_version" json:"systemVersion"`
	AppVersion        string `yaml:"app_version" json:"appVersion"`
}

// Validate reports every missing credential at once.
func (c Credentials) Validate() error {
	var problems []error
	if c.APIID == 0 {
		problems = append(problems, errs.Configf("api id is required"))
	}
	if c.APIHash == "" {
		problems = append(problems, errs.Configf("api hash is required"))
	}
	if c.SessionString == "" && c.PhoneNumber == "" {
		problems = append(problems, errs.Configf("either a session string or a phone number is required"))
	}
	return errors.Join(problems...)
}

// Params returns the dial parameters.
func (c Credentials) Params() mtproto.Params {
	return mtproto.Params{
		APIID:   c.APIID,
		APIHash: c.APIHash,
		Device: mtproto.Device{
			Model:         c.DeviceModel,
			SystemVersion: c.SystemVersion,
			AppVersion:    c.AppVersion,
		},
	}
}

// AuthParams returns the parameters for the sign-in steps.
func (c Credentials) AuthParams() auth.Params {
	p := c.Params()
	return auth.Params{APIID: p.APIID, APIHash: p.APIHash, Device: p.Device}
}

// Observer is notified after every domain operation.
type Observer interface {
	ObserveOperation(op string, d time.Duration, err error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver records operation outcomes, typically as metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// Client is the protocol facade.
type Client struct {
	creds    Credentials
	dialer   mtproto.Dialer
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer

	conn     mtproto.Conn
	resolver *resolve.Resolver
}

// Factory creates disconnected clients sharing one configuration.
type Factory func() *Client

// NewFactory returns a Factory for creds, dialer and opts.
func NewFactory(creds Credentials, dialer mtproto.Dialer, opts ...Option) Factory {
	return func() *Client { return New(creds, dialer, opts...) }
}

// New creates a disconnected Client.
func New(creds Credentials, dialer mtproto.Dialer, opts ...Option) *Client {
	c := &Client{
		creds:  creds,
		dialer: dialer,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/flemzord/tgflow/internal/client"),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "client")
	return c
}

// Connected reports whether Connect has succeeded and Disconnect has not
// run since.
func (c *Client) Connected() bool { return c.conn != nil }

// Connect opens the connection. With a session string it only reconnects;
// otherwise it signs in with the phone number and password and fails with
// errs.ErrCodeRequired if the server wants a verification code. Calling
// Connect on a connected Client does nothing.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	if err := c.creds.Validate(); err != nil {
		return err
	}
	session, err := mtproto.ParseBlob(c.creds.SessionString)
	if err != nil {
		return errs.Configf("invalid session string: %v", err)
	}

	conn, err := c.dialer.Dial(ctx, c.creds.Params(), session)
	if err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	if session.Empty() {
		if err := conn.Auth().Login(ctx, c.creds.PhoneNumber, c.creds.TwoFactorPassword); err != nil {
			if cerr := conn.Close(); cerr != nil {
				c.logger.Warn("disconnect after failed login", "error", cerr)
			}
			return fmt.Errorf("client: login: %w", err)
		}
	}

	c.conn = conn
	c.resolver = resolve.New(conn.Entities(), mtproto.NewDirectory(conn))
	c.logger.Debug("connected", "session", session, "phone", c.creds.PhoneNumber)
	return nil
}

// Disconnect closes the connection. It never fails and is safe to call any
// number of times, connected or not.
func (c *Client) Disconnect() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Warn("disconnect failed", "error", err)
	}
	c.conn = nil
	c.resolver = nil
}

// Resolve maps an identifier to a peer on the current connection.
func (c *Client) Resolve(ctx context.Context, identifier string) (mtproto.PeerRef, error) {
	if c.conn == nil {
		return mtproto.PeerRef{}, errs.ErrNotConnected
	}
	p, err := c.resolver.Resolve(ctx, identifier)
	if err != nil {
		return mtproto.PeerRef{}, fmt.Errorf("client: resolve %q: %w", identifier, err)
	}
	return p, nil
}

// own rejects a peer resolved on another connection.
func (c *Client) own(p mtproto.PeerRef) error {
	if !p.BelongsTo(c.conn.Entities()) {
		return fmt.Errorf("client: peer %d: %w", p.ID, errs.ErrForeignPeer)
	}
	return nil
}

// call runs one operation inside a span and reports it to the observer.
func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context, conn mtproto.Conn) (T, error)) (T, error) {
	var zero T
	if c.conn == nil {
		return zero, errs.ErrNotConnected
	}

	ctx, span := c.tracer.Start(ctx, "tgflow."+op, trace.WithAttributes(attribute.String("tgflow.operation", op)))
	defer span.End()

	start := time.Now()
	v, err := fn(ctx, c.conn)
	if c.observer != nil {
		c.observer.ObserveOperation(op, time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("tgflow.error_kind", string(errs.KindOf(err))))
		return zero, err
	}
	return v, nil
}

func rpcErr(op string, err error) error {
	return fmt.Errorf("client: %s: %w", op, mtproto.Wrap(err))
}

// Package mtprototest provides in-memory fakes of the mtproto connection
// types for tests.
package mtprototest

import (
	"context"
	"sync"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/mtproto"
)

// API is a base fake. Embed it and override the methods a test needs; any
// other call panics on the nil interface.
type API struct {
	mtproto.API
}

// Conn is a fake connection around a test-supplied API.
type Conn struct {
	Raw   mtproto.API
	Authn mtproto.Authenticator
	Blob  mtproto.Blob

	SessionErr error
	CloseErr   error

	mu      sync.Mutex
	ents    *mtproto.Entities
	closed  int
	uploads []string
}

// NewConn returns a Conn over raw.
func NewConn(raw mtproto.API) *Conn {
	return &Conn{Raw: raw, ents: mtproto.NewEntities()}
}

func (c *Conn) API() mtproto.API            { return mtproto.Record(c.Raw, c.ents) }
func (c *Conn) Auth() mtproto.Authenticator { return c.Authn }
func (c *Conn) Entities() *mtproto.Entities { return c.ents }
func (c *Conn) Self(ctx context.Context) (*tg.User, error) {
	return mtproto.FetchSelf(ctx, c.API(), c.ents)
}

func (c *Conn) Upload(_ context.Context, name string, _ []byte) (tg.InputFileClass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads = append(c.uploads, name)
	return &tg.InputFile{ID: int64(len(c.uploads)), Name: name}, nil
}

func (c *Conn) Session(context.Context) (mtproto.Blob, error) {
	return c.Blob, c.SessionErr
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.CloseErr
}

// Closed returns how many times Close was called.
func (c *Conn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Uploads returns the names of uploaded files.
func (c *Conn) Uploads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.uploads...)
}

// Dial records one Dial call.
type Dial struct {
	Params  mtproto.Params
	Session mtproto.Blob
}

// Dialer hands out a fixed sequence of connections.
type Dialer struct {
	// Conns are returned in order; the last one is reused.
	Conns []*Conn
	Err   error

	mu    sync.Mutex
	dials []Dial
}

// Dial implements mtproto.Dialer.
func (d *Dialer) Dial(_ context.Context, p mtproto.Params, session mtproto.Blob) (mtproto.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, Dial{Params: p, Session: session})
	if d.Err != nil {
		return nil, d.Err
	}
	i := min(len(d.dials)-1, len(d.Conns)-1)
	return d.Conns[i], nil
}

// Dials returns the recorded calls.
func (d *Dialer) Dials() []Dial {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dial(nil), d.dials...)
}

// Auth is a scripted Authenticator.
type Auth struct {
	SentCode    *tg.AuthSentCode
	SendCodeErr error
	SignInUser  *tg.User
	SignInErr   error
	PassUser    *tg.User
	PassErr     error
	LoginErr    error

	mu        sync.Mutex
	passwords []string
	logins    int
}

func (a *Auth) SendCode(context.Context, string) (*tg.AuthSentCode, error) {
	return a.SentCode, a.SendCodeErr
}

func (a *Auth) SignIn(context.Context, string, string, string) (*tg.User, error) {
	return a.SignInUser, a.SignInErr
}

func (a *Auth) Password(_ context.Context, password string) (*tg.User, error) {
	a.mu.Lock()
	a.passwords = append(a.passwords, password)
	a.mu.Unlock()
	return a.PassUser, a.PassErr
}

func (a *Auth) Login(context.Context, string, string) error {
	a.mu.Lock()
	a.logins++
	a.mu.Unlock()
	return a.LoginErr
}

// Passwords returns the passwords submitted to Password.
func (a *Auth) Passwords() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.passwords...)
}

// Logins returns how many times Login ran.
func (a *Auth) Logins() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logins
}

// SelfAPI answers UsersGetUsers for the self user and embeds API for the rest.
type SelfAPI struct {
	mtproto.API
	User *tg.User
}

func (s SelfAPI) UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error) {
	if len(id) == 1 {
		if _, ok := id[0].(*tg.InputUserSelf); ok && s.User != nil {
			return []tg.UserClass{s.User}, nil
		}
	}
	if s.API != nil {
		return s.API.UsersGetUsers(ctx, id)
	}
	return nil, nil
}

// User builds a user with the given handle and phone.
func User(id, accessHash int64, username, phone string) *tg.User {
	u := &tg.User{ID: id, AccessHash: accessHash}
	if username != "" {
		u.SetUsername(username)
	}
	if phone != "" {
		u.SetPhone(phone)
	}
	return u
}

// Channel builds a channel with the given handle.
func Channel(id, accessHash int64, title, username string) *tg.Channel {
	c := &tg.Channel{ID: id, Title: title}
	c.SetAccessHash(accessHash)
	if username != "" {
		c.SetUsername(username)
	}
	return c
}

package mtproto

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/flemzord/tgflow/internal/errs"
)

// GotdDialer dials real connections with gotd.
type GotdDialer struct {
	// Logger receives gotd transport logs. Nil disables them.
	Logger *zap.Logger
	// Middlewares wrap every RPC invocation, e.g. for metrics.
	Middlewares []telegram.Middleware
}

// Dial connects and waits until the connection is ready.
func (d GotdDialer) Dial(ctx context.Context, p Params, blob Blob) (Conn, error) {
	if p.APIID == 0 || p.APIHash == "" {
		return nil, errs.Configf("api id and api hash are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	storage := new(session.StorageMemory)
	if !blob.Empty() {
		if err := storage.StoreSession(ctx, blob); err != nil {
			return nil, fmt.Errorf("mtproto: load session: %w", err)
		}
	}

	dev := p.Device.withDefaults()
	client := telegram.NewClient(p.APIID, p.APIHash, telegram.Options{
		Logger:         logger.Named("gotd"),
		SessionStorage: storage,
		NoUpdates:      true,
		Middlewares:    d.Middlewares,
		Device: telegram.DeviceConfig{
			DeviceModel:   dev.Model,
			SystemVersion: dev.SystemVersion,
			AppVersion:    dev.AppVersion,
		},
	})

	stop, err := background(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("mtproto: connect: %w", Wrap(err))
	}

	raw := client.API()
	mgr := peers.Options{Logger: logger.Named("peers")}.Build(raw)
	ents := NewEntities()
	ents.Mirror(mgr.Apply)
	return &gotdConn{
		client:  client,
		raw:     raw,
		api:     Record(raw, ents),
		ents:    ents,
		peers:   mgr,
		storage: storage,
		stop:    stop,
	}, nil
}

type gotdConn struct {
	client  *telegram.Client
	raw     *tg.Client
	api     API
	ents    *Entities
	peers   *peers.Manager
	storage *session.StorageMemory

	stopOnce sync.Once
	stop     stopFunc
	stopErr  error
}

func (c *gotdConn) API() API              { return c.api }
func (c *gotdConn) Entities() *Entities   { return c.ents }
func (c *gotdConn) Peers() *peers.Manager { return c.peers }
func (c *gotdConn) Auth() Authenticator   { return &gotdAuth{client: c.client} }

func (c *gotdConn) Self(ctx context.Context) (*tg.User, error) {
	return FetchSelf(ctx, c.api, c.ents)
}

func (c *gotdConn) Upload(ctx context.Context, name string, data []byte) (tg.InputFileClass, error) {
	f, err := uploader.NewUploader(c.raw).FromBytes(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("mtproto: upload %s: %w", name, Wrap(err))
	}
	return f, nil
}

func (c *gotdConn) Session(ctx context.Context) (Blob, error) {
	data, err := c.storage.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("mtproto: export session: %w", err)
	}
	return Blob(data), nil
}

func (c *gotdConn) Close() error {
	c.stopOnce.Do(func() {
		if err := c.stop(); err != nil && !errors.Is(err, context.Canceled) {
			c.stopErr = err
		}
	})
	return c.stopErr
}

type gotdAuth struct {
	client *telegram.Client
}

func (a *gotdAuth) SendCode(ctx context.Context, phone string) (*tg.AuthSentCode, error) {
	sent, err := a.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{AllowAppHash: true})
	if err != nil {
		return nil, Wrap(err)
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return nil, fmt.Errorf("mtproto: unexpected sent code %s", sent.TypeName())
	}
	return code, nil
}

func (a *gotdAuth) SignIn(ctx context.Context, phone, code, codeHash string) (*tg.User, error) {
	res, err := a.client.Auth().SignIn(ctx, phone, code, codeHash)
	if err != nil {
		return nil, Wrap(err)
	}
	return authorizedUser(res)
}

func (a *gotdAuth) Password(ctx context.Context, password string) (*tg.User, error) {
	res, err := a.client.Auth().Password(ctx, password)
	if err != nil {
		return nil, Wrap(err)
	}
	return authorizedUser(res)
}

func (a *gotdAuth) Login(ctx context.Context, phone, password string) error {
	noCode := auth.CodeAuthenticatorFunc(func(context.Context, *tg.AuthSentCode) (string, error) {
		return "", errs.ErrCodeRequired
	})
	flow := auth.NewFlow(auth.Constant(phone, password, noCode), auth.SendCodeOptions{})
	if err := a.client.Auth().IfNecessary(ctx, flow); err != nil {
		return Wrap(err)
	}
	return nil
}

func authorizedUser(res *tg.AuthAuthorization) (*tg.User, error) {
	u, ok := res.User.(*tg.User)
	if !ok {
		return nil, fmt.Errorf("mtproto: unexpected authorized user %s", res.User.TypeName())
	}
	return u, nil
}

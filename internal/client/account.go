package client

import (
	"context"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/normalize"
	"github.com/flemzord/tgflow/pkg/record"
)

// GetMe returns the authorized user.
func (c *Client) GetMe(ctx context.Context) (*record.User, error) {
	return call(ctx, c, "getMe", func(ctx context.Context, conn mtproto.Conn) (*record.User, error) {
		u, err := conn.Self(ctx)
		if err != nil {
			return nil, rpcErr("get me", err)
		}
		return normalize.User(u), nil
	})
}

// SessionString exports the current session in text form.
func (c *Client) SessionString(ctx context.Context) (record.SessionString, error) {
	return call(ctx, c, "getSession", func(ctx context.Context, conn mtproto.Conn) (record.SessionString, error) {
		b, err := conn.Session(ctx)
		if err != nil {
			return record.SessionString{}, rpcErr("export session", err)
		}
		return record.SessionString{SessionString: b.String()}, nil
	})
}

// LogOut terminates the session on the server. The session string is
// unusable afterwards.
func (c *Client) LogOut(ctx context.Context) (record.Success, error) {
	return call(ctx, c, "logOut", func(ctx context.Context, conn mtproto.Conn) (record.Success, error) {
		if _, err := conn.API().AuthLogOut(ctx); err != nil {
			return record.Success{}, rpcErr("log out", err)
		}
		return record.Success{Success: true}, nil
	})
}

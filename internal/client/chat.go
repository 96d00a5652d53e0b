package client

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/normalize"
	"github.com/flemzord/tgflow/pkg/record"
)

// defaultDialogLimit applies when GetDialogs gets no limit.
const defaultDialogLimit = 50

// GetDialogs lists the most recent conversations.
func (c *Client) GetDialogs(ctx context.Context, limit int) ([]record.Dialog, error) {
	return call(ctx, c, "getDialogs", func(ctx context.Context, conn mtproto.Conn) ([]record.Dialog, error) {
		if limit <= 0 {
			limit = defaultDialogLimit
		}
		res, err := conn.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetPeer: &tg.InputPeerEmpty{},
			Limit:      limit,
		})
		if err != nil {
			return nil, rpcErr("get dialogs", err)
		}
		dialogs := normalize.Dialogs(res)
		if len(dialogs) > limit {
			dialogs = dialogs[:limit]
		}
		return dialogs, nil
	})
}

// GetChatInfo returns the record of any peer: user, group or channel.
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (any, error) {
	return call(ctx, c, "getChatInfo", func(ctx context.Context, conn mtproto.Conn) (any, error) {
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		return normalize.Entity(p.Entity), nil
	})
}

// GetChatMembers lists the members of a basic group. Other peers have no
// member list here and yield an empty result.
func (c *Client) GetChatMembers(ctx context.Context, chatID string, limit int) ([]*record.User, error) {
	return call(ctx, c, "getChatMembers", func(ctx context.Context, conn mtproto.Conn) ([]*record.User, error) {
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		id, ok := p.ChatID()
		if !ok {
			return []*record.User{}, nil
		}
		full, err := conn.API().MessagesGetFullChat(ctx, id)
		if err != nil {
			return nil, rpcErr("get full chat", err)
		}
		users := normalize.Users(full.Users)
		if limit > 0 && len(users) > limit {
			users = users[:limit]
		}
		return users, nil
	})
}

// LeaveChat leaves a basic group or channel. Leaving a user peer is a no-op.
func (c *Client) LeaveChat(ctx context.Context, chatID string) (record.Success, error) {
	return call(ctx, c, "leaveChat", func(ctx context.Context, conn mtproto.Conn) (record.Success, error) {
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return record.Success{}, err
		}
		if id, ok := p.ChatID(); ok {
			_, err = conn.API().MessagesDeleteChatUser(ctx, &tg.MessagesDeleteChatUserRequest{
				ChatID: id,
				UserID: &tg.InputUserSelf{},
			})
		} else if ch, ok := p.InputChannel(); ok {
			_, err = conn.API().ChannelsLeaveChannel(ctx, ch)
		}
		if err != nil {
			return record.Success{}, rpcErr("leave chat", err)
		}
		return record.Success{Success: true}, nil
	})
}

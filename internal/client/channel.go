package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/normalize"
	"github.com/flemzord/tgflow/internal/paginate"
	"github.com/flemzord/tgflow/internal/resolve"
	"github.com/flemzord/tgflow/pkg/record"
)

// MembersOptions bound a channel member listing.
type MembersOptions struct {
	Limit     int  `json:"limit"`
	ReturnAll bool `json:"returnAll"`
	// Filter is one of recent, admins, kicked, banned or search (default).
	Filter string `json:"participantsType"`
	// Query narrows search, kicked and banned listings.
	Query string `json:"query"`
}

func participantsFilter(name, q string) (tg.ChannelParticipantsFilterClass, error) {
	switch name {
	case "", "search", "all":
		return &tg.ChannelParticipantsSearch{Q: q}, nil
	case "recent":
		return &tg.ChannelParticipantsRecent{}, nil
	case "admins":
		return &tg.ChannelParticipantsAdmins{}, nil
	case "kicked":
		return &tg.ChannelParticipantsKicked{Q: q}, nil
	case "banned":
		return &tg.ChannelParticipantsBanned{Q: q}, nil
	case "bots":
		return &tg.ChannelParticipantsBots{}, nil
	default:
		return nil, errs.Configf("unknown participants type %q", name)
	}
}

// JoinChannel joins by invite link ("+hash", "t.me/+hash",
// "t.me/joinchat/hash") or by public handle or ID.
func (c *Client) JoinChannel(ctx context.Context, channel string) (record.Joined, error) {
	return call(ctx, c, "joinChannel", func(ctx context.Context, conn mtproto.Conn) (record.Joined, error) {
		if hash, ok := inviteHash(channel); ok {
			upd, err := conn.API().MessagesImportChatInvite(ctx, hash)
			if err != nil {
				return record.Joined{}, rpcErr("import chat invite", err)
			}
			return joined("invite", upd), nil
		}

		p, err := c.peer(ctx, channel)
		if err != nil {
			return record.Joined{}, err
		}
		ch, ok := p.InputChannel()
		if !ok {
			return record.Joined{}, fmt.Errorf("client: join %s: %w", channel, errs.ErrPeerKind)
		}
		upd, err := conn.API().ChannelsJoinChannel(ctx, ch)
		if err != nil {
			return record.Joined{}, rpcErr("join channel", err)
		}
		return joined("username", upd), nil
	})
}

// inviteHash applies the join branching rule: anything containing
// "joinchat/" or "+" is an invite link.
func inviteHash(s string) (string, bool) {
	if !strings.Contains(s, "joinchat/") && !strings.Contains(s, "+") {
		return "", false
	}
	return resolve.InviteHash(s)
}

func joined(via string, upd tg.UpdatesClass) record.Joined {
	j := record.Joined{Success: true, Via: via, Chats: []any{}}
	if u, ok := upd.(interface{ GetChats() []tg.ChatClass }); ok {
		j.Chats = normalize.Entities(u.GetChats())
	}
	if msgs := normalize.FromUpdates(upd); len(msgs) > 0 {
		j.Message = msgs[0]
	}
	return j
}

// LeaveChannel leaves a channel or supergroup.
func (c *Client) LeaveChannel(ctx context.Context, chatID string) (record.Success, error) {
	return call(ctx, c, "leaveChannel", func(ctx context.Context, conn mtproto.Conn) (record.Success, error) {
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return record.Success{}, err
		}
		ch, ok := p.InputChannel()
		if !ok {
			return record.Success{}, fmt.Errorf("client: leave %s: %w", chatID, errs.ErrPeerKind)
		}
		if _, err := conn.API().ChannelsLeaveChannel(ctx, ch); err != nil {
			return record.Success{}, rpcErr("leave channel", err)
		}
		return record.Success{Success: true}, nil
	})
}

// GetChannelInfo returns a channel with its full info. Other peers get their
// plain record.
func (c *Client) GetChannelInfo(ctx context.Context, chatID string) (any, error) {
	return call(ctx, c, "getChannelInfo", func(ctx context.Context, conn mtproto.Conn) (any, error) {
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		channel, isChannel := p.Entity.(*tg.Channel)
		in, ok := p.InputChannel()
		if !isChannel || !ok {
			return normalize.Entity(p.Entity), nil
		}
		full, err := conn.API().ChannelsGetFullChannel(ctx, in)
		if err != nil {
			return nil, rpcErr("get full channel", err)
		}
		return normalize.ChannelInfo(channel, full.FullChat), nil
	})
}

// GetChannelMembers lists channel members page by page. Peers that are not
// channels yield an empty result.
func (c *Client) GetChannelMembers(ctx context.Context, chatID string, opts MembersOptions) ([]*record.User, error) {
	return call(ctx, c, "getChannelMembers", func(ctx context.Context, conn mtproto.Conn) ([]*record.User, error) {
		filter, err := participantsFilter(opts.Filter, opts.Query)
		if err != nil {
			return nil, err
		}
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		ch, ok := p.InputChannel()
		if !ok {
			return []*record.User{}, nil
		}
		return paginate.Collect(ctx, participantsPage(conn.API(), ch, filter), paginate.Options{
			Limit:     opts.Limit,
			ReturnAll: opts.ReturnAll,
		})
	})
}

// participantsPage fetches one page of members. Entries follow participant
// order so the page length matches what the server counted.
func participantsPage(api mtproto.API, ch tg.InputChannelClass, filter tg.ChannelParticipantsFilterClass) paginate.FetchFunc[*record.User] {
	return func(ctx context.Context, offset, limit int) ([]*record.User, error) {
		res, err := api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: ch,
			Filter:  filter,
			Offset:  offset,
			Limit:   limit,
		})
		if err != nil {
			return nil, rpcErr("get participants", err)
		}
		page, ok := res.(*tg.ChannelsChannelParticipants)
		if !ok {
			return nil, nil
		}
		users := make(map[int64]*tg.User, len(page.Users))
		for _, u := range page.Users {
			if u, ok := u.(*tg.User); ok {
				users[u.ID] = u
			}
		}
		out := make([]*record.User, 0, len(page.Participants))
		for _, part := range page.Participants {
			id, ok := participantUserID(part)
			if u, found := users[id]; ok && found {
				out = append(out, normalize.User(u))
				continue
			}
			out = append(out, &record.User{ID: fmt.Sprint(id), Type: part.TypeName()})
		}
		return out, nil
	}
}

func participantUserID(p tg.ChannelParticipantClass) (int64, bool) {
	switch v := p.(type) {
	case interface{ GetUserID() int64 }:
		return v.GetUserID(), true
	case interface{ GetPeer() tg.PeerClass }:
		return mtproto.BareID(v.GetPeer())
	default:
		return 0, false
	}
}

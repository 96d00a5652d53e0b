package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/normalize"
	"github.com/flemzord/tgflow/internal/paginate"
	"github.com/flemzord/tgflow/pkg/record"
)

// defaultSearchLimit applies when SearchContacts gets no limit.
const defaultSearchLimit = 50

func (c *Client) contacts(ctx context.Context, conn mtproto.Conn) ([]tg.UserClass, error) {
	res, err := conn.API().ContactsGetContacts(ctx, 0)
	if err != nil {
		return nil, rpcErr("get contacts", err)
	}
	list, ok := res.(*tg.ContactsContacts)
	if !ok {
		return nil, nil
	}
	return list.Users, nil
}

// GetContacts lists the address book.
func (c *Client) GetContacts(ctx context.Context) ([]*record.User, error) {
	return call(ctx, c, "getContacts", func(ctx context.Context, conn mtproto.Conn) ([]*record.User, error) {
		users, err := c.contacts(ctx, conn)
		if err != nil {
			return nil, err
		}
		return normalize.Users(users), nil
	})
}

// SearchContacts runs a global search and returns users followed by chats.
func (c *Client) SearchContacts(ctx context.Context, query string, limit int) ([]any, error) {
	return call(ctx, c, "searchContacts", func(ctx context.Context, conn mtproto.Conn) ([]any, error) {
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		found, err := conn.API().ContactsSearch(ctx, &tg.ContactsSearchRequest{Q: query, Limit: limit})
		if err != nil {
			return nil, rpcErr("search contacts", err)
		}
		out := make([]any, 0, len(found.Users)+len(found.Chats))
		for _, u := range normalize.Users(found.Users) {
			out = append(out, u)
		}
		return append(out, normalize.Entities(found.Chats)...), nil
	})
}

// GetUserByUsername resolves a public handle to its user.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*record.User, error) {
	return call(ctx, c, "getUserByUsername", func(ctx context.Context, conn mtproto.Conn) (*record.User, error) {
		name := strings.TrimPrefix(strings.TrimSpace(username), "@")
		if name == "" {
			return nil, errs.Configf("username is required")
		}
		res, err := conn.API().ContactsResolveUsername(ctx, name)
		if err != nil {
			if err = mtproto.Wrap(err); errors.Is(err, errs.ErrNotFound) {
				return nil, fmt.Errorf("client: username @%s does not exist: %w", name, err)
			}
			return nil, fmt.Errorf("client: resolve username: %w", err)
		}
		want, _ := mtproto.BareID(res.Peer)
		for _, u := range res.Users {
			if u, ok := u.(*tg.User); ok && u.ID == want {
				return normalize.User(u), nil
			}
		}
		return nil, errs.NotFoundf("user with username @%s", name)
	})
}

// matchUser matches a user by decimal ID or, for "@name", by username.
func matchUser(identifier string) func(*tg.User) bool {
	name, isName := strings.CutPrefix(identifier, "@")
	return func(u *tg.User) bool {
		if strconv.FormatInt(u.ID, 10) == identifier {
			return true
		}
		if !isName {
			return false
		}
		if un, ok := u.GetUsername(); ok && strings.EqualFold(un, name) {
			return true
		}
		return false
	}
}

// GetUserFromChannel finds a member of a channel or basic group by ID or
// @username, scanning channel members page by page.
func (c *Client) GetUserFromChannel(ctx context.Context, userID, channelID string) (*record.User, error) {
	return call(ctx, c, "getUserFromChannel", func(ctx context.Context, conn mtproto.Conn) (*record.User, error) {
		p, err := c.peer(ctx, channelID)
		if err != nil {
			return nil, err
		}
		match := matchUser(strings.TrimSpace(userID))

		if id, ok := p.ChatID(); ok {
			full, err := conn.API().MessagesGetFullChat(ctx, id)
			if err != nil {
				return nil, rpcErr("get full chat", err)
			}
			for _, u := range full.Users {
				if u, ok := u.(*tg.User); ok && match(u) {
					return normalize.User(u), nil
				}
			}
			return nil, errs.NotFoundf("user %s in chat %s", userID, channelID)
		}

		ch, ok := p.InputChannel()
		if !ok {
			return nil, fmt.Errorf("client: %s is not a channel or chat: %w", channelID, errs.ErrPeerKind)
		}
		fetch := func(ctx context.Context, offset, limit int) ([]*tg.User, error) {
			res, err := conn.API().ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
				Channel: ch,
				Filter:  &tg.ChannelParticipantsSearch{},
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
			users := make([]*tg.User, 0, len(page.Users))
			for _, u := range page.Users {
				if u, ok := u.(*tg.User); ok {
					users = append(users, u)
				}
			}
			return users, nil
		}
		u, err := paginate.Find(ctx, fetch, paginate.DefaultPageSize, match)
		if err != nil {
			return nil, fmt.Errorf("client: user %s in channel %s: %w", userID, channelID, err)
		}
		return normalize.User(u), nil
	})
}

// GetUserFromContacts finds a contact by ID, @username or +phone.
func (c *Client) GetUserFromContacts(ctx context.Context, userID string) (*record.User, error) {
	return call(ctx, c, "getUserFromContacts", func(ctx context.Context, conn mtproto.Conn) (*record.User, error) {
		users, err := c.contacts(ctx, conn)
		if err != nil {
			return nil, err
		}
		userID = strings.TrimSpace(userID)
		match := matchUser(userID)
		phone, byPhone := strings.CutPrefix(userID, "+")
		phone = digits(phone)

		for _, uc := range users {
			u, ok := uc.(*tg.User)
			if !ok {
				continue
			}
			if match(u) {
				return normalize.User(u), nil
			}
			if p, ok := u.GetPhone(); byPhone && ok && phone != "" && digits(p) == phone {
				return normalize.User(u), nil
			}
		}
		return nil, errs.NotFoundf("user %s not found in contacts; make sure the user is in your contact list", userID)
	})
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

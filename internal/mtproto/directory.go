package mtproto

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// dialogScan bounds the dialog page read when an ID is not otherwise
// reachable without an access hash.
const dialogScan = 100

// PeerManager is implemented by connections that carry gotd's peer
// manager. Directory prefers it for lookups since it keeps its own access
// hash storage across the connection.
type PeerManager interface {
	Peers() *peers.Manager
}

// Directory asks the server about peers. Lookups only populate the
// connection's Entities; callers read the answer from the cache.
type Directory struct {
	conn Conn
	mgr  *peers.Manager
}

// NewDirectory returns a Directory bound to conn.
func NewDirectory(conn Conn) *Directory {
	d := &Directory{conn: conn}
	if pm, ok := conn.(PeerManager); ok {
		d.mgr = pm.Peers()
	}
	return d
}

// keep copies a peer resolved by the manager into the connection cache.
func (d *Directory) keep(p peers.Peer) {
	ents := d.conn.Entities()
	switch v := p.(type) {
	case peers.User:
		ents.addUsers([]tg.UserClass{v.Raw()})
	case peers.Chat:
		ents.addChats([]tg.ChatClass{v.Raw()})
	case peers.Channel:
		ents.addChats([]tg.ChatClass{v.Raw()})
	}
}

// Self loads the authorized user.
func (d *Directory) Self(ctx context.Context) error {
	if d.mgr != nil {
		u, err := d.mgr.Self(ctx)
		if err != nil {
			return Wrap(err)
		}
		d.keep(u)
		return nil
	}
	_, err := d.conn.Self(ctx)
	return Wrap(err)
}

// LookupUsername resolves a public handle.
func (d *Directory) LookupUsername(ctx context.Context, username string) error {
	name := strings.TrimPrefix(username, "@")
	if d.mgr != nil {
		p, err := d.mgr.ResolveDomain(ctx, name)
		if err != nil {
			return fmt.Errorf("mtproto: resolve username %q: %w", username, Wrap(err))
		}
		d.keep(p)
		return nil
	}
	_, err := d.conn.API().ContactsResolveUsername(ctx, name)
	if err != nil {
		return fmt.Errorf("mtproto: resolve username %q: %w", username, Wrap(err))
	}
	return nil
}

// LookupPhone resolves a phone number among the account's reachable users.
func (d *Directory) LookupPhone(ctx context.Context, phone string) error {
	if d.mgr != nil {
		u, err := d.mgr.ResolvePhone(ctx, digitsOnly(phone))
		if err != nil {
			return fmt.Errorf("mtproto: resolve phone: %w", Wrap(err))
		}
		d.keep(u)
		return nil
	}
	_, err := d.conn.API().ContactsResolvePhone(ctx, digitsOnly(phone))
	if err != nil {
		return fmt.Errorf("mtproto: resolve phone: %w", Wrap(err))
	}
	return nil
}

// managedID asks the peer manager, which may already hold an access hash
// for id. Any failure is a miss; the raw lookups run next.
func (d *Directory) managedID(ctx context.Context, kind PeerKind, id int64) {
	if d.mgr == nil {
		return
	}
	var tries []func() (peers.Peer, error)
	user := func() (peers.Peer, error) { return d.mgr.ResolveUserID(ctx, id) }
	chat := func() (peers.Peer, error) { return d.mgr.ResolveChatID(ctx, id) }
	channel := func() (peers.Peer, error) { return d.mgr.ResolveChannelID(ctx, id) }
	switch kind {
	case PeerUser:
		tries = append(tries, user, chat, channel)
	case PeerChat:
		tries = append(tries, chat)
	case PeerChannel:
		tries = append(tries, channel)
	}
	for _, try := range tries {
		if p, err := try(); err == nil {
			d.keep(p)
			return
		}
	}
}

// LookupID tries to fetch a peer by marked ID. Without a known access hash
// only some lookups succeed, so server rejections are not errors here; the
// caller sees a cache miss instead. A non-negative ID is also tried as a
// chat and a channel, and the recent dialogs are read as a last resort.
func (d *Directory) LookupID(ctx context.Context, marked int64) error {
	api := d.conn.API()
	ents := d.conn.Entities()

	kind, id := Unmark(marked)
	d.managedID(ctx, kind, id)
	if found(ents, marked, kind, id) {
		return nil
	}

	attempts := []func() error{}
	switch kind {
	case PeerUser:
		attempts = append(attempts,
			func() error {
				_, err := api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: id}})
				return err
			},
			func() error {
				_, err := api.MessagesGetChats(ctx, []int64{id})
				return err
			},
			func() error {
				_, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{&tg.InputChannel{ChannelID: id}})
				return err
			},
		)
	case PeerChat:
		attempts = append(attempts, func() error {
			_, err := api.MessagesGetChats(ctx, []int64{id})
			return err
		})
	case PeerChannel:
		attempts = append(attempts, func() error {
			_, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{&tg.InputChannel{ChannelID: id}})
			return err
		})
	}
	attempts = append(attempts, func() error {
		_, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetPeer: &tg.InputPeerEmpty{},
			Limit:      dialogScan,
		})
		return err
	})

	for _, try := range attempts {
		if err := try(); err != nil && !isRejection(err) {
			return fmt.Errorf("mtproto: lookup id %d: %w", marked, Wrap(err))
		}
		if found(ents, marked, kind, id) {
			return nil
		}
	}
	return nil
}

func found(ents *Entities, marked int64, kind PeerKind, id int64) bool {
	if _, ok := ents.Peer(marked); ok {
		return true
	}
	if kind != PeerUser {
		return false
	}
	if _, ok := ents.Peer(MarkChat(id)); ok {
		return true
	}
	_, ok := ents.Peer(MarkChannel(id))
	return ok
}

func isRejection(err error) bool {
	var rpcErr *tgerr.Error
	return errors.As(err, &rpcErr)
}

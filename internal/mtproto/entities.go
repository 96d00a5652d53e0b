package mtproto

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/errs"
)

// Entities is the connection-scoped cache of peers the server has sent.
// It is filled by the recording API returned from Conn.API, by FetchSelf
// and by Directory lookups; everything else reads it.
type Entities struct {
	mu      sync.RWMutex
	peers   map[int64]PeerRef
	byName  map[string]int64
	byPhone map[string]int64
	self    int64

	mirror ApplyFunc
}

// ApplyFunc receives the users and chats of every recorded result.
type ApplyFunc func(ctx context.Context, users []tg.UserClass, chats []tg.ChatClass) error

// Mirror forwards every recorded result to fn as well, e.g. the RPC
// library's peer manager, so its access hash storage sees the same peers.
// Call it before the cache is shared.
func (e *Entities) Mirror(fn ApplyFunc) {
	e.mirror = fn
}

// NewEntities returns an empty cache.
func NewEntities() *Entities {
	return &Entities{
		peers:   make(map[int64]PeerRef),
		byName:  make(map[string]int64),
		byPhone: make(map[string]int64),
	}
}

// Peer returns the cached peer for a marked ID.
func (e *Entities) Peer(marked int64) (PeerRef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.peers[marked]
	return p, ok
}

// Username returns the cached peer owning the handle, case-insensitively.
func (e *Entities) Username(name string) (PeerRef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.byName[foldName(name)]
	if !ok {
		return PeerRef{}, false
	}
	p, ok := e.peers[id]
	return p, ok
}

// Phone returns the cached user with the given phone digits.
func (e *Entities) Phone(digits string) (PeerRef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.byPhone[digitsOnly(digits)]
	if !ok {
		return PeerRef{}, false
	}
	p, ok := e.peers[id]
	return p, ok
}

// Self returns the authorized user once FetchSelf has run.
func (e *Entities) Self() (PeerRef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.self == 0 {
		return PeerRef{}, false
	}
	p, ok := e.peers[e.self]
	return p, ok
}

// Len returns the number of cached peers.
func (e *Entities) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.peers)
}

// FetchSelf loads the authorized user through api and marks it as self in e.
func FetchSelf(ctx context.Context, api API, e *Entities) (*tg.User, error) {
	users, err := api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}})
	if err != nil {
		return nil, Wrap(err)
	}
	if len(users) == 0 {
		return nil, errs.NotFoundf("self user")
	}
	u, ok := users[0].(*tg.User)
	if !ok {
		return nil, fmt.Errorf("mtproto: unexpected self %s", users[0].TypeName())
	}
	e.addUsers([]tg.UserClass{u})
	e.mu.Lock()
	e.self = MarkUser(u.ID)
	e.mu.Unlock()
	return u, nil
}

// absorb records every user and chat carried by an RPC result.
func (e *Entities) absorb(ctx context.Context, v any) {
	var (
		users []tg.UserClass
		chats []tg.ChatClass
	)
	if c, ok := v.(interface{ GetUsers() []tg.UserClass }); ok {
		users = c.GetUsers()
		e.addUsers(users)
	}
	if c, ok := v.(interface{ GetChats() []tg.ChatClass }); ok {
		chats = c.GetChats()
		e.addChats(chats)
	}
	if e.mirror != nil && (len(users) > 0 || len(chats) > 0) {
		// The mirror's storage is in memory; a failure only costs it a peer.
		_ = e.mirror(ctx, users, chats)
	}
}

// forget drops the handle and phone indexes of a cached peer so a renamed
// peer stops answering to its old handle. Callers hold e.mu.
func (e *Entities) forget(id int64) {
	prev, ok := e.peers[id]
	if !ok {
		return
	}
	drop := func(index map[string]int64, key string) {
		if key != "" && index[key] == id {
			delete(index, key)
		}
	}
	switch v := prev.Entity.(type) {
	case *tg.User:
		name, _ := v.GetUsername()
		drop(e.byName, foldName(name))
		for _, alt := range v.Usernames {
			drop(e.byName, foldName(alt.Username))
		}
		phone, _ := v.GetPhone()
		drop(e.byPhone, digitsOnly(phone))
	case *tg.Channel:
		name, _ := v.GetUsername()
		drop(e.byName, foldName(name))
		for _, alt := range v.Usernames {
			drop(e.byName, foldName(alt.Username))
		}
	}
}

func (e *Entities) addUsers(users []tg.UserClass) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, uc := range users {
		u, ok := uc.(*tg.User)
		if !ok {
			continue
		}
		id := MarkUser(u.ID)
		// A min user carries an access hash only valid in its original context.
		if prev, seen := e.peers[id]; seen && u.Min {
			if full, ok := prev.Entity.(*tg.User); ok && !full.Min {
				continue
			}
		}
		e.forget(id)
		e.peers[id] = PeerRef{
			ID:     id,
			Input:  &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash},
			Entity: u,
			owner:  e,
		}
		if name, ok := u.GetUsername(); ok && name != "" {
			e.byName[foldName(name)] = id
		}
		for _, alt := range u.Usernames {
			e.byName[foldName(alt.Username)] = id
		}
		if phone, ok := u.GetPhone(); ok && phone != "" {
			e.byPhone[digitsOnly(phone)] = id
		}
		if u.Self {
			e.self = id
		}
	}
}

func (e *Entities) addChats(chats []tg.ChatClass) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cc := range chats {
		var ref PeerRef
		switch c := cc.(type) {
		case *tg.Chat:
			ref = PeerRef{ID: MarkChat(c.ID), Input: &tg.InputPeerChat{ChatID: c.ID}, Entity: c}
		case *tg.ChatForbidden:
			ref = PeerRef{ID: MarkChat(c.ID), Input: &tg.InputPeerChat{ChatID: c.ID}, Entity: c}
		case *tg.Channel:
			if prev, seen := e.peers[MarkChannel(c.ID)]; seen && c.Min {
				if full, ok := prev.Entity.(*tg.Channel); ok && !full.Min {
					continue
				}
			}
			ref = PeerRef{
				ID:     MarkChannel(c.ID),
				Input:  &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash},
				Entity: c,
			}
		case *tg.ChannelForbidden:
			ref = PeerRef{
				ID:     MarkChannel(c.ID),
				Input:  &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash},
				Entity: c,
			}
		default:
			continue
		}
		ref.owner = e
		e.forget(ref.ID)
		e.peers[ref.ID] = ref
		if c, ok := cc.(*tg.Channel); ok {
			if name, ok := c.GetUsername(); ok && name != "" {
				e.byName[foldName(name)] = ref.ID
			}
			for _, alt := range c.Usernames {
				e.byName[foldName(alt.Username)] = ref.ID
			}
		}
	}
}

func foldName(s string) string { return strings.ToLower(strings.TrimPrefix(s, "@")) }

func digitsOnly(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if '0' <= s[i] && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

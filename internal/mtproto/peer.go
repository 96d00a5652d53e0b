package mtproto

import (
	"github.com/gotd/td/tg"
)

// channelMark offsets channel IDs in the marked form, giving the familiar
// -100… prefix.
const channelMark = 1_000_000_000_000

// PeerKind is the class of a marked peer ID.
type PeerKind int

// Peer kinds.
const (
	PeerUser PeerKind = iota
	PeerChat
	PeerChannel
)

func (k PeerKind) String() string {
	switch k {
	case PeerChat:
		return "chat"
	case PeerChannel:
		return "channel"
	default:
		return "user"
	}
}

// MarkUser returns the marked ID of a user.
func MarkUser(id int64) int64 { return id }

// MarkChat returns the marked ID of a basic group.
func MarkChat(id int64) int64 { return -id }

// MarkChannel returns the marked ID of a channel or supergroup.
func MarkChannel(id int64) int64 { return -(channelMark + id) }

// Unmark splits a marked ID into its kind and bare ID.
func Unmark(marked int64) (PeerKind, int64) {
	switch {
	case marked >= 0:
		return PeerUser, marked
	case marked <= -channelMark:
		return PeerChannel, -marked - channelMark
	default:
		return PeerChat, -marked
	}
}

// MarkPeer returns the marked ID of a wire peer, or 0 for nil.
func MarkPeer(p tg.PeerClass) int64 {
	switch p := p.(type) {
	case *tg.PeerUser:
		return MarkUser(p.UserID)
	case *tg.PeerChat:
		return MarkChat(p.ChatID)
	case *tg.PeerChannel:
		return MarkChannel(p.ChannelID)
	default:
		return 0
	}
}

// BareID returns the unmarked ID of a wire peer and whether p was set.
func BareID(p tg.PeerClass) (int64, bool) {
	switch p := p.(type) {
	case *tg.PeerUser:
		return p.UserID, true
	case *tg.PeerChat:
		return p.ChatID, true
	case *tg.PeerChannel:
		return p.ChannelID, true
	default:
		return 0, false
	}
}

// PeerRef is a resolved peer. It is valid only on the connection whose
// Entities produced it.
type PeerRef struct {
	// ID is the marked peer ID.
	ID    int64
	Input tg.InputPeerClass
	// Entity is the wire object last seen for the peer: *tg.User, *tg.Chat,
	// *tg.ChatForbidden, *tg.Channel or *tg.ChannelForbidden.
	Entity any

	owner *Entities
}

// Kind returns the peer class.
func (p PeerRef) Kind() PeerKind {
	k, _ := Unmark(p.ID)
	return k
}

// BelongsTo reports whether p was produced by e.
func (p PeerRef) BelongsTo(e *Entities) bool {
	return p.owner != nil && p.owner == e
}

// InputChannel converts the peer to a channel reference.
func (p PeerRef) InputChannel() (tg.InputChannelClass, bool) {
	c, ok := p.Input.(*tg.InputPeerChannel)
	if !ok {
		return nil, false
	}
	return &tg.InputChannel{ChannelID: c.ChannelID, AccessHash: c.AccessHash}, true
}

// InputUser converts the peer to a user reference.
func (p PeerRef) InputUser() (tg.InputUserClass, bool) {
	switch u := p.Input.(type) {
	case *tg.InputPeerUser:
		return &tg.InputUser{UserID: u.UserID, AccessHash: u.AccessHash}, true
	case *tg.InputPeerSelf:
		return &tg.InputUserSelf{}, true
	default:
		return nil, false
	}
}

// ChatID returns the bare ID of a basic group peer.
func (p PeerRef) ChatID() (int64, bool) {
	c, ok := p.Input.(*tg.InputPeerChat)
	if !ok {
		return 0, false
	}
	return c.ChatID, true
}

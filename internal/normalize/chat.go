package normalize

import (
	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/pkg/record"
)

// Chat converts a basic group.
func Chat(c *tg.Chat) *record.Chat {
	if c == nil {
		return nil
	}
	return &record.Chat{
		ID:                id(c.ID),
		Type:              c.TypeName(),
		Title:             c.Title,
		ParticipantsCount: opt(c.ParticipantsCount, true),
		Date:              opt(c.Date, true),
		Creator:           c.Creator,
		Deactivated:       c.Deactivated,
		CallActive:        c.CallActive,
		CallNotEmpty:      c.CallNotEmpty,
	}
}

// Channel converts a channel or supergroup.
func Channel(c *tg.Channel) *record.Channel {
	if c == nil {
		return nil
	}
	return &record.Channel{
		ID:                id(c.ID),
		Type:              c.TypeName(),
		Title:             c.Title,
		Username:          opt(c.GetUsername()),
		Usernames:         usernames(c.GetUsernames()),
		ParticipantsCount: opt(c.GetParticipantsCount()),
		Date:              opt(c.Date, true),
		Creator:           c.Creator,
		Broadcast:         c.Broadcast,
		Megagroup:         c.Megagroup,
		Verified:          c.Verified,
		Restricted:        c.Restricted,
		RestrictionReason: restrictions(c.GetRestrictionReason()),
		Scam:              c.Scam,
		Fake:              c.Fake,
	}
}

// ChannelInfo combines a channel with its full info. A nil or non-channel
// full object leaves FullInfo nil.
func ChannelInfo(c *tg.Channel, full tg.ChatFullClass) *record.ChannelInfo {
	info := &record.ChannelInfo{Channel: Channel(c)}
	if info.Channel == nil {
		return nil
	}
	if f, ok := full.(*tg.ChannelFull); ok && f != nil {
		info.FullInfo = &record.ChannelFull{
			About:             f.About,
			ParticipantsCount: opt(f.GetParticipantsCount()),
			AdminsCount:       opt(f.GetAdminsCount()),
			KickedCount:       opt(f.GetKickedCount()),
			BannedCount:       opt(f.GetBannedCount()),
			LinkedChatID:      optID(f.GetLinkedChatID()),
		}
	}
	return info
}

// Entity converts any peer object to its record: users, basic groups and
// channels get full records, anything else the minimal {id, type}.
func Entity(v any) any {
	switch e := v.(type) {
	case nil:
		return nil
	case *tg.User:
		return User(e)
	case *tg.Chat:
		return Chat(e)
	case *tg.Channel:
		return Channel(e)
	case *tg.ChatForbidden:
		return &record.Chat{ID: id(e.ID), Type: e.TypeName(), Title: e.Title}
	case *tg.ChannelForbidden:
		return &record.Channel{
			ID:        id(e.ID),
			Type:      e.TypeName(),
			Title:     e.Title,
			Broadcast: e.Broadcast,
			Megagroup: e.Megagroup,
		}
	default:
		return unknown(v)
	}
}

// Entities converts the chats of a result, in order.
func Entities(chats []tg.ChatClass) []any {
	out := make([]any, 0, len(chats))
	for _, c := range chats {
		if r := Entity(c); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func unknown(v any) *record.Unknown {
	u := &record.Unknown{Type: typeName(v)}
	switch g := v.(type) {
	case interface{ GetID() int64 }:
		u.ID = id(g.GetID())
	case interface{ GetID() int }:
		u.ID = id(g.GetID())
	}
	return u
}

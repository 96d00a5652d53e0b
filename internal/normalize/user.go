package normalize

import (
	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/pkg/record"
)

// User converts any user variant. It returns nil for nil.
func User(uc tg.UserClass) *record.User {
	switch u := uc.(type) {
	case nil:
		return nil
	case *tg.User:
		return fullUser(u)
	case *tg.UserEmpty:
		return &record.User{ID: id(u.ID), Type: u.TypeName()}
	default:
		return &record.User{Type: typeName(uc)}
	}
}

// Users converts a list in order.
func Users(uu []tg.UserClass) []*record.User {
	out := make([]*record.User, 0, len(uu))
	for _, u := range uu {
		if r := User(u); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func fullUser(u *tg.User) *record.User {
	r := &record.User{
		ID:                   id(u.ID),
		Type:                 u.TypeName(),
		AccessHash:           optID(u.GetAccessHash()),
		FirstName:            opt(u.GetFirstName()),
		LastName:             opt(u.GetLastName()),
		Username:             opt(u.GetUsername()),
		Usernames:            usernames(u.GetUsernames()),
		Phone:                opt(u.GetPhone()),
		Bot:                  u.Bot,
		BotChatHistory:       u.BotChatHistory,
		BotNochats:           u.BotNochats,
		BotInlineGeo:         u.BotInlineGeo,
		BotInlinePlaceholder: opt(u.GetBotInlinePlaceholder()),
		BotInfoVersion:       opt(u.GetBotInfoVersion()),
		BotAttachMenu:        u.BotAttachMenu,
		BotCanEdit:           u.BotCanEdit,
		Verified:             u.Verified,
		Restricted:           u.Restricted,
		RestrictionReason:    restrictions(u.GetRestrictionReason()),
		Scam:                 u.Scam,
		Fake:                 u.Fake,
		Premium:              u.Premium,
		Self:                 u.Self,
		Contact:              u.Contact,
		MutualContact:        u.MutualContact,
		Deleted:              u.Deleted,
		Support:              u.Support,
		Min:                  u.Min,
		ApplyMinPhoto:        u.ApplyMinPhoto,
		LangCode:             opt(u.GetLangCode()),
		StoriesMaxID:         opt(u.GetStoriesMaxID()),
		StoriesUnavailable:   u.StoriesUnavailable,
	}
	if st, ok := u.GetStatus(); ok {
		r.Status = status(st)
	}
	if c, ok := u.GetColor(); ok {
		r.Color = color(c)
	}
	if c, ok := u.GetProfileColor(); ok {
		r.ProfileColor = color(c)
	}
	if es, ok := u.GetEmojiStatus(); ok {
		r.EmojiStatus = emojiStatus(es)
	}
	return r
}

func status(st tg.UserStatusClass) *record.Status {
	if st == nil {
		return nil
	}
	s := &record.Status{Type: st.TypeName()}
	switch v := st.(type) {
	case *tg.UserStatusOnline:
		s.Expires = opt(v.Expires, true)
	case *tg.UserStatusOffline:
		s.WasOnline = opt(v.WasOnline, true)
	}
	return s
}

func color(c tg.PeerColor) *record.Color {
	return &record.Color{
		Color:             opt(c.GetColor()),
		BackgroundEmojiID: optID(c.GetBackgroundEmojiID()),
	}
}

// emojiStatus reads the fields through interfaces since the set of status
// variants grows between layers.
func emojiStatus(es tg.EmojiStatusClass) *record.EmojiStatus {
	if es == nil {
		return nil
	}
	out := &record.EmojiStatus{}
	if d, ok := es.(interface{ GetDocumentID() int64 }); ok {
		out.DocumentID = optID(d.GetDocumentID(), true)
	} else {
		return nil
	}
	if u, ok := es.(interface{ GetUntil() int }); ok {
		out.Until = opt(u.GetUntil(), true)
	}
	return out
}

// Summary is the short identity returned by sign-in.
func Summary(u *tg.User) *record.UserSummary {
	if u == nil {
		return nil
	}
	return &record.UserSummary{
		ID:        id(u.ID),
		FirstName: opt(u.GetFirstName()),
		LastName:  opt(u.GetLastName()),
		Username:  opt(u.GetUsername()),
		Phone:     opt(u.GetPhone()),
	}
}

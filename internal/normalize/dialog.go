package normalize

import (
	"strings"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/pkg/record"
)

type dialogsResult interface {
	GetDialogs() []tg.DialogClass
	GetMessages() []tg.MessageClass
	GetChats() []tg.ChatClass
	GetUsers() []tg.UserClass
}

type msgKey struct {
	peer int64
	id   int
}

// Dialogs converts a dialog listing. Folder entries are skipped.
func Dialogs(res tg.MessagesDialogsClass) []record.Dialog {
	d, ok := res.(dialogsResult)
	if !ok {
		return []record.Dialog{}
	}

	entities := make(map[int64]any)
	for _, u := range d.GetUsers() {
		if u, ok := u.(*tg.User); ok {
			entities[mtproto.MarkUser(u.ID)] = u
		}
	}
	for _, c := range d.GetChats() {
		switch c := c.(type) {
		case *tg.Chat:
			entities[mtproto.MarkChat(c.ID)] = c
		case *tg.ChatForbidden:
			entities[mtproto.MarkChat(c.ID)] = c
		case *tg.Channel:
			entities[mtproto.MarkChannel(c.ID)] = c
		case *tg.ChannelForbidden:
			entities[mtproto.MarkChannel(c.ID)] = c
		}
	}
	messages := make(map[msgKey]tg.MessageClass)
	for _, m := range d.GetMessages() {
		if p, ok := m.(interface{ GetPeerID() tg.PeerClass }); ok {
			messages[msgKey{mtproto.MarkPeer(p.GetPeerID()), m.GetID()}] = m
		}
	}

	out := make([]record.Dialog, 0, len(d.GetDialogs()))
	for _, dc := range d.GetDialogs() {
		dlg, ok := dc.(*tg.Dialog)
		if !ok {
			continue
		}
		marked := mtproto.MarkPeer(dlg.Peer)
		r := record.Dialog{
			ID:                  id(marked),
			UnreadCount:         dlg.UnreadCount,
			UnreadMentionsCount: dlg.UnreadMentionsCount,
			Pinned:              dlg.Pinned,
		}
		r.Title, r.IsUser, r.IsGroup, r.IsChannel = describe(entities[marked])
		r.Name = r.Title
		if m, ok := messages[msgKey{marked, dlg.TopMessage}]; ok {
			r.LastMessage = Message(m)
			r.Date = r.LastMessage.Date
		}
		out = append(out, r)
	}
	return out
}

// describe returns the display title and the kind flags of a dialog peer.
func describe(e any) (title string, isUser, isGroup, isChannel bool) {
	switch e := e.(type) {
	case *tg.User:
		first, _ := e.GetFirstName()
		last, _ := e.GetLastName()
		return strings.TrimSpace(first + " " + last), true, false, false
	case *tg.Chat:
		return e.Title, false, true, false
	case *tg.ChatForbidden:
		return e.Title, false, true, false
	case *tg.Channel:
		return e.Title, false, e.Megagroup, true
	case *tg.ChannelForbidden:
		return e.Title, false, e.Megagroup, true
	default:
		return "", false, false, false
	}
}

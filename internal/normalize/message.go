package normalize

import (
	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/pkg/record"
)

// Message converts any message variant. It returns nil for nil.
func Message(mc tg.MessageClass) *record.Message {
	switch m := mc.(type) {
	case nil:
		return nil
	case *tg.Message:
		return message(m)
	case *tg.MessageService:
		r := &record.Message{
			ID:          id(m.ID),
			Type:        m.TypeName(),
			Date:        opt(m.Date, true),
			Direction:   direction(m.Out),
			Out:         m.Out,
			Mentioned:   m.Mentioned,
			MediaUnread: m.MediaUnread,
			Silent:      m.Silent,
			Post:        m.Post,
			FromID:      peerID(m.GetFromID()),
			PeerID:      peerID(m.PeerID, true),
		}
		if rt, ok := m.GetReplyTo(); ok {
			r.ReplyToMsgID = replyTo(rt)
		}
		if m.Action != nil {
			r.Action = opt(m.Action.TypeName(), true)
		}
		return r
	case *tg.MessageEmpty:
		return &record.Message{
			ID:        id(m.ID),
			Type:      m.TypeName(),
			Direction: record.DirectionIn,
			PeerID:    peerID(m.GetPeerID()),
		}
	default:
		return &record.Message{ID: unknown(mc).ID, Type: typeName(mc), Direction: record.DirectionIn}
	}
}

func message(m *tg.Message) *record.Message {
	r := &record.Message{
		ID:            id(m.ID),
		Type:          m.TypeName(),
		Date:          opt(m.Date, true),
		Text:          m.Message,
		Direction:     direction(m.Out),
		Out:           m.Out,
		Mentioned:     m.Mentioned,
		MediaUnread:   m.MediaUnread,
		Silent:        m.Silent,
		Post:          m.Post,
		FromScheduled: m.FromScheduled,
		EditDate:      opt(m.GetEditDate()),
		PostAuthor:    opt(m.GetPostAuthor()),
		Views:         opt(m.GetViews()),
		Forwards:      opt(m.GetForwards()),
		FromID:        peerID(m.GetFromID()),
		PeerID:        peerID(m.PeerID, true),
	}
	if rt, ok := m.GetReplyTo(); ok {
		r.ReplyToMsgID = replyTo(rt)
	}
	if media, ok := m.GetMedia(); ok && media != nil {
		r.HasMedia = true
		r.MediaType = opt(media.TypeName(), true)
	}
	return r
}

func direction(out bool) record.Direction {
	if out {
		return record.DirectionOut
	}
	return record.DirectionIn
}

func peerID(p tg.PeerClass, ok bool) *string {
	if !ok {
		return nil
	}
	bare, ok := mtproto.BareID(p)
	return optID(bare, ok)
}

func replyTo(rt tg.MessageReplyHeaderClass) *string {
	h, ok := rt.(*tg.MessageReplyHeader)
	if !ok {
		return nil
	}
	return optID(h.GetReplyToMsgID())
}

// Messages converts the messages of a history or search result.
func Messages(res tg.MessagesMessagesClass) []*record.Message {
	mod, ok := res.(interface{ GetMessages() []tg.MessageClass })
	if !ok {
		return []*record.Message{}
	}
	return messageList(mod.GetMessages())
}

func messageList(mm []tg.MessageClass) []*record.Message {
	out := make([]*record.Message, 0, len(mm))
	for _, m := range mm {
		if r := Message(m); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// FromUpdates extracts the messages carried by the result of a send, edit or
// forward, in update order.
func FromUpdates(u tg.UpdatesClass) []*record.Message {
	var updates []tg.UpdateClass
	switch v := u.(type) {
	case *tg.Updates:
		updates = v.Updates
	case *tg.UpdatesCombined:
		updates = v.Updates
	case *tg.UpdateShort:
		updates = []tg.UpdateClass{v.Update}
	case *tg.UpdateShortSentMessage:
		return []*record.Message{sentMessage(v)}
	default:
		return []*record.Message{}
	}

	out := make([]*record.Message, 0, 1)
	for _, up := range updates {
		var m tg.MessageClass
		switch up := up.(type) {
		case *tg.UpdateNewMessage:
			m = up.Message
		case *tg.UpdateNewChannelMessage:
			m = up.Message
		case *tg.UpdateEditMessage:
			m = up.Message
		case *tg.UpdateEditChannelMessage:
			m = up.Message
		case *tg.UpdateNewScheduledMessage:
			m = up.Message
		default:
			continue
		}
		if r := Message(m); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// sentMessage covers the short form the server uses for private sends,
// which omits the text and peer.
func sentMessage(v *tg.UpdateShortSentMessage) *record.Message {
	r := &record.Message{
		ID:        id(v.ID),
		Type:      v.TypeName(),
		Date:      opt(v.Date, true),
		Direction: record.DirectionOut,
		Out:       v.Out,
	}
	if media, ok := v.GetMedia(); ok && media != nil {
		r.HasMedia = true
		r.MediaType = opt(media.TypeName(), true)
	}
	return r
}

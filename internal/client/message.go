package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/crypto"
	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/normalize"
	"github.com/flemzord/tgflow/internal/paginate"
	"github.com/flemzord/tgflow/pkg/record"
)

// historyPageSize is the server cap for history and search requests.
const historyPageSize = 100

// defaultMessageLimit applies when a listing gives no limit.
const defaultMessageLimit = 50

// SendOptions tune a send.
type SendOptions struct {
	// ParseMode is "html", "md" or empty. Text is sent as given in every mode.
	ParseMode string `json:"parseMode"`
	Silent    bool   `json:"silent"`
	ReplyTo   int    `json:"replyTo"`
	// ScheduleDate is an RFC 3339 timestamp. Empty sends immediately.
	ScheduleDate string `json:"scheduleDate"`
}

// scheduleLayouts are accepted for ScheduleDate, most specific first.
var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func (o SendOptions) schedule() (int, error) {
	if o.ScheduleDate == "" {
		return 0, nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, o.ScheduleDate); err == nil {
			return int(t.Unix()), nil
		}
	}
	return 0, errs.Configf("schedule date %q is not an RFC 3339 timestamp", o.ScheduleDate)
}

func (o SendOptions) replyTo() tg.InputReplyToClass {
	if o.ReplyTo == 0 {
		return nil
	}
	return &tg.InputReplyToMessage{ReplyToMsgID: o.ReplyTo}
}

// MediaKind selects how an upload is presented.
type MediaKind string

// Media kinds.
const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
)

// Media is a file to send.
type Media struct {
	Kind     MediaKind
	Data     []byte
	FileName string
	MimeType string
	Caption  string
}

// HistoryOptions bound a history read.
type HistoryOptions struct {
	Limit    int `json:"limit"`
	OffsetID int `json:"offsetId"`
	MinID    int `json:"minId"`
	MaxID    int `json:"maxId"`
}

// SearchOptions bound a message search.
type SearchOptions struct {
	Limit int `json:"limit"`
	// FromUser restricts results to one sender identifier.
	FromUser string `json:"fromUser"`
	// Filter is one of photos, videos, documents, links, voice or empty.
	Filter string `json:"filterType"`
}

func searchFilter(name string) (tg.MessagesFilterClass, error) {
	switch name {
	case "", "none":
		return &tg.InputMessagesFilterEmpty{}, nil
	case "photos":
		return &tg.InputMessagesFilterPhotos{}, nil
	case "videos":
		return &tg.InputMessagesFilterVideo{}, nil
	case "documents":
		return &tg.InputMessagesFilterDocument{}, nil
	case "links":
		return &tg.InputMessagesFilterURL{}, nil
	case "voice":
		return &tg.InputMessagesFilterVoice{}, nil
	default:
		return nil, errs.Configf("unknown search filter %q", name)
	}
}

func randomID() (int64, error) {
	id, err := crypto.RandInt64(rand.Reader)
	if err != nil {
		return 0, fmt.Errorf("client: random id: %w", err)
	}
	return id, nil
}

// peer resolves identifier and checks it belongs to this connection.
func (c *Client) peer(ctx context.Context, identifier string) (mtproto.PeerRef, error) {
	p, err := c.Resolve(ctx, identifier)
	if err != nil {
		return mtproto.PeerRef{}, err
	}
	return p, c.own(p)
}

// sent picks the message out of a send result. The short form used for
// private chats omits the text and peer, so those are filled in.
func sent(u tg.UpdatesClass, text string, p mtproto.PeerRef) (*record.Message, error) {
	msgs := normalize.FromUpdates(u)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("client: no message in %s response", u.TypeName())
	}
	m := msgs[0]
	if _, short := u.(*tg.UpdateShortSentMessage); short {
		m.Text = text
		_, bare := mtproto.Unmark(p.ID)
		id := fmt.Sprint(bare)
		m.PeerID = &id
	}
	return m, nil
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, opts SendOptions) (*record.Message, error) {
	return call(ctx, c, "sendMessage", func(ctx context.Context, conn mtproto.Conn) (*record.Message, error) {
		if strings.TrimSpace(text) == "" {
			return nil, errs.Configf("message text is required")
		}
		schedule, err := opts.schedule()
		if err != nil {
			return nil, err
		}
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		rid, err := randomID()
		if err != nil {
			return nil, err
		}
		upd, err := conn.API().MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
			Peer:         p.Input,
			Message:      text,
			RandomID:     rid,
			Silent:       opts.Silent,
			ReplyTo:      opts.replyTo(),
			ScheduleDate: schedule,
		})
		if err != nil {
			return nil, rpcErr("send message", err)
		}
		return sent(upd, text, p)
	})
}

// SendMedia uploads a photo or document and sends it with an optional caption.
func (c *Client) SendMedia(ctx context.Context, chatID string, media Media, opts SendOptions) (*record.Message, error) {
	return call(ctx, c, "sendMedia", func(ctx context.Context, conn mtproto.Conn) (*record.Message, error) {
		if len(media.Data) == 0 {
			return nil, errs.Configf("media data is empty")
		}
		name := media.FileName
		if name == "" {
			name = "file"
		}
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		file, err := conn.Upload(ctx, name, media.Data)
		if err != nil {
			return nil, err
		}

		var input tg.InputMediaClass
		switch media.Kind {
		case MediaPhoto:
			input = &tg.InputMediaUploadedPhoto{File: file}
		case MediaDocument, "":
			mime := media.MimeType
			if mime == "" {
				mime = "application/octet-stream"
			}
			input = &tg.InputMediaUploadedDocument{
				ForceFile:  true,
				File:       file,
				MimeType:   mime,
				Attributes: []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: name}},
			}
		default:
			return nil, errs.Configf("unknown media type %q", media.Kind)
		}

		rid, err := randomID()
		if err != nil {
			return nil, err
		}
		upd, err := conn.API().MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
			Peer:     p.Input,
			Media:    input,
			Message:  media.Caption,
			RandomID: rid,
			Silent:   opts.Silent,
			ReplyTo:  opts.replyTo(),
		})
		if err != nil {
			return nil, rpcErr("send media", err)
		}
		return sent(upd, media.Caption, p)
	})
}

// GetMessages reads the history of a chat, newest first.
func (c *Client) GetMessages(ctx context.Context, chatID string, opts HistoryOptions) ([]*record.Message, error) {
	p, err := c.peer(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return c.History(ctx, p, opts)
}

// History reads the history of an already resolved peer.
func (c *Client) History(ctx context.Context, p mtproto.PeerRef, opts HistoryOptions) ([]*record.Message, error) {
	return call(ctx, c, "getMessages", func(ctx context.Context, conn mtproto.Conn) ([]*record.Message, error) {
		if err := c.own(p); err != nil {
			return nil, err
		}
		limit := opts.Limit
		if limit <= 0 {
			limit = defaultMessageLimit
		}
		fetch := func(ctx context.Context, offset, n int) ([]*record.Message, error) {
			res, err := conn.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:      p.Input,
				OffsetID:  opts.OffsetID,
				AddOffset: offset,
				Limit:     n,
				MinID:     opts.MinID,
				MaxID:     opts.MaxID,
			})
			if err != nil {
				return nil, rpcErr("get history", err)
			}
			return normalize.Messages(res), nil
		}
		return paginate.Collect(ctx, fetch, paginate.Options{Limit: limit, PageSize: historyPageSize})
	})
}

// SearchMessages searches a chat for query.
func (c *Client) SearchMessages(ctx context.Context, chatID, query string, opts SearchOptions) ([]*record.Message, error) {
	return call(ctx, c, "searchMessages", func(ctx context.Context, conn mtproto.Conn) ([]*record.Message, error) {
		filter, err := searchFilter(opts.Filter)
		if err != nil {
			return nil, err
		}
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		var from tg.InputPeerClass
		if opts.FromUser != "" {
			sender, err := c.peer(ctx, opts.FromUser)
			if err != nil {
				return nil, err
			}
			from = sender.Input
		}
		limit := opts.Limit
		if limit <= 0 {
			limit = defaultMessageLimit
		}
		fetch := func(ctx context.Context, offset, n int) ([]*record.Message, error) {
			res, err := conn.API().MessagesSearch(ctx, &tg.MessagesSearchRequest{
				Peer:      p.Input,
				Q:         query,
				FromID:    from,
				Filter:    filter,
				AddOffset: offset,
				Limit:     n,
			})
			if err != nil {
				return nil, rpcErr("search messages", err)
			}
			return normalize.Messages(res), nil
		}
		return paginate.Collect(ctx, fetch, paginate.Options{Limit: limit, PageSize: historyPageSize})
	})
}

// EditMessage replaces the text of a message.
func (c *Client) EditMessage(ctx context.Context, chatID string, messageID int, text string) (*record.Message, error) {
	return call(ctx, c, "editMessage", func(ctx context.Context, conn mtproto.Conn) (*record.Message, error) {
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return nil, err
		}
		upd, err := conn.API().MessagesEditMessage(ctx, &tg.MessagesEditMessageRequest{
			Peer:    p.Input,
			ID:      messageID,
			Message: text,
		})
		if err != nil {
			return nil, rpcErr("edit message", err)
		}
		return sent(upd, text, p)
	})
}

// DeleteMessages deletes messages for everyone. The count is the number of
// IDs requested; the server does not report per-ID outcomes.
func (c *Client) DeleteMessages(ctx context.Context, chatID string, ids []int) (record.Deleted, error) {
	return call(ctx, c, "deleteMessages", func(ctx context.Context, conn mtproto.Conn) (record.Deleted, error) {
		if len(ids) == 0 {
			return record.Deleted{}, errs.Configf("at least one message id is required")
		}
		p, err := c.peer(ctx, chatID)
		if err != nil {
			return record.Deleted{}, err
		}
		if ch, ok := p.InputChannel(); ok {
			_, err = conn.API().ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{Channel: ch, ID: ids})
		} else {
			_, err = conn.API().MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{Revoke: true, ID: ids})
		}
		if err != nil {
			return record.Deleted{}, rpcErr("delete messages", err)
		}
		return record.Deleted{Success: true, DeletedCount: len(ids)}, nil
	})
}

// ForwardMessages forwards messages between chats. The result is always a
// list, one entry per forwarded message.
func (c *Client) ForwardMessages(ctx context.Context, fromChatID, toChatID string, ids []int) ([]*record.Message, error) {
	return call(ctx, c, "forwardMessages", func(ctx context.Context, conn mtproto.Conn) ([]*record.Message, error) {
		if len(ids) == 0 {
			return nil, errs.Configf("at least one message id is required")
		}
		from, err := c.peer(ctx, fromChatID)
		if err != nil {
			return nil, err
		}
		to, err := c.peer(ctx, toChatID)
		if err != nil {
			return nil, err
		}
		rids := make([]int64, len(ids))
		for i := range rids {
			if rids[i], err = randomID(); err != nil {
				return nil, err
			}
		}
		upd, err := conn.API().MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
			FromPeer: from.Input,
			ToPeer:   to.Input,
			ID:       ids,
			RandomID: rids,
		})
		if err != nil {
			return nil, rpcErr("forward messages", err)
		}
		return normalize.FromUpdates(upd), nil
	})
}

package client

import (
	"context"
	"errors"
	"testing"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/pkg/record"
)

const channelMarked = "-1000000000077"

func TestDeleteMessages(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	got, err := c.DeleteMessages(ctx, "-42", []int{10, 11, 12})
	if err != nil {
		t.Fatalf("DeleteMessages: %v", err)
	}
	if got != (record.Deleted{Success: true, DeletedCount: 3}) {
		t.Errorf("result = %+v", got)
	}
	if len(api.deleted) != 1 || len(api.deleted[0]) != 3 || len(api.channelDeleted) != 0 {
		t.Errorf("deleted = %v, channel = %v", api.deleted, api.channelDeleted)
	}

	if _, err := c.DeleteMessages(ctx, channelMarked, []int{5}); err != nil {
		t.Fatalf("DeleteMessages(channel): %v", err)
	}
	if len(api.channelDeleted) != 1 {
		t.Errorf("channel deletes = %d, want 1", len(api.channelDeleted))
	}

	if _, err := c.DeleteMessages(ctx, "-42", nil); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("empty ids = %v", err)
	}
}

func TestForwardSingleMessageIsList(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)

	got, err := c.ForwardMessages(context.Background(), "-42", "@news", []int{7})
	if err != nil {
		t.Fatalf("ForwardMessages: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	req := api.forwarded[0]
	if len(req.RandomID) != 1 || req.ID[0] != 7 {
		t.Errorf("request = %+v", req)
	}
	if _, ok := req.ToPeer.(*tg.InputPeerChannel); !ok {
		t.Errorf("to peer = %T", req.ToPeer)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	msg, err := c.SendMessage(ctx, "@alice", "hello", SendOptions{
		Silent:       true,
		ReplyTo:      3,
		ScheduleDate: "2030-01-02T03:04:05Z",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID != "500" || msg.Text != "hello" || msg.PeerID == nil || *msg.PeerID != "1" {
		t.Errorf("message = %+v", msg)
	}

	req := api.sent[0]
	if !req.Silent || req.ScheduleDate != 1893553445 {
		t.Errorf("silent = %v, schedule = %d", req.Silent, req.ScheduleDate)
	}
	if r, ok := req.ReplyTo.(*tg.InputReplyToMessage); !ok || r.ReplyToMsgID != 3 {
		t.Errorf("reply to = %#v", req.ReplyTo)
	}
	if _, ok := req.Peer.(*tg.InputPeerUser); !ok {
		t.Errorf("peer = %T", req.Peer)
	}

	group, err := c.SendMessage(ctx, "-42", "to the group", SendOptions{})
	if err != nil {
		t.Fatalf("SendMessage(group): %v", err)
	}
	if group.ID != "501" || group.Text != "to the group" {
		t.Errorf("group message = %+v", group)
	}
}

func TestSendMessageRejectsInput(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		opts SendOptions
	}{
		{"empty text", "  ", SendOptions{}},
		{"bad schedule", "hi", SendOptions{ScheduleDate: "tomorrow"}},
	}
	for _, tt := range tests {
		if _, err := c.SendMessage(ctx, "@alice", tt.text, tt.opts); !errors.Is(err, errs.ErrConfiguration) {
			t.Errorf("%s: err = %v, want configuration error", tt.name, err)
		}
	}
	if len(api.sent) != 0 {
		t.Errorf("sent %d requests", len(api.sent))
	}
}

func TestSendMedia(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, conn := connected(t, api)

	msg, err := c.SendMedia(context.Background(), "-42", Media{
		Kind:     MediaDocument,
		Data:     []byte("%PDF"),
		FileName: "report.pdf",
		Caption:  "Q3",
	}, SendOptions{})
	if err != nil {
		t.Fatalf("SendMedia: %v", err)
	}
	if !msg.HasMedia || msg.Text != "Q3" {
		t.Errorf("message = %+v", msg)
	}
	if up := conn.Uploads(); len(up) != 1 || up[0] != "report.pdf" {
		t.Errorf("uploads = %v", up)
	}
	doc, ok := api.media[0].Media.(*tg.InputMediaUploadedDocument)
	if !ok || doc.MimeType != "application/octet-stream" {
		t.Errorf("media = %#v", api.media[0].Media)
	}

	if _, err := c.SendMedia(context.Background(), "-42", Media{Kind: "sticker", Data: []byte{1}}, SendOptions{}); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("unknown kind = %v", err)
	}
}

func TestGetMessagesPages(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)

	got, err := c.GetMessages(context.Background(), "-42", HistoryOptions{Limit: 150})
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(got) != 120 {
		t.Fatalf("len = %d, want 120", len(got))
	}
	if len(api.historyReq) != 2 {
		t.Fatalf("requests = %d, want 2", len(api.historyReq))
	}
	if api.historyReq[0].Limit != 100 || api.historyReq[1].AddOffset != 100 {
		t.Errorf("first = %+v, second = %+v", api.historyReq[0], api.historyReq[1])
	}
}

func TestGetChannelMembers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     MembersOptions
		want     int
		requests int
	}{
		{"bounded", MembersOptions{Limit: 50}, 50, 1},
		{"return all", MembersOptions{ReturnAll: true}, 410, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			api := newFakeAPI()
			c, _ := connected(t, api)

			got, err := c.GetChannelMembers(context.Background(), "@news", tt.opts)
			if err != nil {
				t.Fatalf("GetChannelMembers: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
			if len(api.participantReq) != tt.requests {
				t.Errorf("requests = %d, want %d", len(api.participantReq), tt.requests)
			}
			seen := make(map[string]bool, len(got))
			for _, u := range got {
				if seen[u.ID] {
					t.Fatalf("duplicate member %s", u.ID)
				}
				seen[u.ID] = true
			}
		})
	}
}

func TestGetChannelMembersNonChannel(t *testing.T) {
	t.Parallel()

	c, _ := connected(t, newFakeAPI())
	got, err := c.GetChannelMembers(context.Background(), "-42", MembersOptions{Limit: 10})
	if err != nil {
		t.Fatalf("GetChannelMembers: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty list", got)
	}
}

func TestJoinChannel(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	inv, err := c.JoinChannel(ctx, "https://t.me/+AbCdEf")
	if err != nil {
		t.Fatalf("JoinChannel(invite): %v", err)
	}
	if inv.Via != "invite" || len(api.imported) != 1 || api.imported[0] != "AbCdEf" {
		t.Errorf("invite join = %+v, imported = %v", inv, api.imported)
	}
	if len(inv.Chats) != 1 {
		t.Errorf("chats = %v", inv.Chats)
	}

	pub, err := c.JoinChannel(ctx, "@news")
	if err != nil {
		t.Fatalf("JoinChannel(username): %v", err)
	}
	if pub.Via != "username" || api.joined != 1 {
		t.Errorf("public join = %+v, joined = %d", pub, api.joined)
	}

	if _, err := c.JoinChannel(ctx, "@alice"); !errors.Is(err, errs.ErrPeerKind) {
		t.Errorf("JoinChannel(user) = %v, want ErrPeerKind", err)
	}
}

func TestLeave(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	if res, err := c.LeaveChannel(ctx, "@news"); err != nil || !res.Success {
		t.Fatalf("LeaveChannel = %+v, %v", res, err)
	}
	if _, err := c.LeaveChannel(ctx, "-42"); !errors.Is(err, errs.ErrPeerKind) {
		t.Errorf("LeaveChannel(group) = %v", err)
	}
	if res, err := c.LeaveChat(ctx, channelMarked); err != nil || !res.Success {
		t.Fatalf("LeaveChat = %+v, %v", res, err)
	}
	if api.left != 2 {
		t.Errorf("left = %d, want 2", api.left)
	}
}

func TestGetChannelInfo(t *testing.T) {
	t.Parallel()

	c, _ := connected(t, newFakeAPI())
	got, err := c.GetChannelInfo(context.Background(), "@news")
	if err != nil {
		t.Fatalf("GetChannelInfo: %v", err)
	}
	info, ok := got.(*record.ChannelInfo)
	if !ok {
		t.Fatalf("type = %T", got)
	}
	if info.FullInfo == nil || info.FullInfo.About != "news channel" {
		t.Errorf("full info = %+v", info.FullInfo)
	}
}

func TestGetChatMembers(t *testing.T) {
	t.Parallel()

	c, _ := connected(t, newFakeAPI())
	got, err := c.GetChatMembers(context.Background(), "-42", 2)
	if err != nil {
		t.Fatalf("GetChatMembers: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestContactLookups(t *testing.T) {
	t.Parallel()

	c, _ := connected(t, newFakeAPI())
	ctx := context.Background()

	tests := []struct {
		id   string
		want string
	}{
		{"2", "2"},
		{"@ALICE", "1"},
		{"+1 555 987 6543", "2"},
	}
	for _, tt := range tests {
		u, err := c.GetUserFromContacts(ctx, tt.id)
		if err != nil {
			t.Errorf("GetUserFromContacts(%q): %v", tt.id, err)
			continue
		}
		if u.ID != tt.want {
			t.Errorf("GetUserFromContacts(%q) = %s, want %s", tt.id, u.ID, tt.want)
		}
	}
	if _, err := c.GetUserFromContacts(ctx, "@carol"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing contact = %v", err)
	}

	all, err := c.GetContacts(ctx)
	if err != nil || len(all) != 2 {
		t.Errorf("GetContacts = %d, %v", len(all), err)
	}

	found, err := c.SearchContacts(ctx, "a", 0)
	if err != nil || len(found) != 2 {
		t.Fatalf("SearchContacts = %v, %v", found, err)
	}
	if _, ok := found[0].(*record.User); !ok {
		t.Errorf("first result = %T, want user", found[0])
	}
}

func TestGetUserByUsername(t *testing.T) {
	t.Parallel()

	c, _ := connected(t, newFakeAPI())
	ctx := context.Background()

	u, err := c.GetUserByUsername(ctx, "@alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.FirstName == nil || *u.FirstName != "Alice" {
		t.Errorf("first name = %v", u.FirstName)
	}
	if _, err := c.GetUserByUsername(ctx, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("ghost = %v, want not found", err)
	}
}

func TestGetUserFromChannel(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	u, err := c.GetUserFromChannel(ctx, "1305", "@news")
	if err != nil {
		t.Fatalf("GetUserFromChannel: %v", err)
	}
	if u.ID != "1305" {
		t.Errorf("id = %s", u.ID)
	}
	if len(api.participantReq) != 2 {
		t.Errorf("requests = %d, want 2", len(api.participantReq))
	}

	if _, err := c.GetUserFromChannel(ctx, "9999", "@news"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing member = %v", err)
	}

	g, err := c.GetUserFromChannel(ctx, "@bob", "-42")
	if err != nil || g.ID != "2" {
		t.Errorf("group member = %+v, %v", g, err)
	}

	if _, err := c.GetUserFromChannel(ctx, "1", "@alice"); !errors.Is(err, errs.ErrPeerKind) {
		t.Errorf("user peer = %v, want ErrPeerKind", err)
	}
}

func TestSearchMessages(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)
	ctx := context.Background()

	got, err := c.SearchMessages(ctx, "-42", "hello", SearchOptions{Limit: 25, FromUser: "@alice", Filter: "photos"})
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(got) != 25 || got[0].Text != "hello" {
		t.Fatalf("got %d messages, first = %+v", len(got), got[0])
	}
	req := api.searchReq[0]
	if _, ok := req.Filter.(*tg.InputMessagesFilterPhotos); !ok {
		t.Errorf("filter = %T", req.Filter)
	}
	if from, ok := req.FromID.(*tg.InputPeerUser); !ok || from.UserID != 1 {
		t.Errorf("from = %#v", req.FromID)
	}

	all, err := c.SearchMessages(ctx, "-42", "x", SearchOptions{Limit: 500})
	if err != nil || len(all) != 30 {
		t.Errorf("SearchMessages(limit 500) = %d, %v", len(all), err)
	}

	if _, err := c.SearchMessages(ctx, "-42", "x", SearchOptions{Filter: "gifs"}); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("unknown filter = %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	c, _ := connected(t, api)

	msg, err := c.EditMessage(context.Background(), "-42", 501, "fixed")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if msg.ID != "501" || msg.Text != "fixed" || msg.EditDate == nil {
		t.Errorf("message = %+v", msg)
	}
	if len(api.edited) != 1 || api.edited[0].ID != 501 {
		t.Errorf("edited = %+v", api.edited)
	}
}

func TestGetDialogs(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.dialogs = &tg.MessagesDialogs{
		Dialogs: []tg.DialogClass{
			&tg.Dialog{Peer: &tg.PeerUser{UserID: 1}, TopMessage: 7, UnreadCount: 2},
			&tg.Dialog{Peer: &tg.PeerChat{ChatID: 42}, TopMessage: 9},
			&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: testChannelID}, TopMessage: 3},
		},
		Messages: []tg.MessageClass{
			&tg.Message{ID: 7, Message: "hi", PeerID: &tg.PeerUser{UserID: 1}, Date: 1700000000},
			&tg.Message{ID: 9, Message: "group", PeerID: &tg.PeerChat{ChatID: 42}},
		},
		Users: []tg.UserClass{api.users[0]},
		Chats: api.chats,
	}
	c, _ := connected(t, api)

	got, err := c.GetDialogs(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetDialogs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].IsUser || got[0].Title != "Alice" || got[0].UnreadCount != 2 {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].LastMessage == nil || got[0].LastMessage.Text != "hi" || got[0].Date == nil {
		t.Errorf("last message = %+v", got[0].LastMessage)
	}
	if !got[1].IsGroup || got[1].ID != "-42" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestGetChatInfo(t *testing.T) {
	t.Parallel()

	c, _ := connected(t, newFakeAPI())
	ctx := context.Background()

	chat, err := c.GetChatInfo(ctx, "-42")
	if err != nil {
		t.Fatalf("GetChatInfo(group): %v", err)
	}
	if g, ok := chat.(*record.Chat); !ok || g.Title != "Group" {
		t.Errorf("group = %#v", chat)
	}

	ch, err := c.GetChatInfo(ctx, "@news")
	if err != nil {
		t.Fatalf("GetChatInfo(channel): %v", err)
	}
	if _, ok := ch.(*record.Channel); !ok {
		t.Errorf("channel = %T", ch)
	}
}

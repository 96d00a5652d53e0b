package client

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/mtproto/mtprototest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI is a small in-memory server: users and chats are reachable by
// handle or ID, and channel 77 has members users 1000..1000+members-1.
type fakeAPI struct {
	mtprototest.API

	mu       sync.Mutex
	self     *tg.User
	users    []*tg.User
	chats    []tg.ChatClass
	contacts []tg.UserClass
	members  int

	sent           []*tg.MessagesSendMessageRequest
	media          []*tg.MessagesSendMediaRequest
	deleted        [][]int
	channelDeleted [][]int
	forwarded      []*tg.MessagesForwardMessagesRequest
	participantReq []*tg.ChannelsGetParticipantsRequest
	historyReq     []*tg.MessagesGetHistoryRequest
	searchReq      []*tg.MessagesSearchRequest
	edited         []*tg.MessagesEditMessageRequest
	dialogs        tg.MessagesDialogsClass
	imported       []string
	joined         int
	left           int
}

const testChannelID = 77

func newFakeAPI() *fakeAPI {
	alice := mtprototest.User(1, 11, "alice", "15551234567")
	alice.SetFirstName("Alice")
	bob := mtprototest.User(2, 22, "bob", "15559876543")
	me := mtprototest.User(99, 0, "me_user", "")
	me.Self = true
	return &fakeAPI{
		self:     me,
		users:    []*tg.User{alice, bob},
		contacts: []tg.UserClass{alice, bob},
		chats: []tg.ChatClass{
			&tg.Chat{ID: 42, Title: "Group", ParticipantsCount: 3},
			mtprototest.Channel(testChannelID, 770, "News", "news"),
		},
		members: 410,
	}
}

func (a *fakeAPI) findChat(marked int64) tg.ChatClass {
	for _, c := range a.chats {
		switch c := c.(type) {
		case *tg.Chat:
			if mtproto.MarkChat(c.ID) == marked {
				return c
			}
		case *tg.Channel:
			if mtproto.MarkChannel(c.ID) == marked {
				return c
			}
		}
	}
	return nil
}

func (a *fakeAPI) UsersGetUsers(_ context.Context, ids []tg.InputUserClass) ([]tg.UserClass, error) {
	var out []tg.UserClass
	for _, in := range ids {
		switch in := in.(type) {
		case *tg.InputUserSelf:
			out = append(out, a.self)
		case *tg.InputUser:
			for _, u := range a.users {
				if u.ID == in.UserID {
					out = append(out, u)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, tgerr.New(400, "USER_ID_INVALID")
	}
	return out, nil
}

func (a *fakeAPI) MessagesGetChats(_ context.Context, ids []int64) (tg.MessagesChatsClass, error) {
	var out []tg.ChatClass
	for _, id := range ids {
		if c := a.findChat(mtproto.MarkChat(id)); c != nil {
			out = append(out, c)
		}
	}
	return &tg.MessagesChats{Chats: out}, nil
}

func (a *fakeAPI) ChannelsGetChannels(_ context.Context, ids []tg.InputChannelClass) (tg.MessagesChatsClass, error) {
	var out []tg.ChatClass
	for _, in := range ids {
		if in, ok := in.(*tg.InputChannel); ok {
			if c := a.findChat(mtproto.MarkChannel(in.ChannelID)); c != nil {
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 {
		return nil, tgerr.New(400, "CHANNEL_INVALID")
	}
	return &tg.MessagesChats{Chats: out}, nil
}

func (a *fakeAPI) MessagesGetDialogs(context.Context, *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	if a.dialogs != nil {
		return a.dialogs, nil
	}
	return &tg.MessagesDialogs{}, nil
}

func (a *fakeAPI) ContactsResolveUsername(_ context.Context, name string) (*tg.ContactsResolvedPeer, error) {
	for _, u := range a.users {
		if un, _ := u.GetUsername(); un == name {
			return &tg.ContactsResolvedPeer{Peer: &tg.PeerUser{UserID: u.ID}, Users: []tg.UserClass{u}}, nil
		}
	}
	for _, c := range a.chats {
		if ch, ok := c.(*tg.Channel); ok {
			if un, _ := ch.GetUsername(); un == name {
				return &tg.ContactsResolvedPeer{Peer: &tg.PeerChannel{ChannelID: ch.ID}, Chats: []tg.ChatClass{ch}}, nil
			}
		}
	}
	return nil, tgerr.New(400, "USERNAME_NOT_OCCUPIED")
}

func (a *fakeAPI) MessagesSendMessage(_ context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.sent = append(a.sent, req)
	a.mu.Unlock()
	if _, private := req.Peer.(*tg.InputPeerUser); private {
		return &tg.UpdateShortSentMessage{ID: 500, Out: true, Date: 1700000000}, nil
	}
	msg := &tg.Message{ID: 501, Out: true, Message: req.Message, PeerID: &tg.PeerChat{ChatID: 42}}
	return &tg.Updates{Updates: []tg.UpdateClass{&tg.UpdateNewMessage{Message: msg}}}, nil
}

func (a *fakeAPI) MessagesSendMedia(_ context.Context, req *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.media = append(a.media, req)
	a.mu.Unlock()
	msg := &tg.Message{ID: 502, Out: true, Message: req.Message, PeerID: &tg.PeerChat{ChatID: 42}}
	msg.SetMedia(&tg.MessageMediaDocument{})
	return &tg.Updates{Updates: []tg.UpdateClass{&tg.UpdateNewMessage{Message: msg}}}, nil
}

func (a *fakeAPI) MessagesDeleteMessages(_ context.Context, req *tg.MessagesDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, req.ID)
	// Only one of the IDs existed; the count reported is still the request size.
	return &tg.MessagesAffectedMessages{PtsCount: 1}, nil
}

func (a *fakeAPI) ChannelsDeleteMessages(_ context.Context, req *tg.ChannelsDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channelDeleted = append(a.channelDeleted, req.ID)
	return &tg.MessagesAffectedMessages{}, nil
}

func (a *fakeAPI) MessagesForwardMessages(_ context.Context, req *tg.MessagesForwardMessagesRequest) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.forwarded = append(a.forwarded, req)
	a.mu.Unlock()
	var updates []tg.UpdateClass
	for i := range req.ID {
		updates = append(updates,
			&tg.UpdateMessageID{ID: 600 + i, RandomID: req.RandomID[i]},
			&tg.UpdateNewChannelMessage{Message: &tg.Message{ID: 600 + i, Message: "fwd", PeerID: &tg.PeerChannel{ChannelID: testChannelID}}},
		)
	}
	return &tg.Updates{Updates: updates}, nil
}

func (a *fakeAPI) MessagesGetHistory(_ context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	a.mu.Lock()
	a.historyReq = append(a.historyReq, req)
	a.mu.Unlock()
	var msgs []tg.MessageClass
	for i := 0; i < req.Limit && req.AddOffset+i < 120; i++ {
		msgs = append(msgs, &tg.Message{ID: 1000 - req.AddOffset - i, PeerID: &tg.PeerChat{ChatID: 42}})
	}
	return &tg.MessagesMessages{Messages: msgs}, nil
}

// MessagesSearch holds 30 matches in chat 42.
func (a *fakeAPI) MessagesSearch(_ context.Context, req *tg.MessagesSearchRequest) (tg.MessagesMessagesClass, error) {
	a.mu.Lock()
	a.searchReq = append(a.searchReq, req)
	a.mu.Unlock()
	var msgs []tg.MessageClass
	for i := 0; i < req.Limit && req.AddOffset+i < 30; i++ {
		msgs = append(msgs, &tg.Message{ID: 300 - req.AddOffset - i, Message: req.Q, PeerID: &tg.PeerChat{ChatID: 42}})
	}
	return &tg.MessagesMessages{Messages: msgs}, nil
}

func (a *fakeAPI) MessagesEditMessage(_ context.Context, req *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.edited = append(a.edited, req)
	a.mu.Unlock()
	msg := &tg.Message{ID: req.ID, Out: true, Message: req.Message, PeerID: &tg.PeerChat{ChatID: 42}}
	msg.SetEditDate(1700000100)
	return &tg.Updates{Updates: []tg.UpdateClass{&tg.UpdateEditMessage{Message: msg}}}, nil
}

func (a *fakeAPI) ChannelsGetParticipants(_ context.Context, req *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error) {
	a.mu.Lock()
	a.participantReq = append(a.participantReq, req)
	a.mu.Unlock()
	res := &tg.ChannelsChannelParticipants{Count: a.members}
	for i := req.Offset; i < req.Offset+req.Limit && i < a.members; i++ {
		id := int64(1000 + i)
		res.Participants = append(res.Participants, &tg.ChannelParticipant{UserID: id})
		res.Users = append(res.Users, mtprototest.User(id, id*10, "", ""))
	}
	return res, nil
}

func (a *fakeAPI) ChannelsGetFullChannel(context.Context, tg.InputChannelClass) (*tg.MessagesChatFull, error) {
	full := &tg.ChannelFull{ID: testChannelID, About: "news channel"}
	full.SetParticipantsCount(a.members)
	return &tg.MessagesChatFull{FullChat: full}, nil
}

func (a *fakeAPI) MessagesGetFullChat(context.Context, int64) (*tg.MessagesChatFull, error) {
	return &tg.MessagesChatFull{
		FullChat: &tg.ChatFull{ID: 42},
		Users:    []tg.UserClass{a.users[0], a.users[1], a.self},
	}, nil
}

func (a *fakeAPI) MessagesImportChatInvite(_ context.Context, hash string) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.imported = append(a.imported, hash)
	a.mu.Unlock()
	return &tg.Updates{Chats: []tg.ChatClass{mtprototest.Channel(88, 880, "Private", "")}}, nil
}

func (a *fakeAPI) ChannelsJoinChannel(context.Context, tg.InputChannelClass) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.joined++
	a.mu.Unlock()
	return &tg.Updates{Chats: []tg.ChatClass{a.chats[1]}}, nil
}

func (a *fakeAPI) ChannelsLeaveChannel(context.Context, tg.InputChannelClass) (tg.UpdatesClass, error) {
	a.mu.Lock()
	a.left++
	a.mu.Unlock()
	return &tg.Updates{}, nil
}

func (a *fakeAPI) ContactsGetContacts(context.Context, int64) (tg.ContactsContactsClass, error) {
	return &tg.ContactsContacts{Users: a.contacts}, nil
}

func (a *fakeAPI) ContactsSearch(_ context.Context, req *tg.ContactsSearchRequest) (*tg.ContactsFound, error) {
	return &tg.ContactsFound{
		Users: []tg.UserClass{a.users[0]},
		Chats: []tg.ChatClass{a.chats[1]},
	}, nil
}

func (a *fakeAPI) AuthLogOut(context.Context) (*tg.AuthLoggedOut, error) {
	return &tg.AuthLoggedOut{}, nil
}

var testCreds = Credentials{APIID: 111, APIHash: "hash", SessionString: mtproto.Blob("session").String()}

// connected returns a connected Client over api.
func connected(t interface {
	Helper()
	Fatalf(string, ...any)
}, api mtproto.API, opts ...Option) (*Client, *mtprototest.Conn) {
	t.Helper()
	conn := mtprototest.NewConn(api)
	conn.Blob = mtproto.Blob("session")
	d := &mtprototest.Dialer{Conns: []*mtprototest.Conn{conn}}
	c := New(testCreds, d, append([]Option{WithLogger(discardLogger())}, opts...)...)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, conn
}

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (o *recordingObserver) ObserveOperation(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

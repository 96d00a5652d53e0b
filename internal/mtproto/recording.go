package mtproto

import (
	"context"

	"github.com/gotd/td/tg"
)

// Record wraps api so every user and chat in a result is stored in e.
// It is the only writer of the entity cache besides FetchSelf.
func Record(api API, e *Entities) API {
	return &recording{API: api, e: e}
}

type recording struct {
	API
	e *Entities
}

func keep[T any](ctx context.Context, e *Entities, v T, err error) (T, error) {
	if err == nil {
		e.absorb(ctx, v)
	}
	return v, err
}

func (r *recording) MessagesSendMessage(ctx context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	v, err := r.API.MessagesSendMessage(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesSendMedia(ctx context.Context, req *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error) {
	v, err := r.API.MessagesSendMedia(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesEditMessage(ctx context.Context, req *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error) {
	v, err := r.API.MessagesEditMessage(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesForwardMessages(ctx context.Context, req *tg.MessagesForwardMessagesRequest) (tg.UpdatesClass, error) {
	v, err := r.API.MessagesForwardMessages(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesGetDialogs(ctx context.Context, req *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	v, err := r.API.MessagesGetDialogs(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	v, err := r.API.MessagesGetHistory(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesSearch(ctx context.Context, req *tg.MessagesSearchRequest) (tg.MessagesMessagesClass, error) {
	v, err := r.API.MessagesSearch(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesGetFullChat(ctx context.Context, chatID int64) (*tg.MessagesChatFull, error) {
	v, err := r.API.MessagesGetFullChat(ctx, chatID)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesImportChatInvite(ctx context.Context, hash string) (tg.UpdatesClass, error) {
	v, err := r.API.MessagesImportChatInvite(ctx, hash)
	return keep(ctx, r.e, v, err)
}

func (r *recording) MessagesGetChats(ctx context.Context, id []int64) (tg.MessagesChatsClass, error) {
	v, err := r.API.MessagesGetChats(ctx, id)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ChannelsJoinChannel(ctx context.Context, channel tg.InputChannelClass) (tg.UpdatesClass, error) {
	v, err := r.API.ChannelsJoinChannel(ctx, channel)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ChannelsGetFullChannel(ctx context.Context, channel tg.InputChannelClass) (*tg.MessagesChatFull, error) {
	v, err := r.API.ChannelsGetFullChannel(ctx, channel)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ChannelsGetParticipants(ctx context.Context, req *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error) {
	v, err := r.API.ChannelsGetParticipants(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ChannelsGetChannels(ctx context.Context, id []tg.InputChannelClass) (tg.MessagesChatsClass, error) {
	v, err := r.API.ChannelsGetChannels(ctx, id)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ContactsGetContacts(ctx context.Context, hash int64) (tg.ContactsContactsClass, error) {
	v, err := r.API.ContactsGetContacts(ctx, hash)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ContactsSearch(ctx context.Context, req *tg.ContactsSearchRequest) (*tg.ContactsFound, error) {
	v, err := r.API.ContactsSearch(ctx, req)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ContactsResolveUsername(ctx context.Context, username string) (*tg.ContactsResolvedPeer, error) {
	v, err := r.API.ContactsResolveUsername(ctx, username)
	return keep(ctx, r.e, v, err)
}

func (r *recording) ContactsResolvePhone(ctx context.Context, phone string) (*tg.ContactsResolvedPeer, error) {
	v, err := r.API.ContactsResolvePhone(ctx, phone)
	return keep(ctx, r.e, v, err)
}

func (r *recording) UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error) {
	v, err := r.API.UsersGetUsers(ctx, id)
	if err == nil {
		r.e.addUsers(v)
	}
	return v, err
}

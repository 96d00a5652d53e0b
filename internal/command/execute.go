package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/pkg/record"
)

// Operations is the client surface commands run on.
type Operations interface {
	GetMe(ctx context.Context) (*record.User, error)
	SessionString(ctx context.Context) (record.SessionString, error)
	LogOut(ctx context.Context) (record.Success, error)

	SendMessage(ctx context.Context, chatID, text string, opts client.SendOptions) (*record.Message, error)
	SendMedia(ctx context.Context, chatID string, media client.Media, opts client.SendOptions) (*record.Message, error)
	GetMessages(ctx context.Context, chatID string, opts client.HistoryOptions) ([]*record.Message, error)
	SearchMessages(ctx context.Context, chatID, query string, opts client.SearchOptions) ([]*record.Message, error)
	EditMessage(ctx context.Context, chatID string, messageID int, text string) (*record.Message, error)
	DeleteMessages(ctx context.Context, chatID string, ids []int) (record.Deleted, error)
	ForwardMessages(ctx context.Context, fromChatID, toChatID string, ids []int) ([]*record.Message, error)

	GetDialogs(ctx context.Context, limit int) ([]record.Dialog, error)
	GetChatInfo(ctx context.Context, chatID string) (any, error)
	GetChatMembers(ctx context.Context, chatID string, limit int) ([]*record.User, error)
	LeaveChat(ctx context.Context, chatID string) (record.Success, error)

	JoinChannel(ctx context.Context, channel string) (record.Joined, error)
	LeaveChannel(ctx context.Context, chatID string) (record.Success, error)
	GetChannelInfo(ctx context.Context, chatID string) (any, error)
	GetChannelMembers(ctx context.Context, chatID string, opts client.MembersOptions) ([]*record.User, error)

	GetContacts(ctx context.Context) ([]*record.User, error)
	SearchContacts(ctx context.Context, query string, limit int) ([]any, error)

	GetUserByUsername(ctx context.Context, username string) (*record.User, error)
	GetUserFromChannel(ctx context.Context, userID, channelID string) (*record.User, error)
	GetUserFromContacts(ctx context.Context, userID string) (*record.User, error)
}

var _ Operations = (*client.Client)(nil)

// Execute runs a client command. Auth commands are rejected; use
// ExecuteAuth for those.
func Execute(ctx context.Context, ops Operations, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case *GetMe:
		return ops.GetMe(ctx)
	case *GetSession:
		return ops.SessionString(ctx)
	case *LogOut:
		return ops.LogOut(ctx)

	case *SendMessage:
		return ops.SendMessage(ctx, string(c.ChatID), c.Message, c.Options)
	case *SendMedia:
		return ops.SendMedia(ctx, string(c.ChatID), client.Media{
			Kind:     client.MediaKind(strings.ToLower(c.MediaType)),
			Data:     c.Data,
			FileName: c.FileName,
			MimeType: c.MimeType,
			Caption:  c.Caption,
		}, c.Options)
	case *GetMessages:
		opts := c.History
		if c.Limit > 0 {
			opts.Limit = c.Limit
		}
		return ops.GetMessages(ctx, string(c.ChatID), opts)
	case *SearchMessages:
		opts := c.Search
		if c.Limit > 0 {
			opts.Limit = c.Limit
		}
		return ops.SearchMessages(ctx, string(c.ChatID), c.Query, opts)
	case *EditMessage:
		return ops.EditMessage(ctx, string(c.ChatID), c.MessageID, c.Message)
	case *DeleteMessages:
		return ops.DeleteMessages(ctx, string(c.ChatID), c.MessageIDs)
	case *ForwardMessages:
		return ops.ForwardMessages(ctx, string(c.ChatID), string(c.DestinationChat), c.MessageIDs)

	case *GetDialogs:
		return ops.GetDialogs(ctx, c.Limit)
	case *GetChat:
		return ops.GetChatInfo(ctx, string(c.ChatID))
	case *GetChatMembers:
		return ops.GetChatMembers(ctx, string(c.ChatID), c.Limit)
	case *LeaveChat:
		return ops.LeaveChat(ctx, string(c.ChatID))

	case *JoinChannel:
		return ops.JoinChannel(ctx, c.Channel)
	case *LeaveChannel:
		return ops.LeaveChannel(ctx, string(c.ChatID))
	case *GetChannelInfo:
		return ops.GetChannelInfo(ctx, string(c.ChatID))
	case *GetChannelMembers:
		return ops.GetChannelMembers(ctx, string(c.ChatID), client.MembersOptions{
			Limit:     c.LimitMembers,
			ReturnAll: c.ReturnAll,
			Filter:    c.ParticipantsType,
			Query:     c.Query,
		})

	case *GetContacts:
		return ops.GetContacts(ctx)
	case *SearchContacts:
		return ops.SearchContacts(ctx, c.Query, c.Limit)

	case *GetUserByUsername:
		return ops.GetUserByUsername(ctx, c.Username)
	case *GetUserFromChannel:
		return ops.GetUserFromChannel(ctx, string(c.UserID), string(c.SourceChannelID))
	case *GetUserFromContacts:
		return ops.GetUserFromContacts(ctx, string(c.UserID))

	case *RequestCode, *SubmitCode, *SubmitSecondFactor, *CheckSession:
		return nil, errs.Configf("%s.%s runs on the sign-in flow, not on a connected client", cmd.Resource(), cmd.Operation())
	default:
		return nil, fmt.Errorf("command: unhandled command %T", cmd)
	}
}

// Authenticator runs the sign-in steps.
type Authenticator interface {
	RequestCode(ctx context.Context, p auth.Params, phone string) (auth.CodeRequest, error)
	SubmitCode(ctx context.Context, p auth.Params, phone, codeHash, code string, temp mtproto.Blob) (auth.Outcome, error)
	SubmitSecondFactor(ctx context.Context, p auth.Params, temp mtproto.Blob, password string) (auth.Outcome, error)
	CheckSession(ctx context.Context, p auth.Params, session mtproto.Blob) auth.SessionCheck
}

var _ Authenticator = (*auth.Machine)(nil)

// ExecuteAuth runs a sign-in command. The phone number, password and stored
// session come from creds.
func ExecuteAuth(ctx context.Context, m Authenticator, creds client.Credentials, cmd Command) (any, error) {
	if creds.APIID == 0 || creds.APIHash == "" {
		return nil, errs.Configf("api id and api hash are required in credentials")
	}
	p := creds.AuthParams()

	switch c := cmd.(type) {
	case *RequestCode:
		if creds.PhoneNumber == "" {
			return nil, errs.Configf("phone number is required in credentials")
		}
		req, err := m.RequestCode(ctx, p, creds.PhoneNumber)
		if err != nil {
			return nil, err
		}
		return req.Response(), nil
	case *SubmitCode:
		temp, err := mtproto.ParseBlob(c.TempSession)
		if err != nil {
			return nil, errs.Configf("invalid tempSession: %v", err)
		}
		out, err := m.SubmitCode(ctx, p, creds.PhoneNumber, c.PhoneCodeHash, c.PhoneCode, temp)
		if err != nil {
			return nil, err
		}
		return out.Response(), nil
	case *SubmitSecondFactor:
		if creds.TwoFactorPassword == "" {
			return nil, errs.Configf("2FA password is required in credentials")
		}
		temp, err := mtproto.ParseBlob(c.TempSession)
		if err != nil {
			return nil, errs.Configf("invalid tempSession2FA: %v", err)
		}
		out, err := m.SubmitSecondFactor(ctx, p, temp, creds.TwoFactorPassword)
		if err != nil {
			return nil, err
		}
		return out.Response(), nil
	case *CheckSession:
		session, err := mtproto.ParseBlob(creds.SessionString)
		if err != nil {
			return nil, errs.Configf("invalid session string: %v", err)
		}
		return m.CheckSession(ctx, p, session), nil
	default:
		return nil, errs.Configf("%s.%s is not a sign-in command", cmd.Resource(), cmd.Operation())
	}
}

// Package command turns (resource, operation, params) requests into typed
// commands and runs them against a connected client.
//
// Decode is the only place that dispatches on strings. Everything after it
// works on the concrete command types.
package command

import (
	"github.com/flemzord/tgflow/internal/client"
)

// Command is one decoded request. The set of implementations is closed.
type Command interface {
	// Resource and Operation return the names the command was decoded from.
	Resource() string
	Operation() string

	command()
}

// key names a command.
type key struct{ resource, operation string }

type base struct{ key key }

func (b base) Resource() string  { return b.key.resource }
func (b base) Operation() string { return b.key.operation }
func (base) command()            {}

// Account.

type GetMe struct{ base }

type GetSession struct{ base }

type LogOut struct{ base }

// Message.

type SendMessage struct {
	base
	ChatID  Ident              `json:"chatId"`
	Message string             `json:"message"`
	Options client.SendOptions `json:"options"`
}

type SendMedia struct {
	base
	ChatID Ident `json:"chatId"`
	// MediaType is "photo" or "document".
	MediaType string `json:"mediaType"`
	// Data is the file content, base64 encoded in JSON.
	Data     []byte             `json:"data"`
	FileName string             `json:"fileName"`
	MimeType string             `json:"mimeType"`
	Caption  string             `json:"caption"`
	Options  client.SendOptions `json:"options"`
}

type GetMessages struct {
	base
	ChatID  Ident                 `json:"chatId"`
	Limit   int                   `json:"limit"`
	History client.HistoryOptions `json:"historyOptions"`
}

type SearchMessages struct {
	base
	ChatID Ident                `json:"chatId"`
	Query  string               `json:"query"`
	Limit  int                  `json:"limit"`
	Search client.SearchOptions `json:"searchOptions"`
}

type EditMessage struct {
	base
	ChatID    Ident  `json:"chatId"`
	MessageID int    `json:"messageId"`
	Message   string `json:"message"`
}

// DeleteMessages deletes MessageID, or every ID in MessageIDs when set.
type DeleteMessages struct {
	base
	ChatID     Ident  `json:"chatId"`
	MessageID  int    `json:"messageId"`
	MessageIDs IDList `json:"messageIds"`
}

type ForwardMessages struct {
	base
	ChatID          Ident  `json:"chatId"`
	MessageIDs      IDList `json:"messageIds"`
	DestinationChat Ident  `json:"destinationChat"`
}

// Chat.

type GetDialogs struct {
	base
	Limit int `json:"limit"`
}

type GetChat struct {
	base
	ChatID Ident `json:"chatId"`
}

type GetChatMembers struct {
	base
	ChatID Ident `json:"chatId"`
	Limit  int   `json:"limit"`
}

type LeaveChat struct {
	base
	ChatID Ident `json:"chatId"`
}

// Channel.

type JoinChannel struct {
	base
	Channel string `json:"channel"`
}

type LeaveChannel struct {
	base
	ChatID Ident `json:"chatId"`
}

type GetChannelInfo struct {
	base
	ChatID Ident `json:"chatId"`
}

type GetChannelMembers struct {
	base
	ChatID           Ident  `json:"chatId"`
	ParticipantsType string `json:"participantsType"`
	ReturnAll        bool   `json:"returnAll"`
	LimitMembers     int    `json:"limitMembers"`
	Query            string `json:"query"`
}

// Contact.

type GetContacts struct{ base }

type SearchContacts struct {
	base
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// User.

type GetUserByUsername struct {
	base
	Username string `json:"username"`
}

type GetUserFromChannel struct {
	base
	UserID          Ident `json:"userId"`
	SourceChannelID Ident `json:"sourceChannelId"`
}

type GetUserFromContacts struct {
	base
	UserID Ident `json:"userId"`
}

// Auth. These run on the sign-in state machine and never open a client
// connection.

type RequestCode struct{ base }

type SubmitCode struct {
	base
	PhoneCodeHash string `json:"phoneCodeHash"`
	PhoneCode     string `json:"phoneCode"`
	TempSession   string `json:"tempSession"`
}

type SubmitSecondFactor struct {
	base
	TempSession string `json:"tempSession2FA"`
}

type CheckSession struct{ base }

// isAuth reports whether cmd runs on the sign-in state machine.
func isAuth(cmd Command) bool {
	switch cmd.(type) {
	case *RequestCode, *SubmitCode, *SubmitSecondFactor, *CheckSession:
		return true
	}
	return false
}

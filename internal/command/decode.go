package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/flemzord/tgflow/internal/errs"
)

// Param describes one command parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean, array or object
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description"`
}

// Spec describes a command for help output and tool listings.
type Spec struct {
	Resource  string  `json:"resource"`
	Operation string  `json:"operation"`
	Summary   string  `json:"summary"`
	Params    []Param `json:"params,omitempty"`
}

// Name returns "resource.operation".
func (s Spec) Name() string { return s.Resource + "." + s.Operation }

type entry struct {
	spec Spec
	new  func() Command
}

var (
	chatID  = Param{Name: "chatId", Type: "string", Required: true, Description: "Chat ID, @username, t.me link or +phone"}
	limit   = Param{Name: "limit", Type: "number", Description: "Maximum number of records"}
	message = Param{Name: "message", Type: "string", Required: true, Description: "Message text"}
	options = Param{Name: "options", Type: "object", Description: "parseMode, silent, replyTo, scheduleDate"}
)

var registry = map[key]entry{}

func register(resource, operation, summary string, newCmd func() Command, params ...Param) {
	k := key{resource, operation}
	registry[k] = entry{
		spec: Spec{Resource: resource, Operation: operation, Summary: summary, Params: params},
		new:  newCmd,
	}
}

func init() {
	register("account", "getMe", "Get the signed-in user", func() Command { return &GetMe{} })
	register("account", "getSession", "Export the current session string", func() Command { return &GetSession{} })
	register("account", "logOut", "Terminate the session on the server", func() Command { return &LogOut{} })

	register("message", "send", "Send a text message", func() Command { return &SendMessage{} }, chatID, message, options)
	register("message", "sendMedia", "Send a photo or document", func() Command { return &SendMedia{} },
		chatID,
		Param{Name: "mediaType", Type: "string", Description: "photo or document"},
		Param{Name: "data", Type: "string", Required: true, Description: "Base64 file content"},
		Param{Name: "fileName", Type: "string", Description: "File name"},
		Param{Name: "mimeType", Type: "string", Description: "MIME type"},
		Param{Name: "caption", Type: "string", Description: "Caption"},
		options,
	)
	register("message", "getMany", "Read chat history", func() Command { return &GetMessages{} },
		chatID, limit,
		Param{Name: "historyOptions", Type: "object", Description: "offsetId, minId, maxId"},
	)
	register("message", "search", "Search messages in a chat", func() Command { return &SearchMessages{} },
		chatID,
		Param{Name: "query", Type: "string", Description: "Search text"},
		limit,
		Param{Name: "searchOptions", Type: "object", Description: "fromUser, filterType"},
	)
	register("message", "edit", "Edit a message", func() Command { return &EditMessage{} },
		chatID, Param{Name: "messageId", Type: "number", Required: true, Description: "Message ID"}, message,
	)
	register("message", "delete", "Delete messages for everyone", func() Command { return &DeleteMessages{} },
		chatID,
		Param{Name: "messageId", Type: "number", Description: "Message ID"},
		Param{Name: "messageIds", Type: "string", Description: "Comma separated message IDs"},
	)
	register("message", "forward", "Forward messages", func() Command { return &ForwardMessages{} },
		chatID,
		Param{Name: "messageIds", Type: "string", Required: true, Description: "Comma separated message IDs"},
		Param{Name: "destinationChat", Type: "string", Required: true, Description: "Destination chat"},
	)

	register("chat", "getAll", "List recent dialogs", func() Command { return &GetDialogs{} }, limit)
	register("chat", "get", "Get a chat, channel or user", func() Command { return &GetChat{} }, chatID)
	register("chat", "getMembers", "List basic group members", func() Command { return &GetChatMembers{} }, chatID, limit)
	register("chat", "leave", "Leave a group or channel", func() Command { return &LeaveChat{} }, chatID)

	register("channel", "join", "Join a channel by handle or invite link", func() Command { return &JoinChannel{} },
		Param{Name: "channel", Type: "string", Required: true, Description: "@handle, t.me link or invite link"},
	)
	register("channel", "leave", "Leave a channel", func() Command { return &LeaveChannel{} }, chatID)
	register("channel", "getInfo", "Get a channel with its full info", func() Command { return &GetChannelInfo{} }, chatID)
	register("channel", "getMembers", "List channel members", func() Command { return &GetChannelMembers{} },
		chatID,
		Param{Name: "participantsType", Type: "string", Description: "recent, admins, kicked, banned, bots or search"},
		Param{Name: "returnAll", Type: "boolean", Description: "Fetch every member"},
		Param{Name: "limitMembers", Type: "number", Description: "Maximum number of members"},
		Param{Name: "query", Type: "string", Description: "Name filter"},
	)

	register("contact", "getAll", "List contacts", func() Command { return &GetContacts{} })
	register("contact", "search", "Search users and chats globally", func() Command { return &SearchContacts{} },
		Param{Name: "query", Type: "string", Required: true, Description: "Search text"}, limit,
	)

	register("user", "getByUsername", "Resolve a public username", func() Command { return &GetUserByUsername{} },
		Param{Name: "username", Type: "string", Required: true, Description: "Username with or without @"},
	)
	register("user", "getFromChannel", "Find a member of a channel or group", func() Command { return &GetUserFromChannel{} },
		Param{Name: "userId", Type: "string", Required: true, Description: "User ID or @username"},
		Param{Name: "sourceChannelId", Type: "string", Required: true, Description: "Channel or group"},
	)
	register("user", "getFromContacts", "Find a contact", func() Command { return &GetUserFromContacts{} },
		Param{Name: "userId", Type: "string", Required: true, Description: "User ID, @username or +phone"},
	)

	register("auth", "requestCode", "Send a login code to the configured phone", func() Command { return &RequestCode{} })
	register("auth", "submitCode", "Sign in with the received code", func() Command { return &SubmitCode{} },
		Param{Name: "phoneCodeHash", Type: "string", Required: true, Description: "Hash from requestCode"},
		Param{Name: "phoneCode", Type: "string", Required: true, Description: "Code received"},
		Param{Name: "tempSession", Type: "string", Required: true, Description: "Temporary session from requestCode"},
	)
	register("auth", "submit2FA", "Complete sign-in with the two-factor password", func() Command { return &SubmitSecondFactor{} },
		Param{Name: "tempSession2FA", Type: "string", Required: true, Description: "Temporary session from submitCode"},
	)
	register("auth", "checkSession", "Check that the configured session works", func() Command { return &CheckSession{} })
}

// Specs lists every command, sorted by name.
func Specs() []Spec {
	out := make([]Spec, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Decode builds the command for resource and operation from JSON params.
// Missing or null params decode as an empty object. Unknown fields are
// ignored.
func Decode(resource, operation string, params json.RawMessage) (Command, error) {
	k := key{strings.TrimSpace(resource), strings.TrimSpace(operation)}
	e, ok := registry[k]
	if !ok {
		return nil, errs.Configf("unknown operation %q for resource %q", k.operation, k.resource)
	}
	cmd := e.new()
	if p := bytes.TrimSpace(params); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		if err := json.Unmarshal(p, cmd); err != nil {
			return nil, errs.Configf("%s.%s: invalid params: %v", k.resource, k.operation, err)
		}
	}
	cmd.(interface{ setKey(key) }).setKey(k)
	if p, ok := cmd.(interface{ prepare() error }); ok {
		if err := p.prepare(); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", k.resource, k.operation, err)
		}
	}
	return cmd, nil
}

func (b *base) setKey(k key) { b.key = k }

func required(name string, v string) error {
	if strings.TrimSpace(v) == "" {
		return errs.Configf("%s is required", name)
	}
	return nil
}

func (c *SendMessage) prepare() error {
	return required("chatId", string(c.ChatID))
}

func (c *SendMedia) prepare() error {
	if c.MediaType == "" {
		c.MediaType = "photo"
	}
	if len(c.Data) == 0 {
		return errs.Configf("data is required")
	}
	return required("chatId", string(c.ChatID))
}

func (c *GetMessages) prepare() error { return required("chatId", string(c.ChatID)) }

func (c *SearchMessages) prepare() error { return required("chatId", string(c.ChatID)) }

func (c *EditMessage) prepare() error {
	if c.MessageID == 0 {
		return errs.Configf("messageId is required")
	}
	return required("chatId", string(c.ChatID))
}

func (c *DeleteMessages) prepare() error {
	if len(c.MessageIDs) == 0 && c.MessageID != 0 {
		c.MessageIDs = IDList{c.MessageID}
	}
	if len(c.MessageIDs) == 0 {
		return errs.Configf("messageId or messageIds is required")
	}
	return required("chatId", string(c.ChatID))
}

func (c *ForwardMessages) prepare() error {
	if len(c.MessageIDs) == 0 {
		return errs.Configf("messageIds is required")
	}
	if err := required("chatId", string(c.ChatID)); err != nil {
		return err
	}
	return required("destinationChat", string(c.DestinationChat))
}

func (c *GetChat) prepare() error        { return required("chatId", string(c.ChatID)) }
func (c *GetChatMembers) prepare() error { return required("chatId", string(c.ChatID)) }
func (c *LeaveChat) prepare() error      { return required("chatId", string(c.ChatID)) }
func (c *JoinChannel) prepare() error    { return required("channel", c.Channel) }
func (c *LeaveChannel) prepare() error   { return required("chatId", string(c.ChatID)) }
func (c *GetChannelInfo) prepare() error { return required("chatId", string(c.ChatID)) }

// defaultMemberLimit applies to channel.getMembers without returnAll.
const defaultMemberLimit = 200

func (c *GetChannelMembers) prepare() error {
	if !c.ReturnAll && c.LimitMembers <= 0 {
		c.LimitMembers = defaultMemberLimit
	}
	return required("chatId", string(c.ChatID))
}

func (c *SearchContacts) prepare() error    { return required("query", c.Query) }
func (c *GetUserByUsername) prepare() error { return required("username", c.Username) }

func (c *GetUserFromChannel) prepare() error {
	if err := required("userId", string(c.UserID)); err != nil {
		return err
	}
	return required("sourceChannelId", string(c.SourceChannelID))
}

func (c *GetUserFromContacts) prepare() error { return required("userId", string(c.UserID)) }

func (c *SubmitCode) prepare() error {
	for _, f := range []struct{ name, v string }{
		{"phoneCodeHash", c.PhoneCodeHash},
		{"phoneCode", c.PhoneCode},
		{"tempSession", c.TempSession},
	} {
		if err := required(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

func (c *SubmitSecondFactor) prepare() error { return required("tempSession2FA", c.TempSession) }

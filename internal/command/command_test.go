package command

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/flemzord/tgflow/internal/errs"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		resource  string
		operation string
		params    string
		want      Command
	}{
		{
			name: "send", resource: "message", operation: "send",
			params: `{"chatId": -1001234, "message": "hi", "options": {"silent": true}}`,
			want:   &SendMessage{ChatID: "-1001234", Message: "hi"},
		},
		{
			name: "delete single id", resource: "message", operation: "delete",
			params: `{"chatId": "@group", "messageId": 10}`,
			want:   &DeleteMessages{ChatID: "@group", MessageID: 10, MessageIDs: IDList{10}},
		},
		{
			name: "delete id list", resource: "message", operation: "delete",
			params: `{"chatId": "@group", "messageIds": "10, 11,12"}`,
			want:   &DeleteMessages{ChatID: "@group", MessageIDs: IDList{10, 11, 12}},
		},
		{
			name: "forward array", resource: "message", operation: "forward",
			params: `{"chatId": "a", "messageIds": [7], "destinationChat": "b"}`,
			want:   &ForwardMessages{ChatID: "a", MessageIDs: IDList{7}, DestinationChat: "b"},
		},
		{
			name: "members default limit", resource: "channel", operation: "getMembers",
			params: `{"chatId": "@news"}`,
			want:   &GetChannelMembers{ChatID: "@news", LimitMembers: 200},
		},
		{
			name: "members return all", resource: "channel", operation: "getMembers",
			params: `{"chatId": "@news", "returnAll": true}`,
			want:   &GetChannelMembers{ChatID: "@news", ReturnAll: true},
		},
		{
			name: "no params", resource: "account", operation: "getMe",
			want: &GetMe{},
		},
		{
			name: "null params", resource: "contact", operation: "getAll", params: "null",
			want: &GetContacts{},
		},
		{
			name: "2fa", resource: "auth", operation: "submit2FA",
			params: `{"tempSession2FA": "abc"}`,
			want:   &SubmitSecondFactor{TempSession: "abc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.resource, tt.operation, json.RawMessage(tt.params))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Resource() != tt.resource || got.Operation() != tt.operation {
				t.Errorf("key = %s.%s", got.Resource(), got.Operation())
			}
			tt.want.(interface{ setKey(key) }).setKey(key{tt.resource, tt.operation})
			if send, ok := got.(*SendMessage); ok {
				if !send.Options.Silent {
					t.Error("options.silent not decoded")
				}
				send.Options.Silent = false
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		resource  string
		operation string
		params    string
	}{
		{"unknown resource", "sticker", "send", `{}`},
		{"unknown operation", "message", "pin", `{}`},
		{"bad json", "message", "send", `{"chatId": `},
		{"missing chat", "message", "send", `{"message": "hi"}`},
		{"missing ids", "message", "delete", `{"chatId": "x"}`},
		{"bad id list", "message", "forward", `{"chatId": "x", "messageIds": "1,a", "destinationChat": "y"}`},
		{"missing destination", "message", "forward", `{"chatId": "x", "messageIds": "1"}`},
		{"missing media", "message", "sendMedia", `{"chatId": "x"}`},
		{"missing code", "auth", "submitCode", `{"phoneCodeHash": "h", "tempSession": "t"}`},
		{"missing username", "user", "getByUsername", `{"username": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.resource, tt.operation, json.RawMessage(tt.params))
			if !errors.Is(err, errs.ErrConfiguration) {
				t.Fatalf("Decode = %v, want configuration error", err)
			}
		})
	}
}

func TestSpecsCoverRegistry(t *testing.T) {
	t.Parallel()

	specs := Specs()
	if len(specs) != len(registry) {
		t.Fatalf("len = %d, want %d", len(specs), len(registry))
	}
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Name() >= specs[i].Name() {
			t.Fatalf("specs not sorted at %d: %s, %s", i, specs[i-1].Name(), specs[i].Name())
		}
	}
	for _, s := range specs {
		cmd, err := Decode(s.Resource, s.Operation, nil)
		if err != nil {
			// Commands with required params fail on empty input.
			if !errors.Is(err, errs.ErrConfiguration) {
				t.Errorf("%s: %v", s.Name(), err)
			}
			continue
		}
		if cmd.Resource() != s.Resource {
			t.Errorf("%s: resource = %s", s.Name(), cmd.Resource())
		}
	}
}

func TestIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Ident
	}{
		{`"@alice"`, "@alice"},
		{`" -42 "`, "-42"},
		{`-1001234567890`, "-1001234567890"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var got Ident
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
	var bad Ident
	if err := json.Unmarshal([]byte(`{}`), &bad); err == nil {
		t.Error("object accepted as identifier")
	}
}

func TestParseIDs(t *testing.T) {
	t.Parallel()

	got, err := ParseIDs(" 1, 2,,3 ")
	if err != nil {
		t.Fatalf("ParseIDs: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("ParseIDs = %v", got)
	}
	if _, err := ParseIDs("1,two"); err == nil {
		t.Error("ParseIDs accepted a non-number")
	}
}

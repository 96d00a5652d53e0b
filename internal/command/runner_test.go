package command

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/mtproto/mtprototest"
	"github.com/flemzord/tgflow/pkg/record"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOps records the arguments of the calls it receives.
type fakeOps struct {
	Operations

	deleted   []int
	forwarded []int
	members   client.MembersOptions
	history   client.HistoryOptions
}

func (f *fakeOps) DeleteMessages(_ context.Context, _ string, ids []int) (record.Deleted, error) {
	f.deleted = ids
	return record.Deleted{Success: true, DeletedCount: len(ids)}, nil
}

func (f *fakeOps) ForwardMessages(_ context.Context, _, _ string, ids []int) ([]*record.Message, error) {
	f.forwarded = ids
	out := make([]*record.Message, len(ids))
	for i := range ids {
		out[i] = &record.Message{ID: "1"}
	}
	return out, nil
}

func (f *fakeOps) GetChannelMembers(_ context.Context, _ string, opts client.MembersOptions) ([]*record.User, error) {
	f.members = opts
	return []*record.User{}, nil
}

func (f *fakeOps) GetMessages(_ context.Context, _ string, opts client.HistoryOptions) ([]*record.Message, error) {
	f.history = opts
	return nil, nil
}

func mustDecode(t *testing.T, resource, operation, params string) Command {
	t.Helper()
	cmd, err := Decode(resource, operation, json.RawMessage(params))
	if err != nil {
		t.Fatalf("Decode(%s.%s): %v", resource, operation, err)
	}
	return cmd
}

func TestExecute(t *testing.T) {
	t.Parallel()

	ops := &fakeOps{}
	ctx := context.Background()

	res, err := Execute(ctx, ops, mustDecode(t, "message", "delete", `{"chatId": "x", "messageIds": "10,11,12"}`))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := res.(record.Deleted); got.DeletedCount != 3 || !reflect.DeepEqual(ops.deleted, []int{10, 11, 12}) {
		t.Errorf("delete = %+v, ids %v", got, ops.deleted)
	}

	res, err = Execute(ctx, ops, mustDecode(t, "message", "forward", `{"chatId": "x", "messageIds": "5", "destinationChat": "y"}`))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if got := res.([]*record.Message); len(got) != 1 {
		t.Errorf("forward returned %d messages, want 1", len(got))
	}

	if _, err := Execute(ctx, ops, mustDecode(t, "channel", "getMembers", `{"chatId": "x", "participantsType": "admins", "limitMembers": 50}`)); err != nil {
		t.Fatalf("getMembers: %v", err)
	}
	if ops.members != (client.MembersOptions{Limit: 50, Filter: "admins"}) {
		t.Errorf("members options = %+v", ops.members)
	}

	if _, err := Execute(ctx, ops, mustDecode(t, "message", "getMany", `{"chatId": "x", "limit": 20, "historyOptions": {"offsetId": 900}}`)); err != nil {
		t.Fatalf("getMany: %v", err)
	}
	if ops.history != (client.HistoryOptions{Limit: 20, OffsetID: 900}) {
		t.Errorf("history options = %+v", ops.history)
	}

	if _, err := Execute(ctx, ops, mustDecode(t, "auth", "checkSession", "")); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("auth command on client = %v", err)
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	var nilMsg *record.Message
	tests := []struct {
		name string
		in   any
		want []record.Item
	}{
		{"nil", nil, []record.Item{{JSON: record.Success{Success: true}}}},
		{"nil pointer", nilMsg, []record.Item{{JSON: record.Success{Success: true}}}},
		{"value", record.Success{Success: true}, []record.Item{{JSON: record.Success{Success: true}}}},
		{"list", []int{1, 2}, []record.Item{{JSON: 1}, {JSON: 2}}},
		{"empty list", []any{}, []record.Item{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := expand(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expand = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// contactsAPI serves two contacts and rejects every username.
type contactsAPI struct {
	mtprototest.API
}

func (contactsAPI) ContactsGetContacts(context.Context, int64) (tg.ContactsContactsClass, error) {
	return &tg.ContactsContacts{Users: []tg.UserClass{
		mtprototest.User(1, 10, "alice", ""),
		mtprototest.User(2, 20, "bob", ""),
	}}, nil
}

func (contactsAPI) ContactsResolveUsername(context.Context, string) (*tg.ContactsResolvedPeer, error) {
	return nil, tgerr.New(400, "USERNAME_NOT_OCCUPIED")
}

var runCreds = client.Credentials{APIID: 1, APIHash: "h", SessionString: mtproto.Blob("s").String()}

func newTestRunner() (*Runner, *mtprototest.Dialer, *mtprototest.Conn) {
	conn := mtprototest.NewConn(contactsAPI{})
	conn.Blob = mtproto.Blob("exported")
	d := &mtprototest.Dialer{Conns: []*mtprototest.Conn{conn}}
	return NewRunner(d, discardLogger()), d, conn
}

func TestRunnerExpandsAndConnectsOnce(t *testing.T) {
	t.Parallel()

	r, d, conn := newTestRunner()
	items := []Item{
		{Resource: "contact", Operation: "getAll"},
		{Resource: "account", Operation: "getSession"},
	}
	out, err := r.Run(context.Background(), runCreds, items, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("outputs = %d, want 3", len(out))
	}
	if s, ok := out[2].JSON.(record.SessionString); !ok || s.SessionString != mtproto.Blob("exported").String() {
		t.Errorf("session output = %#v", out[2].JSON)
	}
	if len(d.Dials()) != 1 {
		t.Errorf("dials = %d, want 1", len(d.Dials()))
	}
	if conn.Closed() != 1 {
		t.Errorf("closed = %d, want 1", conn.Closed())
	}
}

func TestRunnerContinueOnFail(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRunner()
	items := []Item{
		{Resource: "chat", Operation: "get", Params: json.RawMessage(`{"chatId": "@ghost"}`)},
		{Resource: "message", Operation: "pin"},
		{Resource: "contact", Operation: "getAll"},
	}
	out, err := r.Run(context.Background(), runCreds, items, RunOptions{ContinueOnFail: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("outputs = %d, want 4", len(out))
	}
	for i := range 2 {
		if f, ok := out[i].JSON.(record.Failure); !ok || f.Error == "" {
			t.Errorf("output %d = %#v, want failure", i, out[i].JSON)
		}
	}
}

func TestRunnerAbortKeepsPriorItems(t *testing.T) {
	t.Parallel()

	r, _, conn := newTestRunner()
	items := []Item{
		{Resource: "contact", Operation: "getAll"},
		{Resource: "chat", Operation: "get", Params: json.RawMessage(`{"chatId": "@ghost"}`)},
		{Resource: "contact", Operation: "getAll"},
	}
	out, err := r.Run(context.Background(), runCreds, items, RunOptions{})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Run = %v, want not found", err)
	}
	if len(out) != 2 {
		t.Errorf("outputs = %d, want 2", len(out))
	}
	if conn.Closed() != 1 {
		t.Errorf("closed = %d, want 1", conn.Closed())
	}
}

// fakeAuth records which sign-in steps ran.
type fakeAuth struct {
	mu    sync.Mutex
	steps []string
	phone string
}

func (f *fakeAuth) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step)
}

func (f *fakeAuth) RequestCode(_ context.Context, _ auth.Params, phone string) (auth.CodeRequest, error) {
	f.record("requestCode")
	f.phone = phone
	return auth.CodeRequest{PhoneCodeHash: "hash", TempSession: mtproto.Blob("temp")}, nil
}

func (f *fakeAuth) SubmitCode(context.Context, auth.Params, string, string, string, mtproto.Blob) (auth.Outcome, error) {
	f.record("submitCode")
	return auth.Outcome{State: auth.StateTwoFactorRequired, Session: mtproto.Blob("temp2")}, nil
}

func (f *fakeAuth) SubmitSecondFactor(context.Context, auth.Params, mtproto.Blob, string) (auth.Outcome, error) {
	f.record("submit2FA")
	return auth.Outcome{}, errors.New("wrong password")
}

func (f *fakeAuth) CheckSession(context.Context, auth.Params, mtproto.Blob) auth.SessionCheck {
	f.record("checkSession")
	return auth.SessionCheck{Valid: true, Message: "ok"}
}

func TestRunnerAuthDoesNotConnect(t *testing.T) {
	t.Parallel()

	r, d, _ := newTestRunner()
	fa := &fakeAuth{}
	r.auth = fa
	creds := client.Credentials{APIID: 1, APIHash: "h", PhoneNumber: "+1555", TwoFactorPassword: "pw"}

	items := []Item{
		{Resource: "auth", Operation: "requestCode"},
		{Resource: "auth", Operation: "submitCode", Params: json.RawMessage(`{"phoneCodeHash": "hash", "phoneCode": "12345", "tempSession": "dGVtcA=="}`)},
		{Resource: "auth", Operation: "submit2FA", Params: json.RawMessage(`{"tempSession2FA": "dGVtcDI="}`)},
	}
	out, err := r.Run(context.Background(), creds, items, RunOptions{ContinueOnFail: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(d.Dials()) != 0 {
		t.Errorf("auth items dialed %d times", len(d.Dials()))
	}
	if !reflect.DeepEqual(fa.steps, []string{"requestCode", "submitCode", "submit2FA"}) {
		t.Errorf("steps = %v", fa.steps)
	}
	if fa.phone != "+1555" {
		t.Errorf("phone = %q", fa.phone)
	}
	if got := out[0].JSON.(auth.Response); got.NextStep != "submitCode" || got.PhoneCodeHash != "hash" {
		t.Errorf("requestCode output = %+v", got)
	}
	if got := out[1].JSON.(auth.Response); got.Step != "2fa_required" {
		t.Errorf("submitCode output = %+v", got)
	}
	if got := out[2].JSON.(auth.Response); got.Success || got.Error != "wrong password" {
		t.Errorf("submit2FA output = %+v", got)
	}
}

func TestExecuteAuthRequiresCredentials(t *testing.T) {
	t.Parallel()

	fa := &fakeAuth{}
	ctx := context.Background()
	base := client.Credentials{APIID: 1, APIHash: "h"}

	if _, err := ExecuteAuth(ctx, fa, client.Credentials{}, &CheckSession{}); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("missing api = %v", err)
	}
	if _, err := ExecuteAuth(ctx, fa, base, &RequestCode{}); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("missing phone = %v", err)
	}
	if _, err := ExecuteAuth(ctx, fa, base, &SubmitSecondFactor{TempSession: "dA=="}); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("missing password = %v", err)
	}
	res, err := ExecuteAuth(ctx, fa, base, &CheckSession{})
	if err != nil {
		t.Fatalf("checkSession: %v", err)
	}
	if !res.(auth.SessionCheck).Valid {
		t.Errorf("check = %+v", res)
	}
	if len(fa.steps) != 1 {
		t.Errorf("steps = %v", fa.steps)
	}
}

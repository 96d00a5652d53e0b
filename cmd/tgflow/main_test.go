package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/kardianos/service"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/mtproto/mtprototest"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/pkg/app"
)

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range rootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "config", "auth", "login", "exec", "commands", "serve", "mcp", "service", "session"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing command %q in %v", want, names)
		}
	}
}

func TestVersionCmd_ListsModules(t *testing.T) {
	t.Parallel()

	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"tgflow dev", "gateway.http", "trigger.poller"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestExecCmd_Args(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no operation", []string{"exec"}, "expected <resource> <operation>"},
		{"file and operation", []string{"exec", "chat", "get", "--file", "b.json"}, "cannot be combined"},
		{"bad params", []string{"exec", "chat", "get", "--params", "{nope", "--config", "/nonexistent.yaml"}, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := rootCmd()
			root.SetOut(io.Discard)
			root.SetArgs(tt.args)
			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestReadBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"items":[{"resource":"chat","operation":"get","params":{"chatId":"me"}}],"continueOnFail":true}`), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := readBatch(good, nil)
	if err != nil {
		t.Fatalf("readBatch: %v", err)
	}
	if len(b.Items) != 1 || b.Items[0].Operation != "get" || !b.ContinueOnFail {
		t.Errorf("batch = %+v", b)
	}

	b, err = readBatch("-", strings.NewReader(`{"items":[{"resource":"account","operation":"getMe"}]}`))
	if err != nil || len(b.Items) != 1 {
		t.Errorf("stdin batch = %+v, %v", b, err)
	}

	deep := strings.Repeat("[", security.DefaultMaxJSONDepth+1) + strings.Repeat("]", security.DefaultMaxJSONDepth+1)
	bad := []struct {
		name string
		body string
		want error
	}{
		{"empty", `{"items":[]}`, nil},
		{"invalid", `{"items":`, security.ErrInvalidJSON},
		{"deep", deep, security.ErrJSONTooDeep},
	}
	for _, tt := range bad {
		_, err := readBatch("-", strings.NewReader(tt.body))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}

	if _, err := readBatch(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("missing file accepted")
	}
}

// scripted answers prompts in order.
type scripted struct {
	answers []string
	titles  []string
}

func (s *scripted) Ask(_ context.Context, title string, _ bool) (string, error) {
	s.titles = append(s.titles, title)
	if len(s.answers) == 0 {
		return "", errors.New("no more answers")
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func loginRuntime(t *testing.T, extra string, conn *mtprototest.Conn) *app.Runtime {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tgflow.yaml")
	cfg := "version: \"1\"\ncredentials:\n  api_id: 111\n  api_hash: hash\n" + extra
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	rt, err := app.Load(context.Background(), app.Params{
		ConfigPath: path,
		DataDir:    t.TempDir(),
		Stderr:     io.Discard,
		Dialer:     &mtprototest.Dialer{Conns: []*mtprototest.Conn{conn}},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func TestLogin_TwoFactorPrompt(t *testing.T) {
	t.Parallel()

	authn := &mtprototest.Auth{
		SentCode:  &tg.AuthSentCode{Type: &tg.AuthSentCodeTypeApp{Length: 5}, PhoneCodeHash: "h1"},
		SignInErr: errs.ErrPasswordNeeded,
		PassUser:  mtprototest.User(42, 1, "alice", "15550001111"),
	}
	conn := mtprototest.NewConn(mtprototest.API{})
	conn.Authn = authn
	conn.Blob = mtproto.Blob("session")
	rt := loginRuntime(t, "", conn)

	ask := &scripted{answers: []string{"+15550001111", "12345", "hunter2"}}
	out, err := login(context.Background(), rt, ask, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if out.State != auth.StateAuthenticated || out.User == nil || out.User.ID != "42" {
		t.Errorf("outcome = %+v", out)
	}
	if len(ask.titles) != 3 || !strings.Contains(ask.titles[2], "Two-factor") {
		t.Errorf("prompts = %v", ask.titles)
	}
	if got := authn.Passwords(); len(got) != 1 || got[0] != "hunter2" {
		t.Errorf("passwords = %v", got)
	}
}

func TestLogin_ConfiguredPassword(t *testing.T) {
	t.Parallel()

	authn := &mtprototest.Auth{
		SentCode:  &tg.AuthSentCode{Type: &tg.AuthSentCodeTypeApp{Length: 5}, PhoneCodeHash: "h1"},
		SignInErr: errs.ErrPasswordNeeded,
		PassUser:  mtprototest.User(42, 1, "alice", "15550001111"),
	}
	conn := mtprototest.NewConn(mtprototest.API{})
	conn.Authn = authn
	conn.Blob = mtproto.Blob("session")
	rt := loginRuntime(t, "  phone_number: \"+15550001111\"\n  two_factor_password: secret\n", conn)

	ask := &scripted{answers: []string{"12345"}}
	if _, err := login(context.Background(), rt, ask, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(ask.titles) != 1 {
		t.Errorf("prompted %v, want only the code", ask.titles)
	}
}

func TestLogin_SignUpRequired(t *testing.T) {
	t.Parallel()

	conn := mtprototest.NewConn(mtprototest.API{})
	conn.Authn = &mtprototest.Auth{
		SentCode:  &tg.AuthSentCode{Type: &tg.AuthSentCodeTypeApp{Length: 5}, PhoneCodeHash: "h1"},
		SignInErr: errs.ErrSignUpRequired,
	}
	conn.Blob = mtproto.Blob("temp")
	rt := loginRuntime(t, "", conn)

	_, err := login(context.Background(), rt, &scripted{answers: []string{"12345"}}, "+15550001111")
	if err == nil || !strings.Contains(err.Error(), "no account") {
		t.Errorf("err = %v", err)
	}
}

func TestServiceConfig(t *testing.T) {
	t.Parallel()

	cfg, err := serviceConfig(&globals{config: "tgflow.yaml", session: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "tgflow" || cfg.Arguments[0] != "service" || cfg.Arguments[1] != "run" {
		t.Errorf("config = %+v", cfg)
	}
	i := slices.Index(cfg.Arguments, "--config")
	if i < 0 || !filepath.IsAbs(cfg.Arguments[i+1]) {
		t.Errorf("config path not absolute: %v", cfg.Arguments)
	}
	if !slices.Contains(cfg.Arguments, "main") {
		t.Errorf("session not forwarded: %v", cfg.Arguments)
	}
}

func TestStatusText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		st   service.Status
		err  error
		want string
	}{
		{service.StatusRunning, nil, "running"},
		{service.StatusStopped, nil, "stopped"},
		{service.StatusUnknown, nil, "unknown"},
		{service.StatusUnknown, service.ErrNotInstalled, "not installed"},
	}
	for _, tt := range tests {
		if got := statusText(tt.st, tt.err); got != tt.want {
			t.Errorf("statusText(%v, %v) = %q, want %q", tt.st, tt.err, got, tt.want)
		}
	}
}

package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/core"
	"github.com/flemzord/tgflow/pkg/record"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type runCall struct {
	creds client.Credentials
	items []command.Item
	opts  command.RunOptions
}

// fakeRunner records batches and answers with a fixed result.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	out   []record.Item
	err   error
}

func (f *fakeRunner) Run(_ context.Context, creds client.Credentials, items []command.Item, opts command.RunOptions) ([]record.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{creds: creds, items: items, opts: opts})
	return f.out, f.err
}

func (f *fakeRunner) Calls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runCall(nil), f.calls...)
}

// fakeReporter serves a fixed session check.
type fakeReporter struct {
	res auth.SessionCheck
	ok  bool
}

func (f fakeReporter) Last() (auth.SessionCheck, time.Time, bool) {
	return f.res, time.Unix(1700000000, 0), f.ok
}

type fakeJobs struct {
	ran  bool
	err  error
	name string
}

func (f *fakeJobs) RunNow(name string) (bool, error) {
	f.name = name
	return f.ran, f.err
}

// newTestGateway returns a provisioned-looking Gateway without touching
// the service registry.
func newTestGateway(t *testing.T, cfg Config) (*Gateway, *fakeRunner) {
	t.Helper()
	cfg.defaults()
	runner := &fakeRunner{out: []record.Item{{JSON: map[string]any{"id": "1"}}}}
	g := &Gateway{
		config:    cfg,
		appCtx:    core.NewAppContext(testLogger(), t.TempDir()),
		logger:    testLogger(),
		metrics:   &Metrics{},
		runner:    runner,
		creds:     client.Credentials{APIID: 1, APIHash: "hash", SessionString: "AQID"},
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	g.dispatcher = NewWebhookDispatcher(g.logger)
	return g, runner
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func bodyContains(t *testing.T, rr *httptest.ResponseRecorder, parts ...string) {
	t.Helper()
	got := rr.Body.String()
	for _, p := range parts {
		if !strings.Contains(got, p) {
			t.Errorf("body %s does not contain %s", got, p)
		}
	}
}

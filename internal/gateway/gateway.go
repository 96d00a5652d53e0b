// Package gateway is the HTTP surface workflow engines call: batch
// execution, the sign-in steps, a websocket stream of trigger events,
// health and metrics. It binds to loopback by default and follows the
// module system pattern.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/core"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/internal/sessionstore"
	"github.com/flemzord/tgflow/internal/telemetry"
	"github.com/flemzord/tgflow/internal/trigger"
	"github.com/flemzord/tgflow/pkg/record"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Executor runs a batch of command items. *command.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, creds client.Credentials, items []command.Item, opts command.RunOptions) ([]record.Item, error)
}

// SessionReporter exposes the latest session health check.
type SessionReporter interface {
	Last() (auth.SessionCheck, time.Time, bool)
}

// JobRunner runs a scheduled job on demand.
type JobRunner interface {
	RunNow(name string) (bool, error)
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing
// imports it.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	mu         sync.Mutex
	server     *http.Server
	metrics    *Metrics
	dispatcher *WebhookDispatcher
	startedAt  time.Time

	runner     Executor
	creds      client.Credentials
	sessions   sessionstore.Store
	telemetry  *telemetry.Metrics
	audit      *security.AuditLogger
	limiter    *security.RateLimiter
	configPath string

	// Resolved lazily at Start() via the service registry; trigger.poller
	// loads after gateway.http.
	hub       *trigger.Hub
	jobs      JobRunner
	sessionOK SessionReporter

	// done is closed by Stop to end event streams, which Shutdown does not
	// track once hijacked.
	done     chan struct{}
	stopOnce sync.Once
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = &Metrics{}

	runner, ok := core.ServiceAs[*command.Runner](ctx, core.ServiceRunner)
	if !ok {
		return errors.New("gateway: no command runner registered")
	}
	g.runner = runner
	g.creds, _ = core.ServiceAs[client.Credentials](ctx, core.ServiceCredentials)
	g.sessions, _ = core.ServiceAs[sessionstore.Store](ctx, core.ServiceSessions)
	g.telemetry, _ = core.ServiceAs[*telemetry.Metrics](ctx, core.ServiceMetrics)
	g.audit, _ = core.ServiceAs[*security.AuditLogger](ctx, core.ServiceAudit)
	g.limiter, _ = core.ServiceAs[*security.RateLimiter](ctx, core.ServiceRateLimiter)
	g.configPath, _ = core.ServiceAs[string](ctx, core.ServiceConfigPath)

	g.dispatcher = NewWebhookDispatcher(g.logger)
	g.dispatcher.maxBody = int64(g.config.MaxBodySize)
	for source, cfg := range g.config.Webhooks {
		g.dispatcher.Register(source, &batchWebhook{gw: g, continueOnFail: cfg.ContinueOnFail}, cfg.Secret)
		g.logger.Info("webhook source configured", "source", source)
	}

	ctx.RegisterService("gateway.metrics", g.metrics)
	ctx.RegisterService("gateway.webhook_dispatcher", g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves the trigger services from the
// registry and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveLate()
	g.startedAt = time.Now()
	g.done = make(chan struct{})

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway auth not configured, /v1 and /api are open on loopback", "addr", g.config.Bind)
	}

	srv := &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	g.mu.Lock()
	g.server = srv
	g.mu.Unlock()

	// Serve on srv, not g.server: Stop may clear the field before this runs.
	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

func (g *Gateway) resolveLate() {
	if hub, ok := core.ServiceAs[*trigger.Hub](g.appCtx, trigger.ServiceHub); ok {
		g.hub = hub
	}
	if svc, ok := g.appCtx.Service(trigger.ServiceScheduler); ok {
		if jobs, ok := svc.(JobRunner); ok {
			g.jobs = jobs
		}
	}
	if svc, ok := g.appCtx.Service(trigger.ServiceSessionCheck); ok {
		if rep, ok := svc.(SessionReporter); ok {
			g.sessionOK = rep
		}
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.server = nil
	g.mu.Unlock()
	if srv == nil {
		return nil
	}
	g.stopOnce.Do(func() { close(g.done) })

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return srv.Shutdown(shutdownCtx)
}

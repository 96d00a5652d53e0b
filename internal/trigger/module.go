package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/core"
	"github.com/flemzord/tgflow/internal/cron"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/telemetry"
)

// Services registered by the module.
const (
	ServiceHub          = "trigger.hub"
	ServiceScheduler    = "trigger.scheduler"
	ServiceSessionCheck = "cron.session_check"
)

func init() {
	core.RegisterModule(&Module{})
}

// Module polls the account's dialogs on a schedule and publishes the
// activity it finds.
type Module struct {
	config    Config
	logger    *slog.Logger
	hub       *Hub
	poller    *Poller
	scheduler *cron.Scheduler
	check     *cron.SessionCheckJob
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "trigger.poller",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	clients, ok := core.ServiceAs[client.Factory](ctx, core.ServiceClients)
	if !ok {
		return errors.New("trigger: no client factory registered")
	}

	m.hub = NewHub()
	m.poller = NewPoller(m.config, func() Source { return clients() }, m.hub, m.logger)
	if metrics, ok := core.ServiceAs[*telemetry.Metrics](ctx, core.ServiceMetrics); ok {
		m.poller.SetObserver(metrics)
	}
	if m.config.Webhook.URL != "" {
		m.poller.SetSink(NewWebhook(m.config.Webhook))
	}

	m.scheduler = cron.NewScheduler(m.logger)
	if err := m.scheduler.RegisterJob(m.poller); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}

	if m.config.SessionCheck != "" {
		job, err := m.sessionCheck(ctx)
		if err != nil {
			return err
		}
		if err := m.scheduler.RegisterJob(job); err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
		m.check = job
		ctx.RegisterService(ServiceSessionCheck, job)
	}

	ctx.RegisterService(ServiceHub, m.hub)
	ctx.RegisterService(ServiceScheduler, m.scheduler)
	return nil
}

func (m *Module) sessionCheck(ctx *core.AppContext) (*cron.SessionCheckJob, error) {
	machine, ok := core.ServiceAs[*auth.Machine](ctx, core.ServiceAuth)
	if !ok {
		return nil, errors.New("trigger: session_check needs the auth service")
	}
	creds, _ := core.ServiceAs[client.Credentials](ctx, core.ServiceCredentials)
	session, err := mtproto.ParseBlob(creds.SessionString)
	if err != nil {
		return nil, fmt.Errorf("trigger: session: %w", err)
	}
	return &cron.SessionCheckJob{
		Checker:      machine,
		Params:       creds.AuthParams(),
		Session:      session,
		Logger:       m.logger,
		ScheduleExpr: m.config.SessionCheck,
	}, nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. The first poll is kicked off right away
// so the high-water marks are primed before the first scheduled tick.
func (m *Module) Start() error {
	if err := m.scheduler.Start(); err != nil {
		return err
	}
	jobs := []string{m.poller.Name()}
	if m.check != nil {
		jobs = append(jobs, m.check.Name())
	}
	go func() {
		for _, name := range jobs {
			if _, err := m.scheduler.RunNow(name); err != nil {
				m.logger.Warn("trigger: initial run", "job", name, "error", err)
			}
		}
	}()
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

package app

import (
	"context"

	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/config"
	"github.com/flemzord/tgflow/internal/core"
)

// AppContext builds the module context and registers the runtime services
// the gateway and the trigger discover.
func (rt *Runtime) AppContext() *core.AppContext {
	appCtx := core.NewAppContext(rt.Logger, rt.DataDir)
	appCtx = appCtx.WithModuleConfigs(rt.Config.Modules)

	appCtx.RegisterService(core.ServiceCredentials, rt.Credentials)
	appCtx.RegisterService(core.ServiceClients, client.NewFactory(rt.Credentials, rt.Dialer, rt.clientOptions()...))
	appCtx.RegisterService(core.ServiceAuth, rt.Auth)
	appCtx.RegisterService(core.ServiceRunner, rt.Runner)
	appCtx.RegisterService(core.ServiceSessions, rt.Sessions)
	appCtx.RegisterService(core.ServiceAudit, rt.Audit)
	appCtx.RegisterService(core.ServiceRateLimiter, rt.Limiter)
	appCtx.RegisterService(core.ServiceRedactor, rt.Redactor)
	appCtx.RegisterService(core.ServiceConfigPath, rt.ConfigPath)
	if rt.Metrics != nil {
		appCtx.RegisterService(core.ServiceMetrics, rt.Metrics)
	}
	return appCtx
}

func (rt *Runtime) clientOptions() []client.Option {
	return append([]client.Option{client.WithLogger(rt.Logger)}, rt.clientOpts...)
}

// Serve loads the configured modules and runs them until ctx is done or a
// shutdown signal arrives.
func (rt *Runtime) Serve(ctx context.Context) error {
	if err := config.ValidateModules(rt.Config); err != nil {
		return err
	}
	if err := rt.Credentials.Validate(); err != nil {
		return err
	}

	application := core.NewApp(rt.AppContext())
	if err := application.LoadModules(config.Resolve(rt.Config)); err != nil {
		return err
	}
	rt.Logger.Info("serving", "component", "app", "modules", len(application.Loaded()), "version", rt.Version)
	return application.Run(ctx)
}

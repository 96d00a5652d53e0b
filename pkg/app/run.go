// Package app builds the runtime shared by the tgflow commands: config,
// logging, telemetry, the MTProto dialer, the sign-in machine, the batch
// runner and the session store.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/config"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/internal/sessionstore"
	"github.com/flemzord/tgflow/internal/telemetry"
	"github.com/flemzord/tgflow/pkg/record"
)

// Params configures Load.
type Params struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version is injected at build time via ldflags.
	Version string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// Session names a stored session to use instead of credentials.session.
	Session string

	// LogLevel overrides log.level when non-empty.
	LogLevel string

	// Stderr receives logs. Defaults to os.Stderr.
	Stderr io.Writer

	// Dialer replaces the gotd dialer. Tests use it.
	Dialer mtproto.Dialer
}

// Runtime holds the wired components. Close releases them.
type Runtime struct {
	Config      *config.Config
	ConfigPath  string
	DataDir     string
	Version     string
	Logger      *slog.Logger
	Credentials client.Credentials
	Dialer      mtproto.Dialer
	Auth        *auth.Machine
	Runner      *command.Runner
	Sessions    sessionstore.Store
	// Metrics is nil unless telemetry.metrics is set.
	Metrics  *telemetry.Metrics
	Audit    *security.AuditLogger
	Limiter  *security.RateLimiter
	Redactor *security.Redactor

	secrets       *security.CredentialStore
	clientOpts    []client.Option
	shutdownTrace telemetry.ShutdownFunc
}

// Load reads the configuration and wires the runtime. The session store is
// opened and, when a session is named, its blob replaces the configured
// session string.
func Load(ctx context.Context, params Params) (*Runtime, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	cfg, err := config.Load(cfgPath, config.LoadOptions{DataDir: dataDir, LogLevel: params.LogLevel})
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// Secrets are registered before the logger exists so nothing leaks.
	secrets := security.NewCredentialStore()
	cfg.Secrets(secrets)
	redactor := security.NewRedactor()
	redactor.SyncCredentials(secrets)

	stderr := params.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := security.NewLogger(stderr, cfg.Log.SlogLevel(), cfg.Log.Format == "json", redactor)

	rt := &Runtime{
		Config:      cfg,
		ConfigPath:  cfgPath,
		DataDir:     dataDir,
		Version:     params.Version,
		Logger:      logger,
		Credentials: cfg.Credentials.Credentials,
		Audit:       security.NewAuditLogger(security.AuditLoggerConfig{Writer: stderr, Redactor: redactor}),
		Limiter:     security.NewRateLimiter(cfg.RateLimit),
		Redactor:    redactor,
		secrets:     secrets,
	}

	shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry, params.Version)
	if err != nil {
		return nil, err
	}
	rt.shutdownTrace = shutdown

	opts := []client.Option{client.WithTracer(telemetry.Tracer())}
	if cfg.Telemetry.Metrics {
		rt.Metrics = telemetry.NewMetrics()
		opts = append(opts, client.WithObserver(rt.Metrics))
	}
	rt.clientOpts = opts

	rt.Dialer = params.Dialer
	if rt.Dialer == nil {
		rt.Dialer = rt.gotdDialer()
	}
	rt.Auth = auth.New(rt.Dialer, logger)
	rt.Runner = command.NewRunner(rt.Dialer, logger, opts...)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("app: creating data dir: %w", err)
	}
	store, err := sessionstore.Open(ctx, cfg.Store, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Sessions = store

	name := params.Session
	if name == "" {
		name = cfg.Credentials.Session
	}
	if name != "" {
		if err := rt.UseSession(ctx, name); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	logger.Debug("runtime ready", "component", "app", "config", cfgPath, "data_dir", dataDir, "store", cfg.Store.Driver)
	return rt, nil
}

// gotdDialer builds the production dialer. The zap transport logger is only
// enabled with log.rpc_debug.
func (rt *Runtime) gotdDialer() mtproto.GotdDialer {
	d := mtproto.GotdDialer{}
	if rt.Config.Log.RPCDebug {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.OutputPaths = []string{"stderr"}
		if l, err := zcfg.Build(); err == nil {
			d.Logger = l
		} else {
			rt.Logger.Warn("rpc debug logger unavailable", "error", err)
		}
	}
	if rt.Metrics != nil {
		d.Middlewares = append(d.Middlewares, rt.Metrics.RPCMiddleware())
	}
	return d
}

// UseSession loads a stored session into the runtime credentials.
func (rt *Runtime) UseSession(ctx context.Context, name string) error {
	entry, err := rt.Sessions.Load(ctx, name)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return fmt.Errorf("app: no stored session %q (run tgflow login --save %s)", name, name)
	}
	if err != nil {
		return err
	}
	rt.Credentials.SessionString = entry.Session.String()
	rt.Remember(security.CredSessionString, rt.Credentials.SessionString)
	rt.Logger.Info("using stored session", "component", "app", "session", name, "user", entry.Username)
	return nil
}

// Remember registers a secret obtained at runtime, such as a fresh session
// string, so later logs redact it.
func (rt *Runtime) Remember(name, value string) {
	rt.secrets.Set(name, value)
	rt.Redactor.SyncCredentials(rt.secrets)
}

// SaveSession stores blob under name and records an audit event.
func (rt *Runtime) SaveSession(ctx context.Context, name string, blob mtproto.Blob, user *record.UserSummary) error {
	if err := sessionstore.ValidateName(name); err != nil {
		return err
	}
	entry := sessionstore.Entry{Name: name, Session: blob}
	if user != nil {
		entry.UserID = user.ID
		if user.Username != nil {
			entry.Username = *user.Username
		}
	}
	if err := rt.Sessions.Save(ctx, entry); err != nil {
		return err
	}
	rt.Audit.Log(security.AuditEvent{Type: security.EventSessionSave, Session: name})
	rt.Logger.Info("session saved", "component", "app", "session", name)
	return nil
}

// Close flushes traces and closes the session store.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Sessions != nil {
		errs = append(errs, rt.Sessions.Close())
	}
	if rt.shutdownTrace != nil {
		errs = append(errs, rt.shutdownTrace(ctx))
	}
	return errors.Join(errs...)
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/tgflow/tgflow.yaml → ~/.config/tgflow/tgflow.yaml → ./tgflow.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "tgflow", "tgflow.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "tgflow", "tgflow.yaml"))
	}

	candidates = append(candidates, "tgflow.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/tgflow if set, otherwise ~/.local/share/tgflow per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "tgflow")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tgflow")
}

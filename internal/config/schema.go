// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for tgflow.
package config

import (
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/security"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Credentials CredentialsConfig        `yaml:"credentials"`
	Log         LogConfig                `yaml:"log"`
	Store       StoreConfig              `yaml:"store"`
	Telemetry   TelemetryConfig          `yaml:"telemetry"`
	RateLimit   security.RateLimitConfig `yaml:"rate_limit"`
	Modules     map[string]yaml.Node     `yaml:"modules"`
}

// CredentialsConfig is the account the commands run as.
type CredentialsConfig struct {
	client.Credentials `yaml:",inline"`

	// Session names a session in the store. When set, its blob replaces
	// SessionString at startup.
	Session string `yaml:"session"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`
	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
	// RPCDebug enables the MTProto transport logger.
	RPCDebug bool `yaml:"rpc_debug"`
}

// SlogLevel maps Level to a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// StoreConfig selects where session blobs are kept.
type StoreConfig struct {
	// Driver is sqlite or redis. Defaults to sqlite.
	Driver string `yaml:"driver"`
	// Path is the sqlite file. Defaults to <data dir>/sessions.db.
	Path string `yaml:"path"`
	// URL is the redis URL, e.g. redis://localhost:6379/0.
	URL string `yaml:"url"`
	// Passphrase, when set, seals every stored blob.
	Passphrase string `yaml:"passphrase"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// Metrics enables the prometheus collectors.
	Metrics bool `yaml:"metrics"`
	// OTLPEndpoint is the OTLP/HTTP collector (host:port). Empty disables
	// trace export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Insecure sends traces over plain http.
	Insecure bool `yaml:"insecure"`
	// ServiceName defaults to tgflow.
	ServiceName string `yaml:"service_name"`
}

// Secrets loads the configured secrets into store for log redaction.
func (c *Config) Secrets(store *security.CredentialStore) {
	store.Set(security.CredAPIHash, c.Credentials.APIHash)
	store.Set(security.CredSessionString, c.Credentials.SessionString)
	store.Set(security.CredTwoFactorPassword, c.Credentials.TwoFactorPassword)
	store.Set(security.CredPhoneNumber, c.Credentials.PhoneNumber)
	store.Set(security.CredStorePassphrase, c.Store.Passphrase)
}

package gateway

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/flemzord/tgflow/internal/security"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string                      `yaml:"bind"`
	Auth            AuthConfig                  `yaml:"auth"`
	Webhooks        map[string]WebhookSourceCfg `yaml:"webhooks"`
	ReadTimeout     time.Duration               `yaml:"read_timeout"`
	WriteTimeout    time.Duration               `yaml:"write_timeout"`
	ShutdownTimeout time.Duration               `yaml:"shutdown_timeout"`
	// MaxBodySize bounds request bodies in bytes.
	MaxBodySize int `yaml:"max_body_size"`
	// OriginPatterns are the browser origins allowed on /v1/events.
	OriginPatterns []string `yaml:"origin_patterns"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// sendMedia uploads and paginated member lists take a while.
		c.WriteTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = security.DefaultMaxBodySize
	}
}

func (c *Config) validate() error {
	var errs []error
	host, _, err := net.SplitHostPort(c.Bind)
	if err != nil {
		errs = append(errs, fmt.Errorf("gateway: invalid bind address %q", c.Bind))
	} else if !c.Auth.IsConfigured() && !loopback(host) {
		errs = append(errs, fmt.Errorf("gateway: auth is required when binding to %s", c.Bind))
	}
	for source, wh := range c.Webhooks {
		if wh.Secret == "" {
			errs = append(errs, fmt.Errorf("gateway: webhook source %q has no secret", source))
		}
	}
	return errors.Join(errs...)
}

func loopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// AuthConfig configures authentication for the /v1 and admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// WebhookSourceCfg holds per-source webhook configuration. A source posts
// an execute request signed with its secret.
type WebhookSourceCfg struct {
	Secret         string `yaml:"secret"`
	ContinueOnFail bool   `yaml:"continue_on_fail"`
}

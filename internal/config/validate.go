package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/tgflow/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, the credentials, the log and store
// settings, and that every referenced module ID exists in the registry.
// Registered Configurable modules must have a config entry only when at
// least one module is configured; a config without modules is valid for
// the one-shot commands.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateCredentials(cfg.Credentials)...)
	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateStore(cfg.Store)...)

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	return errors.Join(errs...)
}

// ValidateModules additionally requires a config entry for every registered
// Configurable module. tgflow serve calls it; the one-shot commands do not.
func ValidateModules(cfg *Config) error {
	var errs []error
	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}
	for _, info := range core.GetModules() {
		mod := info.New()
		if _, ok := mod.(core.Configurable); ok {
			if _, exists := cfg.Modules[string(info.ID)]; !exists {
				errs = append(errs, fmt.Errorf("config: module %q requires configuration but has no entry", info.ID))
			}
		}
	}
	return errors.Join(errs...)
}

func validateCredentials(c CredentialsConfig) []error {
	var errs []error
	if c.APIID < 0 {
		errs = append(errs, fmt.Errorf("config: credentials.api_id must be positive, got %d", c.APIID))
	}
	if c.Session != "" && c.SessionString != "" {
		errs = append(errs, errors.New("config: credentials.session and credentials.session_string are mutually exclusive"))
	}
	if p := c.PhoneNumber; p != "" && !strings.HasPrefix(p, "+") {
		errs = append(errs, fmt.Errorf("config: credentials.phone_number must be in international format (+...), got %q", p))
	}
	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", l.Level))
	}
	switch l.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q is not text or json", l.Format))
	}
	return errs
}

func validateStore(s StoreConfig) []error {
	switch s.Driver {
	case "", StoreSQLite:
		return nil
	case StoreRedis:
		if s.URL == "" {
			return []error{errors.New("config: store.url is required for the redis driver")}
		}
		return nil
	default:
		return []error{fmt.Errorf("config: store.driver %q is not sqlite or redis", s.Driver)}
	}
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// ErrEmptyConfig is returned for a config file with no YAML content.
var ErrEmptyConfig = errors.New("config: file is empty")

// LoadOptions carries the command-line values that shape a loaded Config.
type LoadOptions struct {
	// DataDir is where the default SQLite session database lives. Empty
	// leaves Store.Path unset.
	DataDir string
	// LogLevel overrides log.level from the file when non-empty.
	LogLevel string
}

// Load reads tgflow.yaml, expands ${VAR} references from the environment,
// applies the --log-level override and fills defaults. It does not
// validate; call Validate on the result.
func Load(path string, opts LoadOptions) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyConfig, path)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	cfg := new(Config)
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	ApplyDefaults(cfg, opts.DataDir)
	return cfg, nil
}

// expandEnv substitutes every ${VAR} in raw. Variables with neither a value
// nor a default are collected into one error.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string
	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		if v, ok := os.LookupEnv(string(subs[1])); ok {
			return []byte(v)
		}
		if subs[2] != nil {
			return subs[2]
		}
		missing = append(missing, string(subs[1]))
		return match
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved variables: %v", missing)
	}
	return out, nil
}

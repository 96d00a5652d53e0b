package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/config"
	"github.com/flemzord/tgflow/internal/core"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/internal/sessionstore"
)

// sessionJSON is a stored session without its secret.
type sessionJSON struct {
	Name      string `json:"name"`
	UserID    string `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// handleListSessions returns the stored sessions as JSON.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.sessions == nil {
			writeJSON(w, http.StatusOK, []sessionJSON{})
			return
		}
		entries, err := g.sessions.List(r.Context())
		if err != nil {
			g.logger.Error("listing sessions failed", "error", err)
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}
		out := make([]sessionJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, sessionJSON{
				Name:      e.Name,
				UserID:    e.UserID,
				Username:  e.Username,
				UpdatedAt: e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleDeleteSession deletes a stored session by name.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := sessionstore.ValidateName(name); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if g.sessions == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		err := g.sessions.Delete(r.Context(), name)
		switch {
		case errors.Is(err, sessionstore.ErrNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
			return
		case err != nil:
			g.logger.Error("deleting session failed", "session", name, "error", err)
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}

		g.auditLog(r, security.AuditEvent{Type: security.EventSessionDelete, Session: name})
		w.WriteHeader(http.StatusNoContent)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func modulesJSON(mods []core.ModuleInfo) []moduleJSON {
	out := make([]moduleJSON, 0, len(mods))
	for _, m := range mods {
		out = append(out, moduleJSON{
			ID:        string(m.ID),
			Namespace: m.ID.Namespace(),
			Name:      m.ID.Name(),
		})
	}
	return out
}

// handleGetAllModules lists compiled modules, optionally narrowed by
// ?namespace=.
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mods := core.GetModules()
		if ns := r.URL.Query().Get("namespace"); ns != "" {
			mods = core.GetModulesByNamespace(ns)
		}
		writeJSON(w, http.StatusOK, modulesJSON(mods))
	}
}

// handleListCommands lists every resource/operation pair with its params.
func (g *Gateway) handleListCommands() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, command.Specs())
	}
}

// secretPattern matches YAML keys that likely contain secrets.
var secretPattern = regexp.MustCompile(`(?i)(secret|token|password|pass|hash|session|phone|api_key)`)

// handleGetConfig returns the current config with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		cfg, err := config.Load(g.configPath, config.LoadOptions{})
		if err != nil {
			http.Error(w, "failed to load config", http.StatusInternalServerError)
			return
		}

		raw, err := yaml.Marshal(cfg)
		if err != nil {
			http.Error(w, "failed to serialize config", http.StatusInternalServerError)
			return
		}

		var generic map[string]any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			http.Error(w, "failed to parse config", http.StatusInternalServerError)
			return
		}

		redactSecrets(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// redactSecrets walks a map and replaces values whose keys match the secret pattern.
func redactSecrets(m map[string]any) {
	for k, v := range m {
		if secretPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = "***REDACTED***"
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			redactSecrets(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					redactSecrets(sub)
				}
			}
		}
	}
}

// handleCheckConfig loads and validates the config file on disk without
// applying it.
func (g *Gateway) handleCheckConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		cfg, err := config.Load(g.configPath, config.LoadOptions{})
		if err != nil {
			g.logger.Warn("config check failed", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if err := config.Validate(cfg); err != nil {
			g.logger.Warn("config validation failed", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "valid"})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

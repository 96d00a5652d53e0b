package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/tgflow/pkg/record"
)

// SessionHealth is the latest scheduled session check.
type SessionHealth struct {
	Valid     bool                `json:"valid"`
	User      *record.UserSummary `json:"user,omitempty"`
	Message   string              `json:"message"`
	CheckedAt time.Time           `json:"checked_at"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string         `json:"status"` // "ok" or "degraded"
	Session *SessionHealth `json:"session,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while the session is valid or unchecked, 503 once a
// scheduled check has found it invalid.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.sessionOK != nil {
			if res, at, ok := g.sessionOK.Last(); ok {
				resp.Session = &SessionHealth{Valid: res.Valid, User: res.User, Message: res.Message, CheckedAt: at}
				if !res.Valid {
					resp.Status = "degraded"
				}
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

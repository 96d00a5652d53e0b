package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime         int64           `json:"uptime_seconds"`
	Metrics        MetricsSnapshot `json:"metrics"`
	Modules        []string        `json:"modules"`
	Subscribers    int             `json:"event_subscribers"`
	WebhookSources int             `json:"webhook_sources"`
	TriggerLoaded  bool            `json:"trigger_loaded"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:         int64(time.Since(g.startedAt) / time.Second),
			Metrics:        g.metrics.Snapshot(),
			Modules:        []string{},
			WebhookSources: g.dispatcher.Sources(),
			TriggerLoaded:  g.hub != nil,
		}
		for _, id := range g.appCtx.ConfiguredModules() {
			resp.Modules = append(resp.Modules, string(id))
		}
		if g.hub != nil {
			resp.Subscribers = g.hub.Subscribers()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID, middleware.Recoverer)
	if g.telemetry != nil {
		r.Use(instrument(g.telemetry))
	}

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.telemetry != nil {
		r.Method(http.MethodGet, "/metrics", g.telemetry.Handler())
	}

	// Webhooks carry their own HMAC auth per source.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit, g.limiter))
		}
		r.Get("/status", g.handleStatus())
		r.Route("/v1", func(r chi.Router) {
			r.Post("/execute", g.handleExecute())
			r.Post("/auth/{step}", g.handleAuthStep())
			r.Get("/events", g.handleEvents())
			r.Post("/trigger/poll", g.handleTriggerPoll())
		})
		r.Route("/api", func(r chi.Router) {
			r.Get("/sessions", g.handleListSessions())
			r.Delete("/sessions/{name}", g.handleDeleteSession())
			r.Get("/modules", g.handleGetAllModules())
			r.Get("/commands", g.handleListCommands())
			r.Get("/config", g.handleGetConfig())
			r.Post("/config/check", g.handleCheckConfig())
		})
	})

	return r
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/internal/sessionstore"
	"github.com/flemzord/tgflow/pkg/record"
)

// ExecuteRequest is the body of POST /v1/execute and of signed webhooks.
type ExecuteRequest struct {
	Items          []command.Item `json:"items"`
	ContinueOnFail bool           `json:"continueOnFail"`
	// Session names a stored session to run with instead of the one in
	// the configured credentials.
	Session string `json:"session,omitempty"`
}

// ExecuteResponse carries the outputs. On an aborted batch Items holds the
// outputs produced before the failing item.
type ExecuteResponse struct {
	Items []record.Item `json:"items"`
	Error string        `json:"error,omitempty"`
	Kind  errs.Kind     `json:"kind,omitempty"`
}

// readBody reads and checks a JSON request body.
func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(g.config.MaxBodySize)+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit %d", security.ErrBodyTooLarge, g.config.MaxBodySize)
		}
		return nil, err
	}
	if err := security.ValidateBodySize(body, g.config.MaxBodySize); err != nil {
		return nil, err
	}
	if err := security.ValidateJSONDepth(body, security.DefaultMaxJSONDepth); err != nil {
		return nil, err
	}
	return body, nil
}

func badBody(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	if errors.Is(err, security.ErrBodyTooLarge) {
		code = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, code, ExecuteResponse{Items: []record.Item{}, Error: err.Error(), Kind: errs.KindConfiguration})
}

// credentials returns the credentials for a request, swapping in a stored
// session when one is named.
func (g *Gateway) credentials(ctx context.Context, session string) (client.Credentials, error) {
	creds := g.creds
	if session == "" {
		return creds, nil
	}
	if g.sessions == nil {
		return creds, errs.Configf("no session store configured")
	}
	entry, err := g.sessions.Load(ctx, session)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return creds, errs.Configf("unknown session %q", session)
	}
	if err != nil {
		return creds, err
	}
	creds.SessionString = entry.Session.String()
	return creds, nil
}

// execute runs a batch and writes the response. kind selects the rate
// limit bucket and audit event type.
func (g *Gateway) execute(w http.ResponseWriter, r *http.Request, req ExecuteRequest, signIn bool) {
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, ExecuteResponse{Items: []record.Item{}, Error: "no items", Kind: errs.KindConfiguration})
		return
	}

	bucket, event := security.KindExecute, security.EventExecute
	if signIn {
		bucket, event = security.KindSignIn, security.EventSignIn
	}
	if g.limiter != nil {
		if err := g.limiter.AllowN(bucket, len(req.Items)); err != nil {
			g.auditLog(r, security.AuditEvent{Type: security.EventRateLimit, Detail: err.Error()})
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, ExecuteResponse{Items: []record.Item{}, Error: err.Error()})
			return
		}
	}

	creds, err := g.credentials(r.Context(), req.Session)
	if err != nil {
		writeJSON(w, statusFor(err), ExecuteResponse{Items: []record.Item{}, Error: err.Error(), Kind: errs.KindOf(err)})
		return
	}

	for _, it := range req.Items {
		g.auditLog(r, security.AuditEvent{Type: event, Resource: it.Resource, Operation: it.Operation, Session: req.Session})
	}

	g.metrics.RecordBatch(len(req.Items))
	out, err := g.runner.Run(r.Context(), creds, req.Items, command.RunOptions{ContinueOnFail: req.ContinueOnFail})
	if out == nil {
		out = []record.Item{}
	}
	if err != nil {
		g.metrics.RecordError()
		g.logger.Warn("batch failed", "request_id", requestID(r.Context()), "error", err)
		writeJSON(w, statusFor(err), ExecuteResponse{Items: out, Error: err.Error(), Kind: errs.KindOf(err)})
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{Items: out})
}

// statusFor maps a failure kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindConfiguration:
		return http.StatusBadRequest
	case errs.KindResolution:
		return http.StatusNotFound
	case errs.KindProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func (g *Gateway) auditLog(r *http.Request, e security.AuditEvent) {
	if g.audit == nil {
		return
	}
	e.RequestID = requestID(r.Context())
	if e.Metadata == nil {
		e.Metadata = map[string]string{"remote_addr": r.RemoteAddr}
	}
	g.audit.Log(e)
}

// handleExecute serves POST /v1/execute.
func (g *Gateway) handleExecute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := g.readBody(w, r)
		if err != nil {
			badBody(w, err)
			return
		}
		var req ExecuteRequest
		if err := json.Unmarshal(body, &req); err != nil {
			badBody(w, fmt.Errorf("%w: %w", security.ErrInvalidJSON, err))
			return
		}
		g.execute(w, r, req, false)
	}
}

// handleAuthStep serves POST /v1/auth/{step}. The body holds the step's
// params, for example {"phoneCode": "12345", ...} for submitCode.
func (g *Gateway) handleAuthStep() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := g.readBody(w, r)
		if err != nil {
			badBody(w, err)
			return
		}
		item := command.Item{Resource: "auth", Operation: chi.URLParam(r, "step"), Params: body}
		g.execute(w, r, ExecuteRequest{Items: []command.Item{item}}, true)
	}
}

// handleTriggerPoll serves POST /v1/trigger/poll.
func (g *Gateway) handleTriggerPoll() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.jobs == nil {
			http.Error(w, "trigger not loaded", http.StatusServiceUnavailable)
			return
		}
		ran, err := g.jobs.RunNow("trigger_poll")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		code := http.StatusOK
		if !ran {
			code = http.StatusConflict
		}
		writeJSON(w, code, map[string]bool{"ran": ran})
	}
}

// batchWebhook runs a signed execute request posted by a webhook source.
type batchWebhook struct {
	gw             *Gateway
	continueOnFail bool
}

// HandleWebhook implements WebhookHandler.
func (b *batchWebhook) HandleWebhook(ctx context.Context, source string, body []byte, _ http.Header) (any, error) {
	if err := security.ValidateJSONDepth(body, security.DefaultMaxJSONDepth); err != nil {
		return nil, err
	}
	var req ExecuteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", security.ErrInvalidJSON, err)
	}
	if len(req.Items) == 0 {
		return nil, errs.Configf("webhook %s: no items", source)
	}
	if b.gw.limiter != nil {
		if err := b.gw.limiter.AllowN(security.KindExecute, len(req.Items)); err != nil {
			return nil, err
		}
	}
	creds, err := b.gw.credentials(ctx, req.Session)
	if err != nil {
		return nil, err
	}
	if b.gw.audit != nil {
		for _, it := range req.Items {
			b.gw.audit.Log(security.AuditEvent{
				Type: security.EventExecute, RequestID: requestID(ctx), Resource: it.Resource, Operation: it.Operation,
				Session: req.Session, Metadata: map[string]string{"webhook": source},
			})
		}
	}
	b.gw.metrics.RecordBatch(len(req.Items))
	out, err := b.gw.runner.Run(ctx, creds, req.Items, command.RunOptions{ContinueOnFail: b.continueOnFail || req.ContinueOnFail})
	if err != nil {
		b.gw.metrics.RecordError()
		return nil, err
	}
	return ExecuteResponse{Items: out}, nil
}

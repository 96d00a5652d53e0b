package trigger

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/flemzord/tgflow/internal/security"
)

// SignatureHeader carries the HMAC-SHA256 of the body as "sha256=<hex>".
const SignatureHeader = "X-Signature-256"

// Webhook posts every event as JSON to a fixed URL.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	filter *security.URLFilter
}

// NewWebhook creates a Webhook sink from cfg.
func NewWebhook(cfg WebhookConfig) *Webhook {
	return &Webhook{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: cfg.Timeout},
		filter: security.NewURLFilter(cfg.Filter),
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver implements Sink. Any non-2xx answer is an error.
func (w *Webhook) Deliver(ctx context.Context, e Event) error {
	if err := w.filter.Check(w.url); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("trigger: encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("trigger: webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", e.ID)
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger: webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("trigger: webhook answered %s", resp.Status)
	}
	return nil
}

package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/tgflow/internal/security"
)

func TestWebhook_DeliverSigned(t *testing.T) {
	t.Parallel()

	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(WebhookConfig{
		URL:     srv.URL,
		Secret:  "s3cret",
		Timeout: time.Second,
		Filter:  security.URLFilterConfig{AllowHTTP: true},
	})
	e := Event{ID: "evt-1", Type: EventNewMessage, ChatID: "42"}
	if err := w.Deliver(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if gotSig != Sign("s3cret", gotBody) {
		t.Errorf("signature %q does not match body", gotSig)
	}
	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil || decoded.ID != "evt-1" {
		t.Errorf("body = %s, %v", gotBody, err)
	}
}

func TestWebhook_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Run("non 2xx", func(t *testing.T) {
		t.Parallel()
		w := NewWebhook(WebhookConfig{URL: srv.URL, Timeout: time.Second, Filter: security.URLFilterConfig{AllowHTTP: true}})
		if err := w.Deliver(context.Background(), Event{ID: "x"}); err == nil {
			t.Fatal("expected error for 502")
		}
	})

	t.Run("blocked url", func(t *testing.T) {
		t.Parallel()
		w := NewWebhook(WebhookConfig{URL: srv.URL, Timeout: time.Second})
		err := w.Deliver(context.Background(), Event{ID: "x"})
		if !errors.Is(err, security.ErrURLBlocked) {
			t.Fatalf("err = %v, want ErrURLBlocked", err)
		}
	})
}

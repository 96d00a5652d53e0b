package security

import (
	"encoding/json"
	"io"
	"maps"
	"sync"
	"time"
)

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	EventExecute       EventType = "execute"
	EventSignIn        EventType = "sign_in"
	EventAuthSuccess   EventType = "auth_success"
	EventAuthFailure   EventType = "auth_failure"
	EventSessionSave   EventType = "session_save"
	EventSessionDelete EventType = "session_delete"
	EventRateLimit     EventType = "rate_limit"
)

// AuditEvent is one audit log line.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	Resource  string            `json:"resource,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Session   string            `json:"session,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures an AuditLogger.
type AuditLoggerConfig struct {
	// Writer receives JSONL. Nil disables writing.
	Writer io.Writer
	// Redactor, if set, is applied to Detail and Metadata values.
	Redactor *Redactor
	// OnEvent, if set, sees every event after redaction.
	OnEvent func(AuditEvent)
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	writer   io.Writer
	redactor *Redactor
	onEvent  func(AuditEvent)
	now      func() time.Time
	mu       sync.Mutex
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{writer: cfg.Writer, redactor: cfg.Redactor, onEvent: cfg.OnEvent, now: now}
}

// Log stamps and writes event. The caller's Metadata map is not modified.
func (l *AuditLogger) Log(event AuditEvent) {
	event.Timestamp = l.now()
	event.Metadata = maps.Clone(event.Metadata)

	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = l.redactor.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.writer != nil {
		_ = json.NewEncoder(l.writer).Encode(event)
	}
}

// Package securitytest holds security doubles for other packages' tests.
package securitytest

import (
	"sync"

	"github.com/flemzord/tgflow/internal/security"
)

// NewTestRedactor returns a Redactor without the default patterns, so test
// fixtures that look like phone numbers or sessions survive. Literals are
// still redacted.
func NewTestRedactor(literals ...string) *security.Redactor {
	r := &security.Redactor{}
	for _, l := range literals {
		r.AddLiteral(l)
	}
	return r
}

// AuditRecorder collects audit events in memory.
type AuditRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

// Events returns a copy of the recorded events.
func (r *AuditRecorder) Events() []security.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]security.AuditEvent(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *AuditRecorder) OfType(t security.EventType) []security.AuditEvent {
	var out []security.AuditEvent
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// NewTestAuditLogger returns an AuditLogger that writes nowhere and the
// recorder it reports to.
func NewTestAuditLogger() (*security.AuditLogger, *AuditRecorder) {
	rec := &AuditRecorder{}
	logger := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			rec.mu.Lock()
			rec.events = append(rec.events, e)
			rec.mu.Unlock()
		},
	})
	return logger, rec
}

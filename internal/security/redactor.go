package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder replaces every redacted value.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys whose values are secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|passphrase|api_?hash|session|phone|credential)`)

// Redactor replaces secrets in strings and maps. Patterns catch known
// formats; literals catch the credentials loaded at runtime.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor returns a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// SyncCredentials replaces the literals with the values in store.
func (r *Redactor) SyncCredentials(store *CredentialStore) {
	values := store.Values()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = values
}

// Redact replaces every known secret in s with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	// Literals run before patterns so a known session is replaced whole.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap redacts m in place. Values under secret-looking keys are
// replaced whole; other strings go through Redact.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			if redacted := r.Redact(val); redacted != val {
				m[k] = redacted
			}
		}
	}
}

// DefaultPatterns returns the built-in secret formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Bot API token: numeric bot id, colon, 35 character secret.
		regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}`),
		// Authorization header values.
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]+=*`),
		// Exported sessions are long unbroken base64 runs.
		regexp.MustCompile(`[A-Za-z0-9+/_-]{200,}={0,2}`),
		// International phone numbers.
		regexp.MustCompile(`\+\d{7,15}\b`),
	}
}

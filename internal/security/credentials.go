// Package security keeps secrets out of logs and guards the HTTP surface:
// credential redaction, an audit trail, rate limits, request validation and
// outbound URL filtering.
package security

import (
	"slices"
	"sync"
)

// Credential names registered by the CLI and the gateway.
const (
	CredAPIHash           = "api_hash"
	CredSessionString     = "session_string"
	CredTwoFactorPassword = "two_factor_password"
	CredPhoneNumber       = "phone_number"
	CredStorePassphrase   = "store_passphrase"
	CredGatewayToken      = "gateway_token"
)

// CredentialStore holds the secrets of the running process. Its values feed
// the Redactor.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]string)}
}

// Set stores a credential, replacing any previous value. Empty values are
// dropped so they never match in redaction.
func (s *CredentialStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.creds, name)
		return
	}
	s.creds[name] = value
}

// Get returns a credential.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[name]
	return v, ok
}

// Names returns the credential names, sorted.
func (s *CredentialStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.creds))
	for name := range s.creds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Values returns every credential value in no particular order.
func (s *CredentialStore) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]string, 0, len(s.creds))
	for _, v := range s.creds {
		values = append(values, v)
	}
	return values
}

// Delete removes a credential.
func (s *CredentialStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, name)
}

// Len returns the number of credentials.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

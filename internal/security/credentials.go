// Package security keeps the sync secrets out of logs, log files, and
// subprocess environments that have no business seeing them.
package security

import (
	"os"
	"slices"
	"sync"
)

// CredentialStore is a thread-safe store for the secrets of a run, keyed by
// the environment variable name they travel under.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[string]string),
	}
}

// LoadEnv copies the named variables from the process environment.
// Unset variables are recorded as empty; whether that is acceptable is
// for the consumer to decide.
func (s *CredentialStore) LoadEnv(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if name == "" {
			continue
		}
		s.creds[name] = os.Getenv(name)
	}
}

// Set stores a credential, overwriting any previous value.
func (s *CredentialStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[name] = value
}

// Get returns the credential value and true, or "" and false if not found.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[name]
	return v, ok
}

// Names returns a sorted list of all credential names.
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

// Values returns all non-empty credential values. Order is not guaranteed.
// This is intended for registering values with a Redactor.
func (s *CredentialStore) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]string, 0, len(s.creds))
	for _, v := range s.creds {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Environ renders the store as NAME=value entries sorted by name.
func (s *CredentialStore) Environ() []string {
	names := s.Names()

	s.mu.RLock()
	defer s.mu.RUnlock()

	env := make([]string, 0, len(names))
	for _, name := range names {
		env = append(env, name+"="+s.creds[name])
	}
	return env
}

package service

import (
	"sync"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
)

// CredentialStore caches the current bearer credential for the process. It
// is a single mutable slot: writes replace the whole value, never merge
// fields, so a reader can never observe a half-updated credential.
type CredentialStore struct {
	mu        sync.RWMutex
	cred      *domain.Credential
	fetchedAt time.Time
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Set replaces the cached credential and records the fetch time.
func (s *CredentialStore) Set(cred domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cred
	s.cred = &c
	s.fetchedAt = time.Now()
}

// Get returns a copy of the cached credential, if one is present.
func (s *CredentialStore) Get() (domain.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return domain.Credential{}, false
	}
	return *s.cred, true
}

// Clear empties the slot.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.fetchedAt = time.Time{}
}

// FetchedAt returns when the cached credential was last written, zero when
// the slot is empty.
func (s *CredentialStore) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

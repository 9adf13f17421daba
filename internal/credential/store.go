package credential

import (
	"errors"
	"sync"
	"time"
)

// Credential is the unit of session persistence: the bearer token, the
// profile it was issued for, and the login time used for session expiry
// warnings. A credential is stored and cleared as a whole; a store never
// holds a token without its user or vice versa.
type Credential struct {
	Token   string      `json:"token"`
	User    UserProfile `json:"user"`
	LoginAt time.Time   `json:"loginAt"`
}

// Complete reports whether the credential satisfies the all-or-nothing
// invariant required for persistence.
func (c Credential) Complete() bool {
	return c.Token != "" && c.User.ID != 0
}

// ErrIncompleteCredential is returned by Set when the token or user is
// missing. Partial credentials are never persisted.
var ErrIncompleteCredential = errors.New("credential requires both token and user")

// Store persists the current session credential. Implementations must
// treat malformed underlying data as absent rather than failing, and Set
// must replace any previous credential atomically.
type Store interface {
	// Get returns the stored credential and whether one is present.
	Get() (Credential, bool)

	// Set stores the credential, replacing any previous one.
	Set(cred Credential) error

	// Clear removes the stored credential. Clearing an empty store is a
	// no-op.
	Clear() error

	// IsPresent reports whether a complete credential is stored.
	IsPresent() bool
}

// MemoryStore is a Store backed by process memory. It is the default for
// tests and for callers that manage persistence themselves.
type MemoryStore struct {
	mu      sync.RWMutex
	cred    Credential
	present bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cred, s.present
}

func (s *MemoryStore) Set(cred Credential) error {
	if !cred.Complete() {
		return ErrIncompleteCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
	s.present = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = Credential{}
	s.present = false
	return nil
}

func (s *MemoryStore) IsPresent() bool {
	_, present := s.Get()
	return present
}

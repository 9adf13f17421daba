package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists the credential as a JSON document on disk, so a
// session survives process restarts. Writes go through a temporary file
// and rename, keeping the stored credential whole even if the process
// dies mid-write. A file that cannot be read or parsed is treated as an
// absent credential, never as an error.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at path. The parent directory
// is created if necessary.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential store path must be configured")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("could not create credential store directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) Get() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

func (s *FileStore) read() (Credential, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug().Err(err).Str("path", s.path).Msg("credential store unreadable, treating as absent")
		}
		return Credential{}, false
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		log.Debug().Err(err).Str("path", s.path).Msg("credential store malformed, treating as absent")
		return Credential{}, false
	}

	if !cred.Complete() {
		return Credential{}, false
	}

	return cred, true
}

func (s *FileStore) Set(cred Credential) error {
	if !cred.Complete() {
		return ErrIncompleteCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("could not encode credential: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("could not write credential: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("could not store credential: %w", err)
	}

	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not clear credential: %w", err)
	}
	return nil
}

func (s *FileStore) IsPresent() bool {
	_, present := s.Get()
	return present
}

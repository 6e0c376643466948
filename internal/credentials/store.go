// Package credentials persists the active session credential across
// client restarts.
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"portfoliocore/internal/models"
)

// Store is a durable holder for the current session's credential.
// If the backing file becomes unreadable or unwritable, the store
// degrades to memory-only for the process lifetime: callers are not
// informed, the session simply does not survive a restart.
//
// Only the refresh coordinator and the login flow may call Save and
// Clear; every other component only reads.
type Store struct {
	path string
	log  *zap.Logger

	mu       sync.Mutex
	mem      *models.Credential
	loaded   bool
	degraded bool
}

// New creates a Store backed by the file at path.
func New(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load returns the active credential, or nil if none exists.
func (s *Store) Load() *models.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loadFileLocked()
		s.loaded = true
	}
	if s.mem == nil {
		return nil
	}
	cred := *s.mem
	return &cred
}

// Save replaces the active credential and writes it to disk.
func (s *Store) Save(cred models.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem = &cred
	s.loaded = true

	if s.degraded {
		return
	}
	if err := s.writeFileLocked(cred); err != nil {
		s.degraded = true
		s.log.Warn("credential storage unavailable, keeping session in memory only",
			zap.String("path", s.path), zap.Error(err))
	}
}

// Clear deletes the active credential from memory and disk.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem = nil
	s.loaded = true

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove credential file", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *Store) loadFileLocked() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.degraded = true
			s.log.Warn("credential storage unreadable", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.log.Warn("credential file corrupted, discarding", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.mem = &cred
}

func (s *Store) writeFileLocked(cred models.Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

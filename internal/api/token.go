package api

import (
	"errors"
	"os"
	"sync"
)

// TokenStore persists the session token across restarts. The client keeps
// the token in memory and only touches the store on first read, on set and
// on clear.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file, the CLI/server
// equivalent of the browser's local storage slot.
type FileTokenStore struct {
	Path string
}

func (s *FileTokenStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *FileTokenStore) Save(token string) error {
	return os.WriteFile(s.Path, []byte(token), 0o600)
}

func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemTokenStore is an in-memory store for tests and for deployments that
// do not want the token surviving a restart.
type MemTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

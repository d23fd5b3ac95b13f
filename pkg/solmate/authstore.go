package solmate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// AuthStore persists login signatures per serial number in a small JSON
// file, so repeated runs can skip the password login. The zero value is
// not usable; construct with NewAuthStore.
type AuthStore struct {
	mu   sync.Mutex
	path string
}

// DefaultAuthStorePath returns ~/.solmate/authstore.json.
func DefaultAuthStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".solmate", "authstore.json"), nil
}

// NewAuthStore creates a store backed by the given file path.
func NewAuthStore(path string) *AuthStore {
	return &AuthStore{path: path}
}

// Get returns the stored signature for a serial number, if any.
func (s *AuthStore) Get(serialnum string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return "", false
	}
	tok, ok := m[serialnum]
	return tok, ok && tok != ""
}

// Put stores a signature for a serial number, creating the file and its
// directory as needed.
func (s *AuthStore) Put(serialnum, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[serialnum] = token
	return s.save(m)
}

// Delete drops a stored signature, e.g. after the backend rejected it.
func (s *AuthStore) Delete(serialnum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	delete(m, serialnum)
	return s.save(m)
}

func (s *AuthStore) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read auth store: %w", err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode auth store %s: %w", s.path, err)
	}
	return m, nil
}

func (s *AuthStore) save(m map[string]string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write auth store: %w", err)
	}
	return nil
}

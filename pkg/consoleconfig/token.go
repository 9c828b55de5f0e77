package consoleconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists the bearer token on disk. It satisfies the API
// client's TokenSource.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Token returns the stored token, or "" when the operator never logged in.
func (s *TokenStore) Token() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(strings.TrimSpace(token)+"\n"), 0o600)
}

// Clear removes the token file. Logging out twice is not an error.
func (s *TokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

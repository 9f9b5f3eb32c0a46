package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nimbus/pkg/logging"
)

// DefaultStorageDir is the default directory for the persisted refresh
// token, relative to the user's home directory.
const DefaultStorageDir = ".config/nimbus"

// tokenFileName is the single file holding the session's refresh token.
const tokenFileName = "refresh_token.json"

// storedToken is the on-disk shape of the persisted refresh token.
//
// SECURITY: the file is created with 0600 permissions and its directory
// with 0700. Token values are never logged.
type storedToken struct {
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

// Store persists the session's refresh token across IDE restarts. It is
// scoped to a single user/session: one token file, overwritten on save.
type Store struct {
	mu         sync.Mutex
	storageDir string
}

// Config configures the store.
type Config struct {
	// StorageDir is the directory for the token file.
	// Defaults to ~/.config/nimbus.
	StorageDir string
}

// NewStore creates a token store and ensures its directory exists.
func NewStore(cfg Config) (*Store, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(storageDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token storage directory: %w", err)
	}

	return &Store{storageDir: storageDir}, nil
}

// Path returns the full path of the token file.
func (s *Store) Path() string {
	return filepath.Join(s.storageDir, tokenFileName)
}

// Save writes the refresh token to disk, replacing any previous value.
func (s *Store) Save(refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(storedToken{
		RefreshToken: refreshToken,
		SavedAt:      time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		logging.Warn("TokenStore", "SECURITY_AUDIT: refresh token persistence failed: %v", err)
		return fmt.Errorf("failed to write token file: %w", err)
	}

	logging.Info("TokenStore", "SECURITY_AUDIT: refresh token stored")
	return nil
}

// Clear removes the persisted refresh token. Clearing a token that does not
// exist is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("TokenStore", "SECURITY_AUDIT: refresh token deletion failed: %v", err)
		return err
	}

	logging.Info("TokenStore", "SECURITY_AUDIT: refresh token cleared")
	return nil
}

// Load reads the persisted refresh token. Returns an empty string when no
// token is stored.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- path is constructed from the configured storage dir
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	var token storedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return "", fmt.Errorf("failed to unmarshal token file: %w", err)
	}

	return token.RefreshToken, nil
}

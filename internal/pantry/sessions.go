package pantry

import (
	"fmt"
	"os"
	"path/filepath"
)

// SessionStore holds the parsed lines of an in-progress receipt import
// between the scan and the user committing or abandoning them. Sessions
// are a transient cache, not a store of record.
type SessionStore interface {
	// Save stores session data under the given ID
	Save(id string, data []byte) error

	// Get retrieves session data by ID
	Get(id string) ([]byte, error)

	// Delete removes a session
	Delete(id string) error
}

// LocalSessionStore implements SessionStore on the local filesystem, one
// JSON file per session.
type LocalSessionStore struct {
	basePath string
}

// NewLocalSessionStore creates a LocalSessionStore rooted at basePath.
func NewLocalSessionStore(basePath string) (*LocalSessionStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &LocalSessionStore{
		basePath: basePath,
	}, nil
}

// Save writes a session file to disk.
func (l *LocalSessionStore) Save(id string, data []byte) error {
	path := filepath.Join(l.basePath, id+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Get reads a session file from disk.
func (l *LocalSessionStore) Get(id string) ([]byte, error) {
	path := filepath.Join(l.basePath, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return data, nil
}

// Delete removes a session file.
func (l *LocalSessionStore) Delete(id string) error {
	path := filepath.Join(l.basePath, id+".json")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

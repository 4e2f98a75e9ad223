// Package file stores credentials in a single JSON document on disk.
//
// The document is a JSON array of credential objects. Every successful
// CreateCredential rewrites the whole file through a temp file and rename,
// so readers never observe a half-written document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/storage"
)

// Storage is a JSON-file implementation of the credential store
type Storage struct {
	path string

	mu          sync.RWMutex
	credentials map[string]*model.Credential
	order       []string
}

// Ensure Storage implements the interface
var _ storage.CredentialStore = (*Storage)(nil)

// New opens the credential file at path, creating an empty store if it does not exist
func New(path string) (*Storage, error) {
	s := &Storage{
		path:        path,
		credentials: make(map[string]*model.Credential),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var creds []model.Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	for i := range creds {
		c := creds[i]
		if _, dup := s.credentials[c.Username]; dup {
			continue
		}
		s.credentials[c.Username] = &c
		s.order = append(s.order, c.Username)
	}
	return s, nil
}

// Path returns the file backing the store
func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) GetCredential(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

func (s *Storage) CreateCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[cred.Username]; ok {
		return model.ErrCredentialExists
	}

	c := *cred
	s.credentials[c.Username] = &c
	s.order = append(s.order, c.Username)

	if err := s.flushLocked(); err != nil {
		// Keep memory consistent with what is on disk
		delete(s.credentials, c.Username)
		s.order = s.order[:len(s.order)-1]
		return err
	}
	return nil
}

// flushLocked writes all credentials to disk. Caller must hold mu.
func (s *Storage) flushLocked() error {
	creds := make([]model.Credential, 0, len(s.order))
	for _, u := range s.order {
		creds = append(creds, *s.credentials[u])
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmops/snapfleet/internal/models"
)

const credentialsFileName = "credentials.json"

type diskEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DiskStore implements Store by persisting credentials to a JSON file
// with owner-only permissions. Entries are keyed by hostname and
// username so one host can carry credentials for several accounts.
type DiskStore struct {
	dataFolder string
	mu         sync.RWMutex
}

// NewDiskStore creates a new disk-based credential store.
// The credentials file lives at {dataFolder}/credentials.json.
func NewDiskStore(dataFolder string) *DiskStore {
	return &DiskStore{
		dataFolder: dataFolder,
	}
}

func (s *DiskStore) filePath() string {
	return filepath.Join(s.dataFolder, credentialsFileName)
}

func entryKey(ref models.CredentialRef) string {
	return fmt.Sprintf("%s@%s", ref.Username, ref.Hostname)
}

// Resolve returns the secret for a reference, or ErrInvalid when the
// entry does not exist.
func (s *DiskStore) Resolve(ref models.CredentialRef) (Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return Secret{}, err
	}
	entry, ok := entries[entryKey(ref)]
	if !ok {
		return Secret{}, ErrInvalid
	}
	return Secret{Username: entry.Username, Password: entry.Password}, nil
}

// Save persists a credential for the given reference.
func (s *DiskStore) Save(ref models.CredentialRef, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dataFolder, 0700); err != nil {
		return err
	}

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[entryKey(ref)] = diskEntry{Username: ref.Username, Password: password}
	return s.save(entries)
}

// Delete removes the stored credential. Returns nil if none exists.
func (s *DiskStore) Delete(ref models.CredentialRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[entryKey(ref)]; !ok {
		return nil
	}
	delete(entries, entryKey(ref))
	return s.save(entries)
}

// Exists checks if a credential is stored for the reference.
func (s *DiskStore) Exists(ref models.CredentialRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return false
	}
	_, ok := entries[entryKey(ref)]
	return ok
}

func (s *DiskStore) load() (map[string]diskEntry, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]diskEntry{}, nil
		}
		return nil, err
	}

	entries := map[string]diskEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *DiskStore) save(entries map[string]diskEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only.
	return os.WriteFile(s.filePath(), data, 0600)
}

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rshade/pbicli/internal/config"
)

// ErrStoreCorrupted indicates the credentials file exists but contains
// invalid data. Callers should abort unless the user explicitly resets.
var ErrStoreCorrupted = errors.New("credentials file corrupted")

// StoreVersion is the current schema version for the credentials file.
const StoreVersion = 1

// storeData is the serialized form of the credential store.
type storeData struct {
	Version     int                    `json:"version"`
	Credentials map[string]*Credential `json:"credentials"`
}

// Store manages per-profile credentials persisted as a JSON file.
type Store struct {
	mu          sync.RWMutex
	filePath    string
	version     int
	credentials map[string]*Credential
}

// NewStore creates a Store backed by the given file path. If filePath is
// empty, it defaults to ~/.pbicli/credentials.json.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		path, err := config.CredentialsPath()
		if err != nil {
			return nil, fmt.Errorf("determining credentials path: %w", err)
		}
		filePath = path
	}

	return &Store{
		filePath:    filePath,
		version:     StoreVersion,
		credentials: make(map[string]*Credential),
	}, nil
}

// lockFilePath returns the path to the lockfile for cross-process coordination.
func (s *Store) lockFilePath() string {
	return s.filePath + ".lock"
}

// acquireFileLock acquires a cross-process advisory lockfile.
// Returns a cleanup function that releases the lock.
func (s *Store) acquireFileLock() (func(), error) {
	lockPath := s.lockFilePath()

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	// Try to create lockfile exclusively; retry with stale lock detection
	const maxRetries = 10
	const retryDelay = 100 * time.Millisecond
	const staleLockAge = 30 * time.Second

	for range maxRetries {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			// Write PID for stale lock detection
			_, _ = fmt.Fprintf(f, "%d", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}

		if removeStaleLock(lockPath, staleLockAge) {
			continue
		}
		time.Sleep(retryDelay)
	}

	return nil, fmt.Errorf("could not acquire lock on %s after retries", lockPath)
}

// removeStaleLock checks if a lock file is stale and removes it if so.
// Returns true if the lock was removed (caller should retry), false otherwise.
func removeStaleLock(lockPath string, staleLockAge time.Duration) bool {
	info, statErr := os.Stat(lockPath)
	if statErr != nil || time.Since(info.ModTime()) <= staleLockAge {
		return false
	}

	if isLockHeldByLiveProcess(lockPath) {
		return false
	}

	// PID not readable, not parseable, or process dead, remove stale lock
	_ = os.Remove(lockPath)
	return true
}

// isLockHeldByLiveProcess reads the PID from a lock file and checks if that
// process is still alive. Returns true if the process exists.
func isLockHeldByLiveProcess(lockPath string) bool {
	pidData, readErr := os.ReadFile(lockPath)
	if readErr != nil || len(pidData) == 0 {
		return false
	}
	var pid int
	if _, scanErr := fmt.Sscanf(string(pidData), "%d", &pid); scanErr != nil || pid <= 0 {
		return false
	}
	return processExists(pid) == nil
}

// processExists checks whether a process with the given PID is still alive.
// Returns nil if the process exists, an error otherwise.
func processExists(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	// Signal 0 tests process existence without actually sending a signal
	return proc.Signal(syscall.Signal(0))
}

// Load reads credentials from the JSON file. If the file does not exist,
// the store starts empty. If the file is corrupted, ErrStoreCorrupted is
// returned.
func (s *Store) Load() error {
	unlock, lockErr := s.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.credentials = make(map[string]*Credential)
			return nil
		}
		return fmt.Errorf("reading credentials file: %w", err)
	}

	var stored storeData
	if unmarshalErr := json.Unmarshal(data, &stored); unmarshalErr != nil {
		// Corrupted file: do NOT start fresh, callers must handle explicitly
		s.credentials = make(map[string]*Credential)
		return fmt.Errorf("%w: %w", ErrStoreCorrupted, unmarshalErr)
	}

	if stored.Version != StoreVersion {
		s.credentials = make(map[string]*Credential)
		return fmt.Errorf("%w: unsupported version %d (expected %d)",
			ErrStoreCorrupted, stored.Version, StoreVersion)
	}

	if stored.Credentials == nil {
		stored.Credentials = make(map[string]*Credential)
	}

	s.credentials = stored.Credentials
	s.version = stored.Version

	return nil
}

// Save writes credentials to the JSON file atomically. The file carries
// bearer tokens, so it is written with owner-only permissions.
func (s *Store) Save() error {
	unlock, lockErr := s.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := storeData{
		Version:     s.version,
		Credentials: s.credentials,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if mkdirErr := os.MkdirAll(dir, 0o700); mkdirErr != nil {
		return fmt.Errorf("creating credentials directory: %w", mkdirErr)
	}

	// Write atomically via temp file
	tmpPath := s.filePath + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing credentials temp file: %w", writeErr)
	}

	if renameErr := os.Rename(tmpPath, s.filePath); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming credentials temp file: %w", renameErr)
	}

	return nil
}

// Get retrieves the credential for a profile. Returns a copy of the
// credential to prevent callers from mutating internal state. Returns nil
// and false if the profile has no stored credential.
func (s *Store) Get(profile string) (*Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[profile]
	if !ok {
		return nil, false
	}

	c := *cred
	return &c, true
}

// Set adds or updates the credential for its profile.
func (s *Store) Set(cred *Credential) error {
	if cred == nil {
		return errors.New("credential cannot be nil")
	}
	if cred.Profile == "" {
		return errors.New("credential profile cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cred
	s.credentials[cred.Profile] = &c
	return nil
}

// Delete removes the credential for a profile.
func (s *Store) Delete(profile string) error {
	if profile == "" {
		return errors.New("profile cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.credentials, profile)
	return nil
}

// Profiles returns the names of all profiles with stored credentials.
func (s *Store) Profiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.credentials))
	for name := range s.credentials {
		names = append(names, name)
	}
	return names
}

// FilePath returns the file path of the credential store.
func (s *Store) FilePath() string {
	return s.filePath
}

// Count returns the number of stored credentials.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.credentials)
}

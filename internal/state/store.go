package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"speckit-flow/internal/atomicfile"
	"speckit-flow/internal/errorsx"
)

// LockTimeout bounds how long Save will wait to acquire the sibling
// lock file before giving up (spec.md §4.2/§5).
const LockTimeout = 10 * time.Second

// Store is the atomic-write owner of OrchestrationState. Save holds
// the sibling lock file for the duration of the write; Load and
// Delete take no lock, so a load → modify → save sequence is not
// held under a single lock.
type Store struct {
	path     string
	lockPath string
}

// New creates a Store bound to path, locking via a sibling path+".lock"
// file.
func New(path string) *Store {
	return &Store{path: path, lockPath: path + ".lock"}
}

// Exists reports whether the state document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decodes the state document.
func (s *Store) Load() (*OrchestrationState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errorsx.StateNotFoundError{Path: s.path}
		}
		return nil, err
	}

	var st OrchestrationState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, &errorsx.StateCorruptError{Path: s.path, Err: err}
	}
	if st.Tasks == nil {
		st.Tasks = make(map[string]*TaskState)
	}
	return &st, nil
}

// Save atomically persists st: acquire the lock, write-temp, fsync,
// rename. The rename is the commit point — any subsequent Load sees
// either the entire new state or the entire prior state.
func (s *Store) Save(st *OrchestrationState) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}

	return atomicfile.Write(s.path, data, 0o644)
}

// Delete removes both the state file and its lock file.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// lock acquires the sibling lock file with a bounded timeout,
// returning an unlock func to defer.
func (s *Store) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	ok, err := fl.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &errorsx.LockTimeoutError{Path: s.lockPath, Timeout: LockTimeout.String()}
		}
		return nil, err
	}
	if !ok {
		return nil, &errorsx.LockTimeoutError{Path: s.lockPath, Timeout: LockTimeout.String()}
	}

	return func() { fl.Unlock() }, nil
}

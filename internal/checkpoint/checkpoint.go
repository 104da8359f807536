// Package checkpoint implements the append-only history of
// OrchestrationState snapshots the Session Coordinator writes after
// every completed phase.
package checkpoint

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"speckit-flow/internal/atomicfile"
	"speckit-flow/internal/state"
)

// DefaultRetention is the standard keep count to pass to Prune
// (spec.md §5, §9 Open Questions). Prune applies no default of its
// own; callers pass keep explicitly.
const DefaultRetention = 10

// Store is the Checkpoint Store: independent snapshot files under a
// directory, no locking required for reads.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Checkpoint writes a snapshot of st, named by the current UTC time
// with ':' normalized to '-', and returns its path.
func (s *Store) Checkpoint(st *state.OrchestrationState) (string, error) {
	return s.checkpointAt(st, time.Now().UTC())
}

func (s *Store) checkpointAt(st *state.OrchestrationState, at time.Time) (string, error) {
	name := strings.ReplaceAll(at.Format(time.RFC3339), ":", "-") + ".yaml"
	path := filepath.Join(s.dir, name)

	data, err := yaml.Marshal(st)
	if err != nil {
		return "", err
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// List returns every snapshot path, newest-first by filename
// timestamp.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(s.dir, n)
	}
	return paths, nil
}

// Latest returns the most recent snapshot path, or "" if none exist.
func (s *Store) Latest() (string, error) {
	paths, err := s.List()
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}
	return paths[0], nil
}

// Restore loads an OrchestrationState from a specific snapshot path.
func (s *Store) Restore(path string) (*state.OrchestrationState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st state.OrchestrationState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.Tasks == nil {
		st.Tasks = make(map[string]*state.TaskState)
	}
	return &st, nil
}

// Prune deletes all but the keep most recent snapshots and returns
// the count removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	paths, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(paths) <= keep {
		return 0, nil
	}

	removed := 0
	for _, p := range paths[keep:] {
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

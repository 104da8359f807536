// Package completion delivers the orchestrator's "is task T done?"
// signal by unioning two independent sources: sentinel marker files
// and checkbox transitions in the feature's task list. The debounced
// watch loop is grounded on the directory-watch + debounce-timer
// pattern used for config-file reloading elsewhere in the corpus.
package completion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"speckit-flow/internal/errorsx"
	"speckit-flow/internal/tasklist"
)

// DefaultPollInterval is wait_for_completion's default poll cadence.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultDebounce coalesces rapid successive file-change events before
// Watch re-parses the task list.
const DefaultDebounce = 100 * time.Millisecond

// Detector unions sentinel-file completions with task-list checkbox
// completions under a single directory of markers.
type Detector struct {
	completionsDir string
}

// New creates a Detector whose sentinel files live under completionsDir.
func New(completionsDir string) *Detector {
	return &Detector{completionsDir: completionsDir}
}

func (d *Detector) sentinelPath(taskID string) string {
	return filepath.Join(d.completionsDir, taskID+".done")
}

// MarkComplete creates the sentinel file for taskID. Idempotent;
// creates parent directories as needed.
func (d *Detector) MarkComplete(taskID string) error {
	if err := os.MkdirAll(d.completionsDir, 0o755); err != nil {
		return err
	}
	path := d.sentinelPath(taskID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// ManualCompletions returns the set of task ids with a sentinel file
// present.
func (d *Detector) ManualCompletions() (map[string]bool, error) {
	entries, err := os.ReadDir(d.completionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".done" {
			continue
		}
		out[name[:len(name)-len(ext)]] = true
	}
	return out, nil
}

// GetCompleted returns the union of ManualCompletions and the
// checkbox-completed ids parsed from taskListPath. If taskListPath is
// empty, absent, or unparseable, it degrades silently to manual
// completions only.
func (d *Detector) GetCompleted(taskListPath string) (map[string]bool, error) {
	completed, err := d.ManualCompletions()
	if err != nil {
		return nil, err
	}

	if taskListPath == "" {
		return completed, nil
	}

	entries, err := tasklist.ParseFile(taskListPath)
	if err != nil {
		return completed, nil
	}

	for id := range tasklist.CompletedIDs(entries) {
		completed[id] = true
	}
	return completed, nil
}

// WaitForCompletion blocks until GetCompleted's result is a superset
// of taskIDs, polling every pollInterval. Returns taskIDs on success.
// A zero timeout means wait indefinitely (bounded only by ctx
// cancellation). Returns *errorsx.CompletionTimeoutError if timeout
// elapses first.
func (d *Detector) WaitForCompletion(ctx context.Context, taskIDs []string, taskListPath string, timeout time.Duration, pollInterval time.Duration) ([]string, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		completed, err := d.GetCompleted(taskListPath)
		if err != nil {
			return nil, err
		}
		if containsAll(completed, taskIDs) {
			return taskIDs, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			pending, done := partition(completed, taskIDs)
			return nil, &errorsx.CompletionTimeoutError{
				Pending:   pending,
				Completed: done,
				Timeout:   timeout.String(),
			}
		case <-ticker.C:
		}
	}
}

func containsAll(set map[string]bool, ids []string) bool {
	for _, id := range ids {
		if !set[id] {
			return false
		}
	}
	return true
}

func partition(completed map[string]bool, ids []string) (pending, done []string) {
	for _, id := range ids {
		if completed[id] {
			done = append(done, id)
		} else {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	sort.Strings(done)
	return pending, done
}

// OnNewCompletions is called with the set of task ids newly
// transitioned to completed since the prior snapshot.
type OnNewCompletions func(newIDs []string)

// Watch opens a debounced filesystem watcher over the directory
// containing path (some filesystems don't deliver events for watches
// on a single file) and invokes onNew with every task id that
// newly appears completed after each settled change. Deletion/rename
// of the target file is a normal shutdown, not an error. Returns once
// ctx is cancelled or the watch ends.
func (d *Detector) Watch(ctx context.Context, path string, onNew OnNewCompletions, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	prior, err := d.GetCompleted(path)
	if err != nil {
		prior = map[string]bool{}
	}

	var debounceTimer *time.Timer
	fire := func() {
		current, err := d.GetCompleted(path)
		if err != nil {
			return
		}
		var fresh []string
		for id := range current {
			if !prior[id] {
				fresh = append(fresh, id)
			}
		}
		prior = current
		if len(fresh) > 0 {
			sort.Strings(fresh)
			onNew(fresh)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, fire)
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// transient read failures don't terminate the watcher
		}
	}
}

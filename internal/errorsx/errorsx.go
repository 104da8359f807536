// Package errorsx defines the tagged error taxonomy that the rest of
// speckit-flow raises instead of bare fmt.Errorf strings, so the CLI
// can type-switch and print "what failed / identifiers / next action"
// without re-parsing messages.
package errorsx

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle found while validating a DAG.
type CycleError struct {
	Path []string // e.g. []string{"T001", "T002", "T001"}
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// IngestionError reports a malformed task list or an unknown
// dependency reference encountered while building the DAG.
type IngestionError struct {
	TaskID string
	Reason string
}

func (e *IngestionError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("ingestion error: %s", e.Reason)
	}
	return fmt.Sprintf("ingestion error in %s: %s", e.TaskID, e.Reason)
}

// StateNotFoundError reports a missing orchestration-state document
// where one was required.
type StateNotFoundError struct {
	Path string
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("no orchestration state at %s (run `speckit-flow run` to create one)", e.Path)
}

// StateCorruptError reports a state document that failed to parse.
type StateCorruptError struct {
	Path string
	Err  error
}

func (e *StateCorruptError) Error() string {
	return fmt.Sprintf("orchestration state at %s is corrupt: %v (check .speckit/checkpoints for a recoverable snapshot)", e.Path, e.Err)
}

func (e *StateCorruptError) Unwrap() error { return e.Err }

// LockTimeoutError reports a failure to acquire the state-store lock
// within the bounded timeout.
type LockTimeoutError struct {
	Path    string
	Timeout string
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s acquiring lock %s (another speckit-flow process may be running)", e.Timeout, e.Path)
}

// WorkspaceExistsError reports an attempt to create a workspace whose
// directory or branch already exists.
type WorkspaceExistsError struct {
	Path   string
	Branch string
}

func (e *WorkspaceExistsError) Error() string {
	return fmt.Sprintf("workspace already exists: path=%s branch=%s", e.Path, e.Branch)
}

// CompletionTimeoutError reports a wait_for_completion deadline that
// elapsed before every requested task id was observed complete.
type CompletionTimeoutError struct {
	Pending   []string
	Completed []string
	Timeout   string
}

func (e *CompletionTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for completion: pending=%v completed=%v",
		e.Timeout, e.Pending, e.Completed)
}

// MergeConflictError reports a merge_sequential failure at a specific
// session branch, with the unresolved paths.
type MergeConflictError struct {
	SessionID        int
	ConflictingFiles []string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict in session %d branch: %v", e.SessionID, e.ConflictingFiles)
}

// ConfigError reports a configuration file problem (missing, invalid,
// or an out-of-range field).
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Path, e.Reason)
}

// EnvironmentError reports a precondition about the surrounding
// repository/directory layout that wasn't met (not a git repo,
// missing specs/ directory, no resolvable feature).
type EnvironmentError struct {
	Reason string
	Hint   string
}

func (e *EnvironmentError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("environment error: %s", e.Reason)
	}
	return fmt.Sprintf("environment error: %s (%s)", e.Reason, e.Hint)
}

// VCSError wraps an unanticipated subprocess failure from the version
// control tool, keeping captured stderr alongside the wrapped error.
type VCSError struct {
	Args   []string
	Output string
	Err    error
}

func (e *VCSError) Error() string {
	return fmt.Sprintf("git %s failed: %v: %s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *VCSError) Unwrap() error { return e.Err }

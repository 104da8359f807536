// Package adapter implements the narrow Agent Adapter interface: the
// orchestration core's only contact point with whatever external
// coding assistant a human operator is driving. It never spawns or
// talks to that assistant's process directly, replacing the teacher's
// codexrpc-driven agent.Manager, which spoke JSON-RPC to a spawned
// subprocess.
package adapter

import (
	"fmt"
	"path/filepath"

	"speckit-flow/internal/atomicfile"
	"speckit-flow/internal/logging"
)

// Task is the minimal task description an adapter needs to write a
// context document and notify the operator.
type Task struct {
	ID          string
	Description string
	Files       []string
}

// Adapter is the polymorphic contract of spec.md §4.5. Implementations
// differ only in the prose and filename of the context document they
// write, and in notify_user's wording.
type Adapter interface {
	// SetupSession materializes a per-workspace context document
	// describing task to the external assistant.
	SetupSession(workspacePath string, task Task) error

	// NotifyUser emits an operator-facing prompt describing exactly
	// what to do next. Paths rendered must be absolute.
	NotifyUser(sessionID int, workspacePath string, task Task) error

	// WatchPaths returns the paths, joined onto workspacePath, whose
	// mutation indicates task completion.
	WatchPaths(workspacePath string) []string

	// ContextPath returns the canonical location of the context file
	// written by SetupSession.
	ContextPath(workspacePath string) string
}

// Kind names a known adapter variant, selected by the configured
// agent_type string.
type Kind string

const (
	KindCopilot Kind = "copilot"
	KindGeneric Kind = "generic"
	KindNoop    Kind = "noop"
)

// New builds the Adapter named by kind. Unknown kinds fail closed
// rather than silently falling back to noop.
func New(kind string, logger logging.Logger) (Adapter, error) {
	switch Kind(kind) {
	case KindCopilot:
		return &copilotAdapter{logger: logger.Named("adapter.copilot")}, nil
	case KindGeneric:
		return &genericAdapter{logger: logger.Named("adapter.generic")}, nil
	case KindNoop:
		return &noopAdapter{logger: logger.Named("adapter.noop")}, nil
	default:
		return nil, fmt.Errorf("unknown agent_type %q (want one of: copilot, generic, noop)", kind)
	}
}

// writeContext is the shared "render a context document and write it
// atomically" body every non-noop adapter uses.
func writeContext(path, contents string) error {
	return atomicfile.Write(path, []byte(contents), 0o644)
}

// copilotAdapter targets a GitHub-Copilot-style in-editor assistant.
type copilotAdapter struct {
	logger logging.Logger
}

func (a *copilotAdapter) ContextPath(workspacePath string) string {
	return filepath.Join(workspacePath, ".copilot-task.md")
}

func (a *copilotAdapter) SetupSession(workspacePath string, task Task) error {
	contents := fmt.Sprintf(
		"# Task %s\n\n%s\n\n## Files\n\n%s\n",
		task.ID, task.Description, formatFiles(task.Files),
	)
	path := a.ContextPath(workspacePath)
	a.logger.Debug("writing copilot context", "task", task.ID, "path", path)
	return writeContext(path, contents)
}

func (a *copilotAdapter) NotifyUser(sessionID int, workspacePath string, task Task) error {
	abs, err := filepath.Abs(workspacePath)
	if err != nil {
		abs = workspacePath
	}
	a.logger.Info("action required",
		"session", sessionID,
		"task", task.ID,
		"message", fmt.Sprintf(
			"Open %s in your editor and ask Copilot to read %s, then implement %s.",
			abs, a.ContextPath(abs), task.ID,
		),
	)
	return nil
}

func (a *copilotAdapter) WatchPaths(workspacePath string) []string {
	return []string{filepath.Join(workspacePath, "tasks.md")}
}

// genericAdapter targets any chat-driven assistant with no
// editor-specific integration.
type genericAdapter struct {
	logger logging.Logger
}

func (a *genericAdapter) ContextPath(workspacePath string) string {
	return filepath.Join(workspacePath, ".agent-task.md")
}

func (a *genericAdapter) SetupSession(workspacePath string, task Task) error {
	contents := fmt.Sprintf(
		"Task %s\n\n%s\n\nFiles:\n%s\n",
		task.ID, task.Description, formatFiles(task.Files),
	)
	path := a.ContextPath(workspacePath)
	a.logger.Debug("writing generic context", "task", task.ID, "path", path)
	return writeContext(path, contents)
}

func (a *genericAdapter) NotifyUser(sessionID int, workspacePath string, task Task) error {
	abs, err := filepath.Abs(workspacePath)
	if err != nil {
		abs = workspacePath
	}
	a.logger.Info("action required",
		"session", sessionID,
		"task", task.ID,
		"message", fmt.Sprintf(
			"Open %s with your assistant and have it read %s, then implement %s.",
			abs, a.ContextPath(abs), task.ID,
		),
	)
	return nil
}

func (a *genericAdapter) WatchPaths(workspacePath string) []string {
	return []string{filepath.Join(workspacePath, "tasks.md")}
}

// noopAdapter does nothing but log, satisfying spec.md §4.5's "an
// implementation that does nothing at all is a valid adapter".
type noopAdapter struct {
	logger logging.Logger
}

func (a *noopAdapter) ContextPath(workspacePath string) string {
	return filepath.Join(workspacePath, ".task")
}

func (a *noopAdapter) SetupSession(workspacePath string, task Task) error {
	a.logger.Debug("noop setup_session", "task", task.ID, "workspace", workspacePath)
	return nil
}

func (a *noopAdapter) NotifyUser(sessionID int, workspacePath string, task Task) error {
	a.logger.Debug("noop notify_user", "session", sessionID, "task", task.ID, "workspace", workspacePath)
	return nil
}

func (a *noopAdapter) WatchPaths(workspacePath string) []string {
	return []string{filepath.Join(workspacePath, "tasks.md")}
}

func formatFiles(files []string) string {
	if len(files) == 0 {
		return "(none listed)"
	}
	out := ""
	for _, f := range files {
		out += "- " + f + "\n"
	}
	return out
}

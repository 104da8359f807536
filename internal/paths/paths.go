// Package paths locates the repository root, resolves the current
// feature (spec id), and exposes the canonical on-disk locations every
// other component reads or writes through.
package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"speckit-flow/internal/errorsx"
)

// FeatureEnvVar overrides feature resolution regardless of the
// current branch name, per spec.md §6 "Environment variables".
const FeatureEnvVar = "SPECKIT_FLOW_FEATURE"

// FeatureCtx locates the repository root and the active feature
// (spec id), and derives every canonical path from them.
type FeatureCtx struct {
	RepoRoot  string
	FeatureID string
}

// Resolve locates the git repository root from the current directory
// and determines the active feature id: the SPECKIT_FLOW_FEATURE
// environment variable if set, otherwise the current branch name.
func Resolve() (*FeatureCtx, error) {
	root, err := RepoRoot(".")
	if err != nil {
		return nil, err
	}

	specsDir := filepath.Join(root, "specs")
	if info, statErr := os.Stat(specsDir); statErr != nil || !info.IsDir() {
		return nil, &errorsx.EnvironmentError{
			Reason: "specs/ directory not found",
			Hint:   "run this command from a spec-kit-managed repository, or create specs/<feature>/tasks.md first",
		}
	}

	feature := os.Getenv(FeatureEnvVar)
	if feature == "" {
		branch, branchErr := CurrentBranch(root)
		if branchErr != nil {
			return nil, &errorsx.EnvironmentError{
				Reason: "could not determine current feature",
				Hint:   "set " + FeatureEnvVar + " or check out a feature branch",
			}
		}
		feature = branch
	}

	return &FeatureCtx{RepoRoot: root, FeatureID: feature}, nil
}

// RepoRoot walks upward from start looking for a .git entry.
func RepoRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &errorsx.EnvironmentError{
				Reason: "not inside a git repository",
				Hint:   "run `git init` or cd into an existing repository",
			}
		}
		dir = parent
	}
}

// CurrentBranch returns the short name of the current branch.
func CurrentBranch(repoRoot string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return "", &errorsx.EnvironmentError{Reason: "HEAD is detached"}
	}
	return branch, nil
}

// SpeckitDir is the fixed state/lock/checkpoints/completions root.
func (f *FeatureCtx) SpeckitDir() string {
	return filepath.Join(f.RepoRoot, ".speckit")
}

// StatePath is the canonical OrchestrationState document path.
func (f *FeatureCtx) StatePath() string {
	return filepath.Join(f.SpeckitDir(), "flow-state.yaml")
}

// LockPath is the sibling lock file guarding StatePath.
func (f *FeatureCtx) LockPath() string {
	return f.StatePath() + ".lock"
}

// CheckpointsDir is where timestamped state snapshots live.
func (f *FeatureCtx) CheckpointsDir() string {
	return filepath.Join(f.SpeckitDir(), "checkpoints")
}

// CompletionsDir is where sentinel completion files live.
func (f *FeatureCtx) CompletionsDir() string {
	return filepath.Join(f.SpeckitDir(), "completions")
}

// ConfigPath is the speckit-flow.yaml configuration file.
func (f *FeatureCtx) ConfigPath() string {
	return filepath.Join(f.SpeckitDir(), "speckit-flow.yaml")
}

// FeatureDir is specs/{feature}/.
func (f *FeatureCtx) FeatureDir() string {
	return filepath.Join(f.RepoRoot, "specs", f.FeatureID)
}

// TasksPath is the input task list for the active feature.
func (f *FeatureCtx) TasksPath() string {
	return filepath.Join(f.FeatureDir(), "tasks.md")
}

// SpecPath is the feature's spec document.
func (f *FeatureCtx) SpecPath() string {
	return filepath.Join(f.FeatureDir(), "spec.md")
}

// PlanPath is the feature's plan document.
func (f *FeatureCtx) PlanPath() string {
	return filepath.Join(f.FeatureDir(), "plan.md")
}

// DagPath is the serialized DAG artifact for the active feature.
func (f *FeatureCtx) DagPath() string {
	return filepath.Join(f.FeatureDir(), "dag.yaml")
}

// WorktreesDir is the parent directory of this spec's workspaces.
func (f *FeatureCtx) WorktreesDir() string {
	return filepath.Join(f.RepoRoot, ".worktrees-"+f.FeatureID)
}

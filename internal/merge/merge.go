// Package merge folds N session branches back into a single
// integration branch. Adapted from the teacher's
// internal/agent/merger.go: the sequential-merge-with-cleanup-on-
// conflict loop is kept, but the AI-driven conflict resolution step
// (resolveConflictsWithAgent) is removed — this spec treats a conflict
// as a reportable failure, not something to auto-resolve.
package merge

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"speckit-flow/internal/errorsx"
	"speckit-flow/internal/workspace"
)

// Integrator performs branch analysis and sequential merging for one
// spec's session branches.
type Integrator struct {
	repoRoot string
	specID   string
}

// New creates an Integrator rooted at repoRoot for specID.
func New(repoRoot, specID string) *Integrator {
	return &Integrator{repoRoot: repoRoot, specID: specID}
}

// Analysis is the result of Analyze.
type Analysis struct {
	Sessions          []int
	FilesBySession    map[int]FileChanges
	OverlappingFiles  map[string][]int
	TotalFilesChanged int
	SafeToMerge       bool
}

// FileChanges partitions one session's changes relative to the
// merge-base with base_branch.
type FileChanges struct {
	Added    []string
	Modified []string
	Deleted  []string
}

func (f FileChanges) all() []string {
	out := make([]string, 0, len(f.Added)+len(f.Modified)+len(f.Deleted))
	out = append(out, f.Added...)
	out = append(out, f.Modified...)
	out = append(out, f.Deleted...)
	return out
}

// Result is the outcome of MergeSequential.
type Result struct {
	Success          bool
	IntegrationBranch string
	MergedSessions   []int
	ConflictSession  int
	ConflictingFiles []string
}

// sessionBranches enumerates branches matching
// impl-{spec_id}-session-* and returns a map from session id to
// branch name; callers sort the ids themselves.
func (m *Integrator) sessionBranches(ctx context.Context) (map[int]string, error) {
	cmd := exec.CommandContext(ctx, "git", "for-each-ref", "--format=%(refname:short)", "refs/heads/impl-"+m.specID+"-session-*")
	cmd.Dir = m.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list session branches: %w", err)
	}

	prefix := "impl-" + m.specID + "-session-"
	branches := make(map[int]string)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		suffix := strings.TrimPrefix(line, prefix)
		id, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		branches[id] = line
	}
	return branches, nil
}

// Analyze enumerates session branches and computes their overlap
// relative to baseBranch.
func (m *Integrator) Analyze(ctx context.Context, baseBranch string) (*Analysis, error) {
	branches, err := m.sessionBranches(ctx)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		FilesBySession:   make(map[int]FileChanges),
		OverlappingFiles: make(map[string][]int),
	}

	fileSessions := make(map[string]map[int]bool)

	for id, branch := range branches {
		analysis.Sessions = append(analysis.Sessions, id)

		changes, err := m.diffAgainstBase(ctx, baseBranch, branch)
		if err != nil {
			return nil, err
		}
		analysis.FilesBySession[id] = changes

		for _, path := range changes.all() {
			if fileSessions[path] == nil {
				fileSessions[path] = make(map[int]bool)
			}
			fileSessions[path][id] = true
		}
	}
	sort.Ints(analysis.Sessions)

	union := make(map[string]bool)
	for path, sessions := range fileSessions {
		union[path] = true
		if len(sessions) >= 2 {
			var ids []int
			for s := range sessions {
				ids = append(ids, s)
			}
			sort.Ints(ids)
			analysis.OverlappingFiles[path] = ids
		}
	}

	analysis.TotalFilesChanged = len(union)
	analysis.SafeToMerge = len(analysis.OverlappingFiles) == 0

	return analysis, nil
}

func (m *Integrator) diffAgainstBase(ctx context.Context, baseBranch, branch string) (FileChanges, error) {
	mergeBaseCmd := exec.CommandContext(ctx, "git", "merge-base", baseBranch, branch)
	mergeBaseCmd.Dir = m.repoRoot
	baseOut, err := mergeBaseCmd.Output()
	if err != nil {
		return FileChanges{}, fmt.Errorf("merge-base %s %s: %w", baseBranch, branch, err)
	}
	mergeBase := strings.TrimSpace(string(baseOut))

	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", mergeBase, branch)
	cmd.Dir = m.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return FileChanges{}, fmt.Errorf("diff %s..%s: %w", mergeBase, branch, err)
	}

	var changes FileChanges
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		status, path := fields[0], fields[1]
		switch status[0] {
		case 'A':
			changes.Added = append(changes.Added, path)
		case 'M':
			changes.Modified = append(changes.Modified, path)
		case 'D':
			changes.Deleted = append(changes.Deleted, path)
		default:
			changes.Modified = append(changes.Modified, path)
		}
	}
	return changes, nil
}

// MergeSequential creates the integration branch from baseBranch and
// merges every session branch into it in ascending session-id order.
// On conflict it records the conflicting session, aborts the merge,
// restores baseBranch, and force-deletes the integration branch,
// leaving the working copy clean.
func (m *Integrator) MergeSequential(ctx context.Context, baseBranch string) (*Result, error) {
	branches, err := m.sessionBranches(ctx)
	if err != nil {
		return nil, err
	}
	if len(branches) == 0 {
		return nil, fmt.Errorf("no session branches found for spec %s", m.specID)
	}

	integrationBranch := workspace.IntegrationBranch(m.specID)
	if m.branchExists(ctx, integrationBranch) {
		return nil, fmt.Errorf("integration branch %s already exists", integrationBranch)
	}

	if err := m.run(ctx, "checkout", "-b", integrationBranch, baseBranch); err != nil {
		return nil, fmt.Errorf("create integration branch: %w", err)
	}

	var ids []int
	for id := range branches {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := &Result{IntegrationBranch: integrationBranch}

	for _, id := range ids {
		branch := branches[id]
		msg := fmt.Sprintf("Merge %s into %s", branch, integrationBranch)

		mergeCmd := exec.CommandContext(ctx, "git", "merge", "--no-ff", "-m", msg, branch)
		mergeCmd.Dir = m.repoRoot
		out, mergeErr := mergeCmd.CombinedOutput()
		if mergeErr == nil {
			result.MergedSessions = append(result.MergedSessions, id)
			continue
		}

		conflicts, listErr := m.conflictingPaths(ctx)
		m.abortMerge(ctx)
		_ = m.run(ctx, "checkout", baseBranch)
		_ = m.run(ctx, "branch", "-D", integrationBranch)

		if listErr != nil {
			return nil, &errorsx.VCSError{Args: mergeCmd.Args, Output: string(out), Err: mergeErr}
		}

		result.Success = false
		result.ConflictSession = id
		result.ConflictingFiles = conflicts
		return result, nil
	}

	result.Success = true
	return result, nil
}

func (m *Integrator) branchExists(ctx context.Context, branch string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = m.repoRoot
	return cmd.Run() == nil
}

func (m *Integrator) conflictingPaths(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--diff-filter=U", "--name-only")
	cmd.Dir = m.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

func (m *Integrator) abortMerge(ctx context.Context) {
	cmd := exec.CommandContext(ctx, "git", "merge", "--abort")
	cmd.Dir = m.repoRoot
	_ = cmd.Run()
}

func (m *Integrator) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return &errorsx.VCSError{Args: cmd.Args, Output: string(out), Err: err}
	}
	return nil
}

// Validate, if testCommand is non-empty, checks out the integration
// branch and runs testCommand in a shell from the repository root. An
// empty testCommand trivially succeeds without a checkout.
func (m *Integrator) Validate(ctx context.Context, testCommand string) (bool, string) {
	if testCommand == "" {
		return true, ""
	}

	integrationBranch := workspace.IntegrationBranch(m.specID)
	if err := m.run(ctx, "checkout", integrationBranch); err != nil {
		return false, fmt.Sprintf("checkout %s failed: %v", integrationBranch, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", testCommand)
	cmd.Dir = m.repoRoot
	out, err := cmd.CombinedOutput()
	return err == nil, string(out)
}

// Summary is Finalize's diff-stat report.
type Summary struct {
	FilesChanged       int
	LinesAdded         int
	LinesDeleted       int
	WorkspacesRemoved  int
	IntegrationBranch  string
}

// Finalize computes diff statistics between the merge-base of
// baseBranch and the integration branch's HEAD, then delegates
// workspace teardown to ws.CleanupSpec unless keepWorkspaces is set.
// Diff-stat failures yield zeros rather than an error.
func (m *Integrator) Finalize(ctx context.Context, baseBranch string, ws *workspace.Manager, keepWorkspaces bool) (Summary, error) {
	integrationBranch := workspace.IntegrationBranch(m.specID)
	summary := Summary{IntegrationBranch: integrationBranch}

	if stat, ok := m.shortStat(ctx, baseBranch, integrationBranch); ok {
		summary.FilesChanged = stat.files
		summary.LinesAdded = stat.added
		summary.LinesDeleted = stat.deleted
	}

	if !keepWorkspaces && ws != nil {
		removed, err := ws.CleanupSpec(ctx, m.specID)
		if err != nil {
			return summary, err
		}
		summary.WorkspacesRemoved = removed
	}

	return summary, nil
}

type diffStat struct {
	files, added, deleted int
}

func (m *Integrator) shortStat(ctx context.Context, baseBranch, integrationBranch string) (diffStat, bool) {
	mergeBaseCmd := exec.CommandContext(ctx, "git", "merge-base", baseBranch, integrationBranch)
	mergeBaseCmd.Dir = m.repoRoot
	baseOut, err := mergeBaseCmd.Output()
	if err != nil {
		return diffStat{}, false
	}
	mergeBase := strings.TrimSpace(string(baseOut))

	cmd := exec.CommandContext(ctx, "git", "diff", "--shortstat", mergeBase, integrationBranch)
	cmd.Dir = m.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return diffStat{}, false
	}
	return parseShortStat(string(out)), true
}

// parseShortStat parses lines like:
// " 3 files changed, 42 insertions(+), 7 deletions(-)"
func parseShortStat(line string) diffStat {
	var stat diffStat
	fields := strings.Split(strings.TrimSpace(line), ",")
	for _, f := range fields {
		f = strings.TrimSpace(f)
		parts := strings.Fields(f)
		if len(parts) < 2 {
			continue
		}
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(f, "file"):
			stat.files = n
		case strings.Contains(f, "insertion"):
			stat.added = n
		case strings.Contains(f, "deletion"):
			stat.deleted = n
		}
	}
	return stat
}

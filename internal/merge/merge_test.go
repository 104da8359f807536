package merge

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("base\n"), 0o644))
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

func addSessionBranch(t *testing.T, repo, specID string, sessionID int, filename, content string) {
	t.Helper()
	branch := "impl-" + specID + "-session-" + itoa(sessionID)
	runGit(t, repo, "checkout", "-q", "-b", branch, "main")
	require.NoError(t, os.WriteFile(filepath.Join(repo, filename), []byte(content), 0o644))
	runGit(t, repo, "add", "-A")
	runGit(t, repo, "commit", "-q", "-m", "session work")
	runGit(t, repo, "checkout", "-q", "main")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func ensureMainBranch(t *testing.T, repo string) {
	t.Helper()
	out := runGit(t, repo, "branch", "--show-current")
	if out != "main\n" {
		runGit(t, repo, "branch", "-m", "main")
	}
}

func TestAnalyzeNoOverlap(t *testing.T) {
	repo := initRepo(t)
	ensureMainBranch(t, repo)
	addSessionBranch(t, repo, "001-demo", 0, "a.txt", "from session 0\n")
	addSessionBranch(t, repo, "001-demo", 1, "b.txt", "from session 1\n")

	integrator := New(repo, "001-demo")
	analysis, err := integrator.Analyze(context.Background(), "main")
	require.NoError(t, err)

	require.ElementsMatch(t, []int{0, 1}, analysis.Sessions)
	require.True(t, analysis.SafeToMerge)
	require.Empty(t, analysis.OverlappingFiles)
	require.Equal(t, 2, analysis.TotalFilesChanged)
}

func TestAnalyzeDetectsOverlap(t *testing.T) {
	repo := initRepo(t)
	ensureMainBranch(t, repo)
	addSessionBranch(t, repo, "001-demo", 0, "shared.txt", "from session 0\n")
	addSessionBranch(t, repo, "001-demo", 1, "shared.txt", "from session 1\n")

	integrator := New(repo, "001-demo")
	analysis, err := integrator.Analyze(context.Background(), "main")
	require.NoError(t, err)

	require.False(t, analysis.SafeToMerge)
	require.Contains(t, analysis.OverlappingFiles, "shared.txt")
	require.ElementsMatch(t, []int{0, 1}, analysis.OverlappingFiles["shared.txt"])
}

func TestMergeSequentialSucceeds(t *testing.T) {
	repo := initRepo(t)
	ensureMainBranch(t, repo)
	addSessionBranch(t, repo, "001-demo", 0, "a.txt", "from session 0\n")
	addSessionBranch(t, repo, "001-demo", 1, "b.txt", "from session 1\n")

	integrator := New(repo, "001-demo")
	result, err := integrator.MergeSequential(context.Background(), "main")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, []int{0, 1}, result.MergedSessions)
	require.Equal(t, "impl-001-demo-integrated", result.IntegrationBranch)

	require.FileExists(t, filepath.Join(repo, "a.txt"))
	require.FileExists(t, filepath.Join(repo, "b.txt"))
}

func TestMergeSequentialDetectsConflictAndCleansUp(t *testing.T) {
	repo := initRepo(t)
	ensureMainBranch(t, repo)
	addSessionBranch(t, repo, "001-demo", 0, "shared.txt", "from session 0\n")
	addSessionBranch(t, repo, "001-demo", 1, "shared.txt", "from session 1\n")

	integrator := New(repo, "001-demo")
	result, err := integrator.MergeSequential(context.Background(), "main")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 1, result.ConflictSession)
	require.Contains(t, result.ConflictingFiles, "shared.txt")

	current := runGit(t, repo, "branch", "--show-current")
	require.Equal(t, "main\n", current)

	require.False(t, integrator.branchExists(context.Background(), "impl-001-demo-integrated"))
}

func TestMergeSequentialFailsWithNoBranches(t *testing.T) {
	repo := initRepo(t)
	ensureMainBranch(t, repo)

	integrator := New(repo, "001-demo")
	_, err := integrator.MergeSequential(context.Background(), "main")
	require.Error(t, err)
}

func TestValidateWithoutTestCommand(t *testing.T) {
	repo := initRepo(t)
	ensureMainBranch(t, repo)
	addSessionBranch(t, repo, "001-demo", 0, "a.txt", "x\n")

	integrator := New(repo, "001-demo")
	_, err := integrator.MergeSequential(context.Background(), "main")
	require.NoError(t, err)

	ok, output := integrator.Validate(context.Background(), "")
	require.True(t, ok)
	require.Empty(t, output)
}

func TestParseShortStat(t *testing.T) {
	stat := parseShortStat(" 3 files changed, 42 insertions(+), 7 deletions(-)")
	require.Equal(t, 3, stat.files)
	require.Equal(t, 42, stat.added)
	require.Equal(t, 7, stat.deleted)
}

package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "specs", "001-demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "specs", "001-demo", "tasks.md"), []byte("# Tasks\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "init")
	return dir
}

func TestRepoRootFindsGitRoot(t *testing.T) {
	dir := initRepo(t)
	sub := filepath.Join(dir, "specs", "001-demo")

	root, err := RepoRoot(sub)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestRepoRootErrorsOutsideRepo(t *testing.T) {
	_, err := RepoRoot(t.TempDir())
	assert.Error(t, err)
}

func TestResolveUsesFeatureEnvVar(t *testing.T) {
	dir := initRepo(t)
	t.Setenv(FeatureEnvVar, "001-demo")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	ctx, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "001-demo", ctx.FeatureID)
	assert.Equal(t, dir, ctx.RepoRoot)
}

func TestFeatureCtxDerivedPaths(t *testing.T) {
	ctx := &FeatureCtx{RepoRoot: "/repo", FeatureID: "001-demo"}

	assert.Equal(t, "/repo/.speckit/flow-state.yaml", ctx.StatePath())
	assert.Equal(t, "/repo/.speckit/flow-state.yaml.lock", ctx.LockPath())
	assert.Equal(t, "/repo/.speckit/checkpoints", ctx.CheckpointsDir())
	assert.Equal(t, "/repo/.speckit/completions", ctx.CompletionsDir())
	assert.Equal(t, "/repo/.speckit/speckit-flow.yaml", ctx.ConfigPath())
	assert.Equal(t, "/repo/specs/001-demo/tasks.md", ctx.TasksPath())
	assert.Equal(t, "/repo/specs/001-demo/dag.yaml", ctx.DagPath())
	assert.Equal(t, "/repo/.worktrees-001-demo", ctx.WorktreesDir())
}

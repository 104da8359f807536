package coordinator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"speckit-flow/internal/adapter"
	"speckit-flow/internal/checkpoint"
	"speckit-flow/internal/completion"
	"speckit-flow/internal/dag"
	"speckit-flow/internal/logging"
	"speckit-flow/internal/state"
	"speckit-flow/internal/workspace"
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

	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))
	run("add", "-A")
	run("commit", "-q", "-m", "initial")

	return dir
}

func buildGraph(t *testing.T) *dag.DAG {
	t.Helper()
	tasks := []dag.Task{
		{ID: "T001", Name: "Setup project", Parallelizable: false},
		{ID: "T002", Name: "Build feature A", Dependencies: []string{"T001"}, Parallelizable: true},
		{ID: "T003", Name: "Build feature B", Dependencies: []string{"T001"}, Parallelizable: true},
	}
	g, err := dag.Build(tasks)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	return g
}

func TestCoordinatorInitializeAndRunPhase(t *testing.T) {
	repoRoot := initRepo(t)
	specDir := filepath.Join(repoRoot, ".speckit")
	require.NoError(t, os.MkdirAll(specDir, 0o755))

	g := buildGraph(t)
	ws := workspace.New(repoRoot)
	completionsDir := filepath.Join(specDir, "completions")
	det := completion.New(completionsDir)
	noop, err := adapter.New("noop", logging.Discard())
	require.NoError(t, err)

	stStore := state.New(filepath.Join(specDir, "state.yaml"))
	ckStore := checkpoint.New(filepath.Join(specDir, "checkpoints"))

	co := New(Config{
		SpecID:      "001-demo",
		AgentType:   "noop",
		BaseBranch:  "main",
		RepoRoot:    repoRoot,
		NumSessions: 2,
		Graph:       g,
		States:      stStore,
		Checkpoint:  ckStore,
		Workspaces:  ws,
		Completion:  det,
		Adapter:     noop,
		Logger:      logging.Discard(),
	})

	st, err := co.Initialize(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, st.Sessions, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = det.MarkComplete("T001")
	}()

	err = co.RunPhase(ctx, 0)
	require.NoError(t, err)

	st, err = stStore.Load()
	require.NoError(t, err)
	require.Equal(t, state.TaskCompleted, st.Tasks["T001"].Status)
}

type recordingNotifier struct {
	events []string
}

func (r *recordingNotifier) Notify(eventType string, data any) {
	r.events = append(r.events, eventType)
}

func TestCoordinatorNotifiesPhaseLifecycle(t *testing.T) {
	repoRoot := initRepo(t)
	specDir := filepath.Join(repoRoot, ".speckit")
	require.NoError(t, os.MkdirAll(specDir, 0o755))

	g := buildGraph(t)
	ws := workspace.New(repoRoot)
	det := completion.New(filepath.Join(specDir, "completions"))
	noop, err := adapter.New("noop", logging.Discard())
	require.NoError(t, err)

	stStore := state.New(filepath.Join(specDir, "state.yaml"))
	ckStore := checkpoint.New(filepath.Join(specDir, "checkpoints"))
	notifier := &recordingNotifier{}

	co := New(Config{
		SpecID:      "001-demo",
		AgentType:   "noop",
		BaseBranch:  "main",
		RepoRoot:    repoRoot,
		NumSessions: 2,
		Graph:       g,
		States:      stStore,
		Checkpoint:  ckStore,
		Workspaces:  ws,
		Completion:  det,
		Adapter:     noop,
		Logger:      logging.Discard(),
		Notifier:    notifier,
	})

	_, err = co.Initialize(context.Background(), 2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = det.MarkComplete("T001")
	}()

	require.NoError(t, co.RunPhase(ctx, 0))
	require.Equal(t, []string{"phase_started", "phase_completed"}, notifier.events)
}

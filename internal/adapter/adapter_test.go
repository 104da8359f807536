package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speckit-flow/internal/logging"
)

func TestNewUnknownKind(t *testing.T) {
	_, err := New("magic", logging.Discard())
	assert.Error(t, err)
}

func TestNewKnownKinds(t *testing.T) {
	for _, k := range []string{"copilot", "generic", "noop"} {
		a, err := New(k, logging.Discard())
		require.NoError(t, err)
		assert.NotNil(t, a)
	}
}

func TestCopilotAdapterSetupSessionWritesContext(t *testing.T) {
	dir := t.TempDir()
	a, err := New("copilot", logging.Discard())
	require.NoError(t, err)

	task := Task{ID: "T001", Description: "Do the thing", Files: []string{"a.go", "b.go"}}
	require.NoError(t, a.SetupSession(dir, task))

	path := a.ContextPath(dir)
	assert.Equal(t, filepath.Join(dir, ".copilot-task.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "T001")
	assert.Contains(t, string(data), "Do the thing")
	assert.Contains(t, string(data), "a.go")
}

func TestGenericAdapterContextPath(t *testing.T) {
	a, err := New("generic", logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/ws", ".agent-task.md"), a.ContextPath("/tmp/ws"))
}

func TestNoopAdapterDoesNotTouchDisk(t *testing.T) {
	dir := t.TempDir()
	a, err := New("noop", logging.Discard())
	require.NoError(t, err)

	require.NoError(t, a.SetupSession(dir, Task{ID: "T001"}))
	require.NoError(t, a.NotifyUser(0, dir, Task{ID: "T001"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatchPathsPointsAtTaskList(t *testing.T) {
	a, err := New("copilot", logging.Discard())
	require.NoError(t, err)
	paths := a.WatchPaths("/tmp/ws")
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join("/tmp/ws", "tasks.md"), paths[0])
}

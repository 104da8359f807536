package dashboard

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speckit-flow/internal/checkpoint"
	"speckit-flow/internal/logging"
	"speckit-flow/internal/state"
)

func TestHandleStateNotFound(t *testing.T) {
	dir := t.TempDir()
	st := state.New(filepath.Join(dir, "flow-state.yaml"))
	ck := checkpoint.New(filepath.Join(dir, "checkpoints"))

	srv := New(st, ck, filepath.Join(dir, "dag.yaml"), logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStateFound(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "flow-state.yaml")
	st := state.New(statePath)
	ck := checkpoint.New(filepath.Join(dir, "checkpoints"))

	now := time.Now().UTC()
	require.NoError(t, st.Save(state.NewOrchestrationState("001-demo", "noop", "main", 2, now)))

	srv := New(st, ck, filepath.Join(dir, "dag.yaml"), logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "001-demo")
}

func TestHandleCheckpointsEmpty(t *testing.T) {
	dir := t.TempDir()
	st := state.New(filepath.Join(dir, "flow-state.yaml"))
	ck := checkpoint.New(filepath.Join(dir, "checkpoints"))
	srv := New(st, ck, filepath.Join(dir, "dag.yaml"), logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/checkpoints", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkpoints")
}

func TestHandleIndex(t *testing.T) {
	dir := t.TempDir()
	st := state.New(filepath.Join(dir, "flow-state.yaml"))
	ck := checkpoint.New(filepath.Join(dir, "checkpoints"))
	srv := New(st, ck, filepath.Join(dir, "dag.yaml"), logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "speckit-flow dashboard")
}

func TestNotifyIsNonBlockingWithNoClients(t *testing.T) {
	dir := t.TempDir()
	st := state.New(filepath.Join(dir, "flow-state.yaml"))
	ck := checkpoint.New(filepath.Join(dir, "checkpoints"))
	srv := New(st, ck, filepath.Join(dir, "dag.yaml"), logging.Discard())

	done := make(chan struct{})
	go func() {
		srv.Notify("phase_started", "phase-0")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no hub running and no clients registered")
	}
}

// Package coordinator owns the orchestration lifecycle: it drives the
// DAG's phases one at a time, notifying the Agent Adapter and
// blocking on the Completion Detector's dual-source signal at each
// phase boundary, checkpointing after every phase. Its shape —
// lifecycle statuses and a driver loop over a task graph — follows
// the teacher's session.Session/task.Executor,
// generalized from the teacher's flat ready-queue executor to the
// spec's phase-barrier model.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"speckit-flow/internal/adapter"
	"speckit-flow/internal/checkpoint"
	"speckit-flow/internal/completion"
	"speckit-flow/internal/dag"
	"speckit-flow/internal/logging"
	"speckit-flow/internal/state"
	"speckit-flow/internal/workspace"
)

// ErrInterrupted is returned by Run/RunPhase when a cooperative
// interrupt was observed while waiting on a phase.
var ErrInterrupted = fmt.Errorf("interrupted")

// Notifier receives passive, best-effort progress events. The
// dashboard's Server satisfies this; the Coordinator never blocks on
// it and works identically with it unset.
type Notifier interface {
	Notify(eventType string, data any)
}

// Coordinator drives a single orchestration run end to end.
type Coordinator struct {
	specID       string
	agentType    string
	baseBranch   string
	taskListPath string
	repoRoot     string

	graph      *dag.DAG
	states     *state.Store
	checkpoint *checkpoint.Store
	workspaces *workspace.Manager
	completion *completion.Detector
	adapter    adapter.Adapter
	logger     logging.Logger
	notifier   Notifier

	interrupted atomic.Bool
}

// Config bundles everything Coordinator needs to construct its
// collaborators.
type Config struct {
	SpecID       string
	AgentType    string
	BaseBranch   string
	RepoRoot     string
	TaskListPath string
	NumSessions  int

	Graph      *dag.DAG
	States     *state.Store
	Checkpoint *checkpoint.Store
	Workspaces *workspace.Manager
	Completion *completion.Detector
	Adapter    adapter.Adapter
	Logger     logging.Logger
	Notifier   Notifier
}

// New builds a Coordinator from cfg.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		specID:       cfg.SpecID,
		agentType:    cfg.AgentType,
		baseBranch:   cfg.BaseBranch,
		taskListPath: cfg.TaskListPath,
		repoRoot:     cfg.RepoRoot,
		graph:        cfg.Graph,
		states:       cfg.States,
		checkpoint:   cfg.Checkpoint,
		workspaces:   cfg.Workspaces,
		completion:   cfg.Completion,
		adapter:      cfg.Adapter,
		logger:       cfg.Logger.Named("coordinator"),
		notifier:     cfg.Notifier,
	}
}

// notify forwards a best-effort progress event to the optional
// dashboard notifier. A nil notifier (the common case when
// `--dashboard` wasn't passed) is a silent no-op.
func (c *Coordinator) notify(eventType string, data any) {
	if c.notifier != nil {
		c.notifier.Notify(eventType, data)
	}
}

// Initialize assigns sessions via the DAG, materializes each
// session's workspace, writes its first task's context document, and
// persists the resulting OrchestrationState. Sessions with no
// assigned tasks are skipped.
func (c *Coordinator) Initialize(ctx context.Context, numSessions int) (*state.OrchestrationState, error) {
	if err := c.graph.AssignSessions(numSessions); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	st := state.NewOrchestrationState(c.specID, c.agentType, c.baseBranch, numSessions, now)

	for s := 0; s < numSessions; s++ {
		taskIDs := c.graph.SessionTasks(s)
		if len(taskIDs) == 0 {
			continue
		}

		first, ok := c.graph.GetTask(taskIDs[0])
		if !ok {
			return nil, fmt.Errorf("session %d: unknown task %s", s, taskIDs[0])
		}

		ws, err := c.workspaces.Create(ctx, c.specID, s, first.Name, "")
		if err != nil {
			return nil, err
		}

		if err := c.adapter.SetupSession(ws.Path, adapter.Task{
			ID:          first.ID,
			Description: first.Name,
			Files:       first.Files,
		}); err != nil {
			return nil, err
		}

		sess := state.SessionState{
			SessionID:    s,
			WorktreePath: ws.Path,
			BranchName:   ws.Branch,
			Status:       state.SessionIdle,
		}
		st.Sessions = append(st.Sessions, sess)

		for _, id := range taskIDs {
			st.Tasks[id] = &state.TaskState{Status: state.TaskPending, Session: s}
		}
	}

	if err := c.states.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// RunPhase executes phase i: notifies active sessions, blocks on the
// dual completion signal for every task id in the phase, then marks
// progress and saves state. Returns ErrInterrupted if a cooperative
// interrupt was observed while waiting.
func (c *Coordinator) RunPhase(ctx context.Context, i int) error {
	if i < 0 || i >= c.graph.PhaseCount() {
		return fmt.Errorf("phase %d out of range [0, %d)", i, c.graph.PhaseCount())
	}

	taskIDs := c.graph.PhaseTasks(i)

	st, err := c.states.Load()
	if err != nil {
		return err
	}

	bySession := make(map[int][]string)
	for _, id := range taskIDs {
		t, ok := c.graph.GetTask(id)
		if !ok || t.Session == nil {
			continue
		}
		bySession[*t.Session] = append(bySession[*t.Session], id)
	}

	now := time.Now().UTC()
	for s, ids := range bySession {
		idx := sessionIndex(st, s)
		if idx < 0 {
			continue
		}
		st.Sessions[idx].Status = state.SessionExecuting
		st.Sessions[idx].CurrentTask = ids[0]
		if ts, ok := st.Tasks[ids[0]]; ok {
			ts.Status = state.TaskInProgress
			startedAt := now
			ts.StartedAt = &startedAt
		}
	}
	if err := c.states.Save(st); err != nil {
		return err
	}
	c.notify("phase_started", phaseLabel(i))

	sessionIDs := make([]int, 0, len(bySession))
	for s := range bySession {
		sessionIDs = append(sessionIDs, s)
	}
	sort.Ints(sessionIDs)

	for _, s := range sessionIDs {
		ids := bySession[s]
		idx := sessionIndex(st, s)
		if idx < 0 {
			continue
		}
		t, ok := c.graph.GetTask(ids[0])
		if !ok {
			continue
		}
		if err := c.adapter.NotifyUser(s, st.Sessions[idx].WorktreePath, adapter.Task{
			ID:          t.ID,
			Description: t.Name,
			Files:       t.Files,
		}); err != nil {
			c.logger.Warn("notify_user failed", "session", s, "task", t.ID, "error", err)
		}
	}

	restore := c.installSignalHandler()
	defer restore()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.watchInterrupt(waitCtx, cancel)

	if _, err := c.completion.WaitForCompletion(waitCtx, taskIDs, c.taskListPath, 0, completion.DefaultPollInterval); err != nil {
		if c.interrupted.Load() {
			return ErrInterrupted
		}
		return err
	}

	st, err = c.states.Load()
	if err != nil {
		return err
	}

	completedNow := time.Now().UTC()
	for _, id := range taskIDs {
		ts, ok := st.Tasks[id]
		if !ok {
			continue
		}
		ts.Status = state.TaskCompleted
		completedAt := completedNow
		ts.CompletedAt = &completedAt
	}
	for s, ids := range bySession {
		idx := sessionIndex(st, s)
		if idx < 0 {
			continue
		}
		st.Sessions[idx].CompletedTasks = append(st.Sessions[idx].CompletedTasks, ids...)
		st.Sessions[idx].CurrentTask = ""
		if sessionHasFutureWork(c.graph, s, st.Sessions[idx].CompletedTasks) {
			st.Sessions[idx].Status = state.SessionIdle
		} else {
			st.Sessions[idx].Status = state.SessionCompleted
		}
	}
	st.CurrentPhase = phaseLabel(i)
	st.PhasesCompleted = append(st.PhasesCompleted, phaseLabel(i))
	st.UpdatedAt = time.Now().UTC()

	if err := c.states.Save(st); err != nil {
		return err
	}
	c.notify("phase_completed", phaseLabel(i))
	return nil
}

// CheckpointPhase snapshots the current OrchestrationState.
func (c *Coordinator) CheckpointPhase() error {
	st, err := c.states.Load()
	if err != nil {
		return err
	}
	_, err = c.checkpoint.Checkpoint(st)
	return err
}

// Run drives every remaining phase to completion, resuming from the
// last completed phase if state already exists. Returns ErrInterrupted
// cleanly (not as a wrapped failure) when a cooperative interrupt
// stops the run partway through.
func (c *Coordinator) Run(ctx context.Context, numSessions int) error {
	var st *state.OrchestrationState
	var err error

	if !c.states.Exists() {
		st, err = c.Initialize(ctx, numSessions)
		if err != nil {
			return err
		}
	} else {
		st, err = c.states.Load()
		if err != nil {
			return err
		}
	}

	start := c.startPhase(st)
	interrupted := false

	for i := start; i < c.graph.PhaseCount(); i++ {
		if c.interrupted.Load() {
			interrupted = true
			break
		}
		if err := c.RunPhase(ctx, i); err != nil {
			if err == ErrInterrupted {
				interrupted = true
				break
			}
			c.logger.Error("phase failed", "phase", i, "error", err)
			return err
		}
		if err := c.CheckpointPhase(); err != nil {
			return err
		}
	}

	if interrupted {
		return ErrInterrupted
	}

	st, err = c.states.Load()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for idx := range st.Sessions {
		st.Sessions[idx].Status = state.SessionCompleted
		st.Sessions[idx].CurrentTask = ""
	}
	st.UpdatedAt = now
	if err := c.states.Save(st); err != nil {
		return err
	}
	if _, err := c.checkpoint.Checkpoint(st); err != nil {
		return err
	}
	c.notify("orchestration_completed", st.SpecID)
	return nil
}

func (c *Coordinator) startPhase(st *state.OrchestrationState) int {
	if st.CurrentPhase == "" {
		return 0
	}
	for idx, name := range st.PhasesCompleted {
		if name == st.CurrentPhase {
			return idx + 1
		}
	}
	return phaseIndex(st.CurrentPhase)
}

func (c *Coordinator) installSignalHandler() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			c.interrupted.Store(true)
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}

func (c *Coordinator) watchInterrupt(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.interrupted.Load() {
				cancel()
				return
			}
		}
	}
}

func sessionIndex(st *state.OrchestrationState, sessionID int) int {
	for i, s := range st.Sessions {
		if s.SessionID == sessionID {
			return i
		}
	}
	return -1
}

func sessionHasFutureWork(g *dag.DAG, sessionID int, completedSoFar []string) bool {
	done := make(map[string]bool, len(completedSoFar))
	for _, id := range completedSoFar {
		done[id] = true
	}
	for _, id := range g.SessionTasks(sessionID) {
		if !done[id] {
			return true
		}
	}
	return false
}

func phaseLabel(i int) string {
	return fmt.Sprintf("phase-%d", i)
}

func phaseIndex(label string) int {
	var i int
	if _, err := fmt.Sscanf(label, "phase-%d", &i); err != nil {
		return 0
	}
	return i
}

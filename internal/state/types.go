// Package state implements the atomic, crash-safe, single-writer
// Store for OrchestrationState: the one durable document the Session
// Coordinator mutates between phases and before/after every task
// status change.
package state

import "time"

// TaskStatus mirrors dag.Task's runtime lifecycle (spec.md §3).
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// SessionLifecycle mirrors SessionState.status.
type SessionLifecycle string

const (
	SessionIdle      SessionLifecycle = "idle"
	SessionExecuting SessionLifecycle = "executing"
	SessionWaiting   SessionLifecycle = "waiting"
	SessionCompleted SessionLifecycle = "completed"
	SessionFailed    SessionLifecycle = "failed"
)

// MergeLifecycle mirrors OrchestrationState.merge_status.
type MergeLifecycle string

const (
	MergeNone       MergeLifecycle = ""
	MergeInProgress MergeLifecycle = "in_progress"
	MergeCompleted  MergeLifecycle = "completed"
	MergeFailed     MergeLifecycle = "failed"
)

// TaskState is the runtime record for one task, keyed by task id in
// OrchestrationState.Tasks.
type TaskState struct {
	Status      TaskStatus `yaml:"status" json:"status"`
	Session     int        `yaml:"session" json:"session"`
	StartedAt   *time.Time `yaml:"started_at" json:"started_at"`
	CompletedAt *time.Time `yaml:"completed_at" json:"completed_at"`
}

// SessionState is the runtime record for one session.
type SessionState struct {
	SessionID      int              `yaml:"session_id" json:"session_id"`
	WorktreePath   string           `yaml:"worktree_path" json:"worktree_path"`
	BranchName     string           `yaml:"branch_name" json:"branch_name"`
	CurrentTask    string           `yaml:"current_task" json:"current_task"`
	CompletedTasks []string         `yaml:"completed_tasks" json:"completed_tasks"`
	Status         SessionLifecycle `yaml:"status" json:"status"`
}

// OrchestrationState is the single document persisted to durable
// storage, per spec.md §3.
type OrchestrationState struct {
	Version          string                `yaml:"version" json:"version"`
	SpecID           string                `yaml:"spec_id" json:"spec_id"`
	AgentType        string                `yaml:"agent_type" json:"agent_type"`
	NumSessions      int                   `yaml:"num_sessions" json:"num_sessions"`
	BaseBranch       string                `yaml:"base_branch" json:"base_branch"`
	StartedAt        time.Time             `yaml:"started_at" json:"started_at"`
	UpdatedAt        time.Time             `yaml:"updated_at" json:"updated_at"`
	CurrentPhase     string                `yaml:"current_phase" json:"current_phase"`
	PhasesCompleted  []string              `yaml:"phases_completed" json:"phases_completed"`
	Sessions         []SessionState        `yaml:"sessions" json:"sessions"`
	Tasks            map[string]*TaskState `yaml:"tasks" json:"tasks"`
	MergeStatus      MergeLifecycle        `yaml:"merge_status" json:"merge_status"`
}

// SchemaVersion is the current OrchestrationState schema version.
const SchemaVersion = "1.0"

// NewOrchestrationState builds a freshly-initialized OrchestrationState.
func NewOrchestrationState(specID, agentType, baseBranch string, numSessions int, now time.Time) *OrchestrationState {
	return &OrchestrationState{
		Version:     SchemaVersion,
		SpecID:      specID,
		AgentType:   agentType,
		NumSessions: numSessions,
		BaseBranch:  baseBranch,
		StartedAt:   now,
		UpdatedAt:   now,
		Tasks:       make(map[string]*TaskState),
	}
}

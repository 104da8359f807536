package dag

// Task is an immutable input task, as ingested from the task list
// (spec.md §3). Session is nil until AssignSessions runs.
type Task struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Dependencies   []string `yaml:"dependencies" json:"dependencies"`
	Parallelizable bool     `yaml:"parallelizable" json:"parallelizable"`
	Story          string   `yaml:"story,omitempty" json:"story,omitempty"`
	Files          []string `yaml:"files,omitempty" json:"files,omitempty"`
	Completed      bool     `yaml:"completed" json:"completed"`
	Session        *int     `yaml:"session" json:"session"`
}

// clone returns a deep-enough copy for safe external handout.
func (t Task) clone() Task {
	cp := t
	if t.Dependencies != nil {
		cp.Dependencies = append([]string(nil), t.Dependencies...)
	}
	if t.Files != nil {
		cp.Files = append([]string(nil), t.Files...)
	}
	if t.Session != nil {
		s := *t.Session
		cp.Session = &s
	}
	return cp
}

// Package dag builds the execution graph from a flat task list,
// validates it's acyclic, groups it into dependency-respecting
// phases, computes the critical path, and assigns tasks to sessions.
//
// Cycle detection and phase computation are grounded on the teacher's
// internal/task/dag.go (three-color DFS, Kahn's-algorithm-style
// generation peeling); phases/critical-path/session-assignment are
// new surface area the teacher's flat ready-queue executor doesn't
// have, grounded on spec.md §4.1 directly.
package dag

import (
	"errors"
	"sort"

	"speckit-flow/internal/errorsx"
)

// DAG is the built, validated execution graph.
type DAG struct {
	tasks  map[string]*Task
	order  []string // ids in ingestion order, for deterministic iteration fallback
	phases [][]string
}

// Build constructs a DAG from a flat task list. Unknown dependency
// references are rejected before the graph is accepted, per spec.md
// §3 invariant 7.
func Build(tasks []Task) (*DAG, error) {
	d := &DAG{tasks: make(map[string]*Task, len(tasks))}

	for i := range tasks {
		t := tasks[i].clone()
		if _, exists := d.tasks[t.ID]; exists {
			return nil, &errorsx.IngestionError{TaskID: t.ID, Reason: "duplicate task id"}
		}
		d.tasks[t.ID] = &t
		d.order = append(d.order, t.ID)
	}

	for _, id := range d.order {
		for _, dep := range d.tasks[id].Dependencies {
			if _, ok := d.tasks[dep]; !ok {
				return nil, &errorsx.IngestionError{
					TaskID: id,
					Reason: "depends on unknown task " + dep,
				}
			}
		}
	}

	return d, nil
}

// Validate fails with *errorsx.CycleError if the graph contains a
// cycle. Succeeds (nil) on empty input.
func (d *DAG) Validate() error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(d.tasks))
	var path []string
	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		path = append(path, id)

		for _, dep := range d.tasks[id].Dependencies {
			switch color[dep] {
			case gray:
				// Found the back edge: dep is still on the stack.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cyclePath = append(append([]string(nil), path[start:]...), dep)
				return true
			case white:
				if dfs(dep) {
					return true
				}
			}
		}

		color[id] = black
		path = path[:len(path)-1]
		return false
	}

	for _, id := range d.sortedIDs() {
		if color[id] == white {
			if dfs(id) {
				return &errorsx.CycleError{Path: cyclePath}
			}
		}
	}

	return nil
}

// sortedIDs returns every task id, lexicographically sorted.
func (d *DAG) sortedIDs() []string {
	ids := make([]string, 0, len(d.tasks))
	for id := range d.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Phases returns the dependency generations: phase i contains exactly
// the tasks whose dependencies are all in phases 0..i-1. Task ids
// within each phase are sorted lexicographically for determinism.
func (d *DAG) Phases() [][]string {
	if d.phases != nil {
		return d.phases
	}

	placed := make(map[string]int, len(d.tasks)) // id -> phase index
	var phases [][]string
	remaining := d.sortedIDs()

	for len(remaining) > 0 {
		var ready []string
		var next []string

		for _, id := range remaining {
			allPlaced := true
			for _, dep := range d.tasks[id].Dependencies {
				if _, ok := placed[dep]; !ok {
					allPlaced = false
					break
				}
			}
			if allPlaced {
				ready = append(ready, id)
			} else {
				next = append(next, id)
			}
		}

		if len(ready) == 0 {
			// Shouldn't happen once Validate() has passed, but guard
			// against an unvalidated caller spinning forever.
			break
		}

		sort.Strings(ready)
		idx := len(phases)
		for _, id := range ready {
			placed[id] = idx
		}
		phases = append(phases, ready)
		remaining = next
	}

	d.phases = phases
	return phases
}

// PhaseTasks returns the task ids in phase i.
func (d *DAG) PhaseTasks(i int) []string {
	phases := d.Phases()
	if i < 0 || i >= len(phases) {
		return nil
	}
	return append([]string(nil), phases[i]...)
}

// PhaseCount returns the number of phases.
func (d *DAG) PhaseCount() int {
	return len(d.Phases())
}

// GetTask returns a copy of the task with the given id.
func (d *DAG) GetTask(id string) (Task, bool) {
	t, ok := d.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// Tasks returns a copy of every task, in ingestion order.
func (d *DAG) Tasks() []Task {
	out := make([]Task, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.tasks[id].clone())
	}
	return out
}

// CriticalPath returns the longest dependency chain by node count,
// task ids oldest-dependency-first. Ties are broken by lexicographic
// order of the chain's endpoint id. Returns nil for an empty graph.
func (d *DAG) CriticalPath() []string {
	if len(d.tasks) == 0 {
		return nil
	}

	length := make(map[string]int, len(d.tasks))
	pred := make(map[string]string, len(d.tasks))

	// Process in an order consistent with the phase generations so
	// every dependency is resolved before its dependents.
	for _, phase := range d.Phases() {
		for _, id := range phase {
			best := -1
			bestDep := ""
			deps := append([]string(nil), d.tasks[id].Dependencies...)
			sort.Strings(deps)
			for _, dep := range deps {
				if length[dep] > best {
					best = length[dep]
					bestDep = dep
				}
			}
			if best < 0 {
				best = 0
			}
			length[id] = best + 1
			if bestDep != "" {
				pred[id] = bestDep
			}
		}
	}

	maxLen := 0
	for _, id := range d.sortedIDs() {
		if length[id] > maxLen {
			maxLen = length[id]
		}
	}

	var endpoint string
	for _, id := range d.sortedIDs() {
		if length[id] == maxLen {
			endpoint = id
			break
		}
	}

	var path []string
	for cur := endpoint; cur != ""; {
		path = append([]string{cur}, path...)
		next, ok := pred[cur]
		if !ok {
			break
		}
		cur = next
	}
	return path
}

// AssignSessions assigns every task to a session index in [0, n).
// Within each phase: if every task in the phase is parallelizable,
// assignment is round-robin over the phase's sorted task ids;
// otherwise every task in the phase serializes to session 0.
func (d *DAG) AssignSessions(n int) error {
	if n < 1 {
		return errors.New("num_sessions must be >= 1")
	}

	for _, phase := range d.Phases() {
		allParallel := true
		for _, id := range phase {
			if !d.tasks[id].Parallelizable {
				allParallel = false
				break
			}
		}

		for idx, id := range phase {
			s := 0
			if allParallel {
				s = idx % n
			}
			session := s
			d.tasks[id].Session = &session
		}
	}

	return nil
}

// SessionTasks returns every task id assigned to session s, in
// ingestion order.
func (d *DAG) SessionTasks(s int) []string {
	var out []string
	for _, id := range d.order {
		if sess := d.tasks[id].Session; sess != nil && *sess == s {
			out = append(out, id)
		}
	}
	return out
}

// Package tasklist parses the human-authored task-list grammar
// (spec.md §6) shared by ingestion and the Completion Detector's
// checkbox watcher.
package tasklist

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"speckit-flow/internal/errorsx"
)

// Entry is one parsed task-list line.
type Entry struct {
	Completed       bool
	ID              string
	Parallelizable  bool
	Story           string
	DependsOn       []string
	Description     string
	Files           []string
}

// lineRe matches: - [ ] [T001] [P][US1][deps:T002,T003] description
var lineRe = regexp.MustCompile(`^-\s*\[([ xX])\]\s*\[(T\d{3})\]\s*(.*)$`)

var (
	parallelRe = regexp.MustCompile(`\[P\]`)
	storyRe    = regexp.MustCompile(`\[US(\d+)\]`)
	depsRe     = regexp.MustCompile(`\[deps:([^\]]*)\]`)
	pathRe     = regexp.MustCompile("`([^`]+\\.[A-Za-z0-9]{1,5})`")
)

// ParseFile parses a task-list file into entries, in file order.
// Lines that don't match the grammar are skipped.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses task-list grammar lines from r.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry, ok := ParseLine(scanner.Text())
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseLine parses a single task-list line. ok is false if the line
// doesn't match the grammar (it's prose, a heading, blank, etc).
func ParseLine(line string) (entry Entry, ok bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}

	checkbox, id, rest := m[1], m[2], m[3]

	entry.ID = id
	entry.Completed = checkbox == "x" || checkbox == "X"
	entry.Parallelizable = parallelRe.MatchString(rest)

	if sm := storyRe.FindStringSubmatch(rest); sm != nil {
		entry.Story = "US" + sm[1]
	}

	if dm := depsRe.FindStringSubmatch(rest); dm != nil {
		for _, dep := range strings.Split(dm[1], ",") {
			dep = strings.TrimSpace(dep)
			if dep != "" {
				entry.DependsOn = append(entry.DependsOn, dep)
			}
		}
	}

	for _, pm := range pathRe.FindAllStringSubmatch(rest, -1) {
		entry.Files = append(entry.Files, pm[1])
	}

	desc := parallelRe.ReplaceAllString(rest, "")
	desc = storyRe.ReplaceAllString(desc, "")
	desc = depsRe.ReplaceAllString(desc, "")
	entry.Description = strings.TrimSpace(desc)

	return entry, true
}

// Validate checks that every dependency reference points at a known
// task id, per spec.md §3 invariant 7 (checked before the DAG build
// accepts the input).
func Validate(entries []Entry) error {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}
	for _, e := range entries {
		for _, dep := range e.DependsOn {
			if !known[dep] {
				return &errorsx.IngestionError{
					TaskID: e.ID,
					Reason: "depends on unknown task " + dep,
				}
			}
		}
	}
	return nil
}

// CompletedIDs returns the set of task ids whose checkbox is closed.
func CompletedIDs(entries []Entry) map[string]bool {
	out := make(map[string]bool)
	for _, e := range entries {
		if e.Completed {
			out[e.ID] = true
		}
	}
	return out
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"speckit-flow/internal/dag"
	"speckit-flow/internal/paths"
	"speckit-flow/internal/tasklist"
)

var (
	dagSessions  int
	dagVisualize bool
)

var dagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Parse tasks.md, build the DAG, assign sessions, and write dag.yaml",
	RunE:  runDag,
}

func init() {
	dagCmd.Flags().IntVar(&dagSessions, "sessions", 0, "override num_sessions from config")
	dagCmd.Flags().BoolVar(&dagVisualize, "visualize", false, "print a phase tree after building")
}

func runDag(cmd *cobra.Command, args []string) error {
	ctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	numSessions, err := resolveNumSessions(ctx, dagSessions)
	if err != nil {
		return reportError(err)
	}

	entries, err := tasklist.ParseFile(ctx.TasksPath())
	if err != nil {
		return reportError(err)
	}
	if err := tasklist.Validate(entries); err != nil {
		return reportError(err)
	}

	tasks := make([]dag.Task, len(entries))
	for i, e := range entries {
		tasks[i] = dag.Task{
			ID:             e.ID,
			Name:           e.Description,
			Dependencies:   e.DependsOn,
			Parallelizable: e.Parallelizable,
			Story:          e.Story,
			Files:          e.Files,
			Completed:      e.Completed,
		}
	}

	g, err := dag.Build(tasks)
	if err != nil {
		return reportError(err)
	}
	if err := g.Validate(); err != nil {
		return reportError(err)
	}
	if err := g.AssignSessions(numSessions); err != nil {
		return reportError(err)
	}

	if err := g.Save(ctx.DagPath(), ctx.FeatureID, numSessions); err != nil {
		return reportError(err)
	}

	fmt.Printf("wrote %s (%d tasks, %d phases, %d sessions)\n", ctx.DagPath(), len(tasks), g.PhaseCount(), numSessions)

	if dagVisualize {
		printPhaseTree(g)
	}
	return nil
}

func printPhaseTree(g *dag.DAG) {
	for i := 0; i < g.PhaseCount(); i++ {
		fmt.Printf("phase-%d\n", i)
		for _, id := range g.PhaseTasks(i) {
			t, _ := g.GetTask(id)
			session := "-"
			if t.Session != nil {
				session = fmt.Sprintf("%d", *t.Session)
			}
			fmt.Printf("  [%s] %s (session %s)%s\n", t.ID, t.Name, session, parallelSuffix(t.Parallelizable))
		}
	}
}

func parallelSuffix(parallelizable bool) string {
	if parallelizable {
		return " [P]"
	}
	return ""
}

// resolveNumSessions applies the CLI-override-over-config precedence
// shared by `dag` and `run`.
func resolveNumSessions(ctx *paths.FeatureCtx, override int) (int, error) {
	if override > 0 {
		return override, nil
	}
	cfg, err := loadConfigOrDefault(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.NumSessions, nil
}

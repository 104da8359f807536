package main

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"speckit-flow/internal/completion"
	"speckit-flow/internal/dag"
	"speckit-flow/internal/paths"
)

var taskIDRe = regexp.MustCompile(`^T\d{3}$`)

var completeCmd = &cobra.Command{
	Use:   "complete T###",
	Short: "Mark a task complete via its sentinel file",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	if !taskIDRe.MatchString(taskID) {
		return reportError(fmt.Errorf("invalid task id %q (want T### with exactly three digits)", taskID))
	}

	ctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	if g, _, loadErr := dag.Load(ctx.DagPath()); loadErr == nil {
		if _, ok := g.GetTask(taskID); !ok {
			return reportError(fmt.Errorf("unknown task %s (not present in %s)", taskID, ctx.DagPath()))
		}
	}

	det := completion.New(ctx.CompletionsDir())
	completed, err := det.ManualCompletions()
	if err != nil {
		return reportError(err)
	}
	if completed[taskID] {
		fmt.Printf("warning: %s was already marked complete\n", taskID)
		return nil
	}

	if err := det.MarkComplete(taskID); err != nil {
		return reportError(err)
	}

	fmt.Printf("marked %s complete\n", taskID)
	return nil
}

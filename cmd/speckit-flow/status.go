package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"speckit-flow/internal/paths"
	"speckit-flow/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Render the current orchestration state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	store := state.New(ctx.StatePath())
	if !store.Exists() {
		fmt.Println("no orchestration state yet — run `speckit-flow run` to start one")
		return nil
	}

	st, err := store.Load()
	if err != nil {
		return reportError(err)
	}

	fmt.Printf("spec: %s\nagent: %s\nphase: %s\nphases completed: %v\nmerge status: %s\n",
		st.SpecID, st.AgentType, st.CurrentPhase, st.PhasesCompleted, orNone(string(st.MergeStatus)))

	for _, s := range st.Sessions {
		fmt.Printf("session %d: status=%s current_task=%s completed=%v\n",
			s.SessionID, s.Status, orNone(s.CurrentTask), s.CompletedTasks)
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

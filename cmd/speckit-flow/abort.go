package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"speckit-flow/internal/paths"
	"speckit-flow/internal/state"
	"speckit-flow/internal/workspace"
)

var abortForce bool

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Destroy this spec's workspaces and orchestration state, preserving branches",
	RunE:  runAbort,
}

func init() {
	abortCmd.Flags().BoolVar(&abortForce, "force", false, "skip the confirmation prompt")
}

func runAbort(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	ws := workspace.New(fctx.RepoRoot)
	existing, err := ws.SpecWorkspaces(ctx, fctx.FeatureID)
	if err != nil {
		return reportError(err)
	}

	stStore := state.New(fctx.StatePath())
	hasState := stStore.Exists()

	if len(existing) == 0 && !hasState {
		fmt.Println("nothing to clean up")
		return nil
	}

	if !abortForce {
		if !confirm(fmt.Sprintf("remove %d workspace(s) and orchestration state for %s? branches are kept", len(existing), fctx.FeatureID)) {
			fmt.Println("aborted")
			return nil
		}
	}

	removed, err := ws.CleanupSpec(ctx, fctx.FeatureID)
	if err != nil {
		return reportError(err)
	}

	if hasState {
		if err := stStore.Delete(); err != nil {
			return reportError(err)
		}
	}

	fmt.Printf("removed %d workspace(s) and cleared orchestration state; session branches were left intact\n", removed)
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"speckit-flow/internal/errorsx"
	"speckit-flow/internal/merge"
	"speckit-flow/internal/paths"
	"speckit-flow/internal/workspace"
)

var (
	mergeKeepWorktrees bool
	mergeTestCommand   string
	mergeBaseBranch    string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Analyze session branches, merge them sequentially, and finalize",
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeKeepWorktrees, "keep-worktrees", false, "don't remove session worktrees after a successful merge")
	mergeCmd.Flags().StringVar(&mergeTestCommand, "test", "", "shell command to validate the integration branch after merging")
	mergeCmd.Flags().StringVar(&mergeBaseBranch, "base-branch", "main", "branch the session branches were forked from")
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	integrator := merge.New(fctx.RepoRoot, fctx.FeatureID)

	analysis, err := integrator.Analyze(ctx, mergeBaseBranch)
	if err != nil {
		return reportError(err)
	}
	if len(analysis.Sessions) == 0 {
		return reportError(fmt.Errorf("no session branches found for spec %s", fctx.FeatureID))
	}

	fmt.Printf("%d session branch(es), %d file(s) changed\n", len(analysis.Sessions), analysis.TotalFilesChanged)
	if !analysis.SafeToMerge {
		fmt.Printf("warning: %d file(s) touched by more than one session:\n", len(analysis.OverlappingFiles))
		for path, sessions := range analysis.OverlappingFiles {
			fmt.Printf("  %s: sessions %v\n", path, sessions)
		}
		if !confirm("continue with sequential merge anyway?") {
			fmt.Println("aborted")
			return nil
		}
	}

	result, err := integrator.MergeSequential(ctx, mergeBaseBranch)
	if err != nil {
		return reportError(err)
	}
	if !result.Success {
		return reportError(&errorsx.MergeConflictError{
			SessionID:        result.ConflictSession,
			ConflictingFiles: result.ConflictingFiles,
		})
	}
	fmt.Printf("merged sessions %v into %s\n", result.MergedSessions, result.IntegrationBranch)

	if mergeTestCommand != "" {
		ok, output := integrator.Validate(ctx, mergeTestCommand)
		if !ok {
			fmt.Printf("warning: validation command failed:\n%s\n", output)
		} else {
			fmt.Println("validation passed")
		}
	}

	ws := workspace.New(fctx.RepoRoot)
	summary, err := integrator.Finalize(ctx, mergeBaseBranch, ws, mergeKeepWorktrees)
	if err != nil {
		return reportError(err)
	}

	fmt.Printf("integration branch %s: %d file(s) changed, +%d/-%d, %d workspace(s) removed\n",
		summary.IntegrationBranch, summary.FilesChanged, summary.LinesAdded, summary.LinesDeleted, summary.WorkspacesRemoved)

	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"speckit-flow/internal/errorsx"
	"speckit-flow/internal/logging"
)

var (
	logLevel string
	logJSON  bool

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "speckit-flow",
	Short:   "Phase-barrier orchestrator for multi-session spec-kit implementation",
	Long:    `speckit-flow drives a task-list DAG through phases, coordinating independent editor sessions and folding their work back together.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(dagCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(abortCmd)
}

func newLogger() logging.Logger {
	return logging.New(logging.Options{Level: logLevel, JSON: logJSON})
}

// reportError prints the (a) what failed / (b) identifiers / (c) next
// action triad from spec.md §7, type-switching on the errorsx taxonomy
// for the identifier/remediation detail.
func reportError(err error) error {
	switch e := err.(type) {
	case *errorsx.CycleError:
		fmt.Fprintf(os.Stderr, "error: dependency cycle: %v\nnext: fix the `deps:` markers in tasks.md and re-run `speckit-flow dag`\n", e.Path)
	case *errorsx.IngestionError:
		fmt.Fprintf(os.Stderr, "error: %v\nnext: correct tasks.md and re-run\n", e)
	case *errorsx.StateNotFoundError:
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	case *errorsx.StateCorruptError:
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	case *errorsx.LockTimeoutError:
		fmt.Fprintf(os.Stderr, "error: %v\nnext: check for another running speckit-flow process\n", e)
	case *errorsx.WorkspaceExistsError:
		fmt.Fprintf(os.Stderr, "error: %v\nnext: remove the existing workspace/branch or choose a different spec id\n", e)
	case *errorsx.CompletionTimeoutError:
		fmt.Fprintf(os.Stderr, "error: %v\nnext: mark the pending tasks complete, or re-run with a longer timeout\n", e)
	case *errorsx.MergeConflictError:
		fmt.Fprintf(os.Stderr, "error: %v\nnext: resolve the conflict manually in session %d's branch and re-run `speckit-flow merge`\n", e, e.SessionID)
	case *errorsx.ConfigError:
		fmt.Fprintf(os.Stderr, "error: %v\nnext: fix %s or re-run `speckit-flow init`\n", e, e.Path)
	case *errorsx.EnvironmentError:
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	case *errorsx.VCSError:
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"speckit-flow/internal/adapter"
	"speckit-flow/internal/checkpoint"
	"speckit-flow/internal/completion"
	"speckit-flow/internal/coordinator"
	"speckit-flow/internal/dag"
	"speckit-flow/internal/dashboard"
	"speckit-flow/internal/paths"
	"speckit-flow/internal/state"
	"speckit-flow/internal/workspace"
)

var (
	runSessions int
	runResume   bool
	runDashboard bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the full orchestration, phase by phase",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().IntVar(&runSessions, "sessions", 0, "override num_sessions from config")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume an interrupted run (informational; run always resumes if state exists)")
	runCmd.Flags().BoolVar(&runDashboard, "dashboard", false, "serve the read-only status dashboard on :4680 while running")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	fctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	cfg, err := loadConfigOrDefault(fctx)
	if err != nil {
		return reportError(err)
	}
	numSessions := cfg.NumSessions
	if runSessions > 0 {
		numSessions = runSessions
	}

	g, _, err := dag.Load(fctx.DagPath())
	if err != nil {
		return reportError(fmt.Errorf("load DAG (run `speckit-flow dag` first): %w", err))
	}

	ad, err := adapter.New(cfg.AgentType, logger)
	if err != nil {
		return reportError(err)
	}

	stStore := state.New(fctx.StatePath())
	ckStore := checkpoint.New(fctx.CheckpointsDir())
	ws := workspace.New(fctx.RepoRoot)
	det := completion.New(fctx.CompletionsDir())

	// Interrupt/terminate handling is the coordinator's own job (spec.md
	// §4.7): it installs its signal handler per phase and restores it on
	// exit. The dashboard, if any, shares this lifetime via cancel.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier coordinator.Notifier
	if runDashboard {
		dash := dashboard.New(stStore, ckStore, fctx.DagPath(), logger)
		notifier = dash
		go func() {
			if err := dash.Run(ctx, ":4680"); err != nil {
				logger.Warn("dashboard exited", "error", err)
			}
		}()
		fmt.Println("dashboard listening on http://localhost:4680")
	}

	co := coordinator.New(coordinator.Config{
		SpecID:       fctx.FeatureID,
		AgentType:    cfg.AgentType,
		BaseBranch:   "main",
		RepoRoot:     fctx.RepoRoot,
		TaskListPath: fctx.TasksPath(),
		NumSessions:  numSessions,
		Graph:        g,
		States:       stStore,
		Checkpoint:   ckStore,
		Workspaces:   ws,
		Completion:   det,
		Adapter:      ad,
		Logger:       logger,
		Notifier:     notifier,
	})

	runErr := co.Run(ctx, numSessions)
	if runErr == coordinator.ErrInterrupted {
		fmt.Println("interrupted; re-run `speckit-flow run` to resume")
		return nil
	}
	if runErr != nil {
		return reportError(runErr)
	}

	fmt.Println("orchestration complete")
	return nil
}

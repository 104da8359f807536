package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"speckit-flow/internal/config"
	"speckit-flow/internal/paths"
)

var (
	initSessions int
	initAgent    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write speckit-flow.yaml, validating the repository layout",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().IntVar(&initSessions, "sessions", config.DefaultNumSessions, "default number of sessions")
	initCmd.Flags().StringVar(&initAgent, "agent", config.DefaultAgentType, "default agent_type")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx, err := paths.Resolve()
	if err != nil {
		return reportError(err)
	}

	configPath := ctx.ConfigPath()
	if _, statErr := os.Stat(configPath); statErr == nil {
		if !confirm(fmt.Sprintf("%s already exists. Overwrite?", configPath)) {
			fmt.Println("aborted")
			return nil
		}
	}

	cfg := &config.Config{AgentType: initAgent, NumSessions: initSessions}
	if err := config.Save(configPath, cfg); err != nil {
		return reportError(err)
	}

	fmt.Printf("wrote %s (agent_type=%s, num_sessions=%d)\n", configPath, cfg.AgentType, cfg.NumSessions)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

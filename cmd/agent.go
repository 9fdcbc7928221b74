/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/runner"
	"github.com/spf13/cobra"
)

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent [message]",
	Short: "Chat with the agent of the selected configuration",
	Long: `Create a new thread, post a message to it and run the agent configured by
AGENT_ID_<NAME> on it. When the run completes the whole thread is printed.

The thread is recorded locally, so its history can be fetched later with:
  aiproj history latest

If no message is provided as an argument, it reads from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(os.Stderr)
		if err != nil {
			return err
		}
		store, err := s.threadStore()
		if err != nil {
			return err
		}

		return s.execute(cmd.Context(), false, func(cfg config.Configuration) ([]runner.Operation, error) {
			op := &runner.AgentChat{Recorder: store, Logger: s.logger}
			if cfg.HasAgent() {
				message, err := readMessage(args, "Ask me something... ")
				if err != nil {
					return nil, err
				}
				op.Message = message
			}
			return []runner.Operation{op}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

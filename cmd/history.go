/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/runner"
	"github.com/longkey1/aiproj/internal/aiproj/threadlog"
	"github.com/spf13/cobra"
)

var historyJSON bool

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [thread]",
	Short: "Fetch the conversation history of a thread",
	Long: `Fetch every message of a thread with the selected configuration and print
them oldest first.

The thread can be given as:
  - a provider thread ID (e.g., thread_abc123)
  - "latest" for the newest thread recorded for the selected configuration
  - a prefix (4+ characters) of a local record ID (see "aiproj threads")

Without an argument, thread_id of the config file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(os.Stderr)
		if err != nil {
			return err
		}
		store, err := s.threadStore()
		if err != nil {
			return err
		}

		ref := s.plan.ThreadID
		if len(args) > 0 {
			ref = args[0]
		}

		return s.execute(cmd.Context(), false, func(cfg config.Configuration) ([]runner.Operation, error) {
			op, err := historyFetchOp(store, cfg.Name, ref)
			if err != nil {
				return nil, err
			}
			return []runner.Operation{op}, nil
		})
	},
}

// historyFetchOp resolves ref against the local thread log
func historyFetchOp(store *threadlog.Store, configName, ref string) (*runner.HistoryFetch, error) {
	if ref == "" {
		return nil, fmt.Errorf("no thread given: pass a thread ID or set thread_id in the config file")
	}
	threadID, err := store.ResolveThreadID(configName, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving thread '%s': %w", ref, err)
	}
	return &runner.HistoryFetch{ThreadID: threadID, JSON: historyJSON}, nil
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the messages as JSON")
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/runner"
	"github.com/longkey1/aiproj/internal/foundry"
	"github.com/spf13/cobra"
)

var (
	runOps      []string
	runParallel bool
	runMessage  string
	runThread   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run several operations against the selected configuration",
	Long: `Run a list of operations against the selected configuration. Each
operation is independent: a failure is reported and the next one still runs.

Available operations: chat, agent, upload, history.
Operations default to "operations" of the config file, for example:
  operations = ["chat", "agent", "upload"]

The chat and agent operations share one message, taken from --message or
read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(os.Stdout)
		if err != nil {
			return err
		}

		requested := s.plan.Operations
		if cmd.Flags().Changed("ops") {
			requested = runOps
		}
		names, err := runner.ParseOperationNames(requested)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(os.Stdout, "no operations requested")
			return nil
		}

		parallel := s.plan.Parallel
		if cmd.Flags().Changed("parallel") {
			parallel = runParallel
		}

		store, err := s.threadStore()
		if err != nil {
			return err
		}

		return s.execute(cmd.Context(), parallel, func(cfg config.Configuration) ([]runner.Operation, error) {
			message := runMessage
			needsMessage := slices.Contains(names, runner.OpChat) ||
				(slices.Contains(names, runner.OpAgent) && cfg.HasAgent())
			if message == "" && needsMessage {
				message, err = readMessage(nil, "Ask me anything... ")
				if err != nil {
					return nil, err
				}
			}

			ops := make([]runner.Operation, 0, len(names))
			for _, name := range names {
				switch name {
				case runner.OpChat:
					ops = append(ops, &runner.ChatTest{Message: message})
				case runner.OpAgent:
					ops = append(ops, &runner.AgentChat{Message: message, Recorder: store, Logger: s.logger})
				case runner.OpUpload:
					op, err := datasetUploadOp(s.plan)
					if err != nil {
						return nil, err
					}
					ops = append(ops, op)
				case runner.OpHistory:
					ref := s.plan.ThreadID
					if runThread != "" {
						ref = runThread
					}
					op, err := historyFetchOp(store, cfg.Name, ref)
					if err != nil {
						ops = append(ops, &unresolvedOp{name: runner.OpHistory, title: "Fetching Conversation History", err: err})
						continue
					}
					ops = append(ops, op)
				}
			}
			return ops, nil
		})
	},
}

// unresolvedOp reports an operation whose input could not be prepared, so
// the failure is isolated like any other.
type unresolvedOp struct {
	name  string
	title string
	err   error
}

func (o *unresolvedOp) Name() string  { return o.name }
func (o *unresolvedOp) Title() string { return o.title }

func (o *unresolvedOp) Run(context.Context, config.Configuration, *foundry.Client) (string, error) {
	return "", o.err
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&runOps, "ops", "o", nil, "Operations to run (comma-separated)")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "Run the operations concurrently")
	runCmd.Flags().StringVarP(&runMessage, "message", "m", "", "Message sent by the chat and agent operations")
	runCmd.Flags().StringVar(&runThread, "thread", "", "Thread fetched by the history operation")
}

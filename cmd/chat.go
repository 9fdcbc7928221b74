/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	promptpkg "github.com/longkey1/aiproj/internal/aiproj/prompt"
	"github.com/longkey1/aiproj/internal/aiproj/runner"
	"github.com/spf13/cobra"
)

var (
	prompt   string
	argFlags []string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Test chat completion with the selected configuration",
	Long: `Send a single message to the chat model of the selected configuration
and print the response.

If no message is provided as an argument, it reads from stdin.

The prompt file should be in TOML format with the following structure:
system = "System prompt with optional {{input}} placeholder"
user = "User prompt with optional {{input}} placeholder"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(os.Stderr)
		if err != nil {
			return err
		}

		return s.execute(cmd.Context(), false, func(cfg config.Configuration) ([]runner.Operation, error) {
			message, err := readMessage(args, "Ask me anything... ")
			if err != nil {
				return nil, err
			}
			rendered, err := promptpkg.Render(message, prompt, s.plan.PromptDirs, argFlags)
			if err != nil {
				return nil, fmt.Errorf("formatting message with prompt: %w", err)
			}
			return []runner.Operation{&runner.ChatTest{Message: rendered.User, System: rendered.System}}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	chatCmd.Flags().StringArrayVar(&argFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
}

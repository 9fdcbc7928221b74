/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/spf13/cobra"
)

// configsCmd represents the configs command
var configsCmd = &cobra.Command{
	Use:   "configs [name...]",
	Short: "Resolve and display configurations",
	Long: `Resolve the named configurations from the environment and display them.
Without arguments the 'configs' list of the config file is used.

A configuration is available when both PROJECT_ENDPOINT_<NAME> and
CHAT_MODEL_<NAME> are set. Missing optional settings only disable the
operations that need them.

Examples:
  aiproj configs            # Resolve the configured list
  aiproj configs TEST PROD  # Resolve TEST and PROD`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := config.LoadPlan()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if len(args) > 0 {
			plan.Configs = args
		}

		set, err := resolveConfigs(plan, "", os.Stdout)
		if err != nil {
			return err
		}
		if len(set.Configs) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODEL\tAPI VERSION\tAGENT\tCONNECTION")
		fmt.Fprintln(w, "----\t-----\t-----------\t-----\t----------")
		for _, cfg := range set.Configs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cfg.Name,
				cfg.ChatModel,
				cfg.APIVersion,
				orDash(cfg.AgentID),
				orDash(cfg.ConnectionName))
		}
		return w.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configsCmd)
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/longkey1/aiproj/internal/aiproj/threadlog"
	"github.com/spf13/cobra"
)

var threadsConfig string

// threadsCmd represents the threads command
var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List threads recorded by agent runs",
	Long: `List the threads created by "aiproj agent", newest first.

The ID column can be passed (or abbreviated to its first 4+ characters)
to "aiproj history".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := threadlog.DefaultDir()
		if err != nil {
			return err
		}
		records, err := threadlog.NewStore(dir).List()
		if err != nil {
			return fmt.Errorf("listing threads: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCONFIG\tTHREAD\tAGENT\tSTATUS\tCREATED")
		shown := 0
		for _, rec := range records {
			if threadsConfig != "" && rec.Config != threadsConfig {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.GetShortID(),
				rec.Config,
				rec.ThreadID,
				orDash(rec.AgentID),
				orDash(rec.RunStatus),
				rec.CreatedAt.Format("2006-01-02 15:04:05"))
			shown++
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if shown == 0 {
			fmt.Fprintln(os.Stderr, "No threads recorded")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(threadsCmd)

	threadsCmd.Flags().StringVar(&threadsConfig, "for", "", "Only list threads of this configuration")
}

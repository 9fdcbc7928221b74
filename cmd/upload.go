/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/runner"
	"github.com/spf13/cobra"
)

var (
	datasetName    string
	datasetVersion string
	datasetFile    string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a file as a dataset with the selected configuration",
	Long: `Upload a local file and register it as a dataset version of the selected
project, stored through the connection named by CONNECTION_NAME_<NAME>.

Without a connection name the upload is skipped.
Name, version and file default to dataset_name, dataset_version and
dataset_file of the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(os.Stderr)
		if err != nil {
			return err
		}

		return s.execute(cmd.Context(), false, func(cfg config.Configuration) ([]runner.Operation, error) {
			op, err := datasetUploadOp(s.plan)
			if err != nil {
				return nil, err
			}
			return []runner.Operation{op}, nil
		})
	},
}

// datasetUploadOp builds the upload operation, flags taking precedence over the plan
func datasetUploadOp(plan *config.Plan) (*runner.DatasetUpload, error) {
	op := &runner.DatasetUpload{
		DatasetName:    plan.DatasetName,
		DatasetVersion: plan.DatasetVersion,
		FilePath:       plan.DatasetFile,
	}
	if datasetName != "" {
		op.DatasetName = datasetName
	}
	if datasetVersion != "" {
		op.DatasetVersion = datasetVersion
	}
	if datasetFile != "" {
		op.FilePath = datasetFile
	}

	if op.FilePath != "" {
		path, err := config.ResolvePath(op.FilePath)
		if err != nil {
			return nil, fmt.Errorf("resolving dataset file: %w", err)
		}
		op.FilePath = path
	}
	return op, nil
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&datasetName, "name", "", "Dataset name")
	uploadCmd.Flags().StringVar(&datasetVersion, "version", "", "Dataset version")
	uploadCmd.Flags().StringVarP(&datasetFile, "file", "f", "", "Path of the file to upload")
}

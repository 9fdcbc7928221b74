/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	verbose    bool
	useConfig  string
	envFileArg string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aiproj",
	Short: "A CLI tool for exercising Azure AI Foundry projects",
	Long: `aiproj exercises the chat completion, agent and dataset APIs of one or more
Azure AI Foundry projects.

Each project is a named configuration read from environment variables
(or a .env file):

  PROJECT_ENDPOINT_<NAME>   required
  CHAT_MODEL_<NAME>         required
  AGENT_ID_<NAME>           optional, enables agent chat
  CONNECTION_NAME_<NAME>    optional, enables dataset upload
  API_VERSION_<NAME>        optional, defaults to ` + config.DefaultAPIVersion + `

Which configurations to load and which one to use are read from a TOML file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/aiproj/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&useConfig, "use", "u", "", "configuration name to use (overrides 'selected')")
	rootCmd.PersistentFlags().StringVar(&envFileArg, "env-file", "", "dotenv file with configuration variables (overrides 'env_file')")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("AIPROJ")
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	userConfigDir := filepath.Join(home, ".config", "aiproj")

	defaultPlan := config.NewDefaultPlan(filepath.Join(userConfigDir, "prompts"))

	viper.SetDefault("configs", defaultPlan.Configs)
	viper.SetDefault("selected", defaultPlan.Selected)
	viper.SetDefault("operations", defaultPlan.Operations)
	viper.SetDefault("parallel", defaultPlan.Parallel)
	viper.SetDefault("env_file", defaultPlan.EnvFile)
	viper.SetDefault("dataset_name", defaultPlan.DatasetName)
	viper.SetDefault("dataset_version", defaultPlan.DatasetVersion)
	viper.SetDefault("dataset_file", defaultPlan.DatasetFile)
	viper.SetDefault("thread_id", defaultPlan.ThreadID)
	viper.SetDefault("prompt_dirs", defaultPlan.PromptDirs)
	viper.SetDefault("poll_interval", defaultPlan.PollInterval)
	viper.SetDefault("request_timeout", defaultPlan.RequestTimeout)
	viper.SetDefault("log_level", defaultPlan.LogLevel)
	viper.SetDefault("log_format", defaultPlan.LogFormat)

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		// Load system-wide config first (lower priority)
		viper.AddConfigPath("/etc/aiproj")
		viper.AddConfigPath("/usr/local/etc/aiproj")
		viper.SetConfigType("toml")
		viper.SetConfigName("config")

		systemConfigLoaded := false
		if err := viper.ReadInConfig(); err == nil {
			systemConfigLoaded = true
			if verbose {
				fmt.Fprintln(os.Stderr, "Loaded system-wide config:", viper.ConfigFileUsed())
			}
		}

		// Load user config (higher priority) - merge with system config
		viper.AddConfigPath(userConfigDir)
		if systemConfigLoaded {
			if err := viper.MergeInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error merging user config file: %v\n", err)
				}
			} else if verbose {
				fmt.Fprintln(os.Stderr, "Merged user config:", viper.ConfigFileUsed())
			}
		} else {
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
				}
			}
		}
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		fmt.Fprintln(os.Stderr, "  configs:", viper.GetStringSlice("configs"))
		fmt.Fprintln(os.Stderr, "  selected:", viper.GetString("selected"))
		fmt.Fprintln(os.Stderr, "  env_file:", viper.GetString("env_file"))
	}
}

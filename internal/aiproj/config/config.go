package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIVersion is used when API_VERSION_<NAME> is not set
const DefaultAPIVersion = "2024-12-01-preview"

// Environment variable prefixes. The configuration name is appended to each
// prefix (e.g., PROJECT_ENDPOINT_TEST).
const (
	EndpointPrefix       = "PROJECT_ENDPOINT_"
	ChatModelPrefix      = "CHAT_MODEL_"
	AgentIDPrefix        = "AGENT_ID_"
	ConnectionNamePrefix = "CONNECTION_NAME_"
	APIVersionPrefix     = "API_VERSION_"
)

// Configuration is one named bundle of project settings. It is built once by
// Resolve and never modified afterwards.
type Configuration struct {
	Name           string
	Endpoint       string
	ChatModel      string
	AgentID        string // Optional; empty disables agent chat
	ConnectionName string // Optional; empty disables dataset upload
	APIVersion     string
}

// HasAgent reports whether an agent identifier is configured
func (c Configuration) HasAgent() bool {
	return c.AgentID != ""
}

// HasConnection reports whether a storage connection name is configured
func (c Configuration) HasConnection() bool {
	return c.ConnectionName != ""
}

func (c Configuration) String() string {
	return fmt.Sprintf("Config: %s, Endpoint: %s, Model: %s", c.Name, c.Endpoint, c.ChatModel)
}

// Plan holds the settings of a run: which configurations to resolve, which
// one to select, and the inputs of each operation.
type Plan struct {
	Configs        []string `toml:"configs" mapstructure:"configs"`
	Selected       string   `toml:"selected" mapstructure:"selected"`
	Operations     []string `toml:"operations" mapstructure:"operations"` // Empty = none
	Parallel       bool     `toml:"parallel" mapstructure:"parallel"`
	EnvFile        string   `toml:"env_file" mapstructure:"env_file"`
	DatasetName    string   `toml:"dataset_name" mapstructure:"dataset_name"`
	DatasetVersion string   `toml:"dataset_version" mapstructure:"dataset_version"`
	DatasetFile    string   `toml:"dataset_file" mapstructure:"dataset_file"`
	ThreadID       string   `toml:"thread_id" mapstructure:"thread_id"`
	PromptDirs     []string `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	PollInterval   string   `toml:"poll_interval" mapstructure:"poll_interval"`     // Go duration (e.g., "1s")
	RequestTimeout string   `toml:"request_timeout" mapstructure:"request_timeout"` // Go duration; "0" disables
	LogLevel       string   `toml:"log_level" mapstructure:"log_level"`
	LogFormat      string   `toml:"log_format" mapstructure:"log_format"`
}

// NewDefaultPlan returns a new Plan with default values
func NewDefaultPlan(promptDir string) *Plan {
	return &Plan{
		Configs:        []string{"TEST", "DEV"},
		Selected:       "TEST",
		Operations:     []string{},
		Parallel:       false,
		EnvFile:        ".env",
		DatasetName:    "Test_dataset_1",
		DatasetVersion: "1.0.0",
		DatasetFile:    "Northwind_Health_Plus_Benefits_Details.pdf",
		ThreadID:       "",
		PromptDirs:     []string{promptDir},
		PollInterval:   "1s",
		RequestTimeout: "120s",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// PollIntervalDuration parses PollInterval, falling back to one second
func (p *Plan) PollIntervalDuration() (time.Duration, error) {
	return parseDuration("poll_interval", p.PollInterval, time.Second)
}

// RequestTimeoutDuration parses RequestTimeout. Zero means no timeout.
func (p *Plan) RequestTimeoutDuration() (time.Duration, error) {
	return parseDuration("request_timeout", p.RequestTimeout, 0)
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	if value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", field, value)
	}
	return d, nil
}

// LoadPlan loads the plan from viper
func LoadPlan() (*Plan, error) {
	plan := &Plan{}
	if err := viper.Unmarshal(plan); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	for i, dir := range plan.PromptDirs {
		absPath, err := ResolvePath(dir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %v", dir, err)
		}
		plan.PromptDirs[i] = absPath
	}

	for i, name := range plan.Configs {
		plan.Configs[i] = strings.TrimSpace(name)
	}
	plan.Selected = strings.TrimSpace(plan.Selected)

	return plan, nil
}

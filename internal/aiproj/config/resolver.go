package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/spf13/viper"
)

// Source provides raw setting values by key.
type Source interface {
	// Lookup returns the value for key and whether it was set.
	Lookup(key string) (string, bool)
}

// EnvSource reads settings from the process environment
type EnvSource struct{}

// Lookup implements Source
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource reads settings from a fixed map
type MapSource map[string]string

// Lookup implements Source
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ViperSource overlays an environment Source on top of settings read by
// viper (typically a .env file). Values present in the environment win.
type ViperSource struct {
	v   *viper.Viper
	env Source
}

// NewViperSource creates a Source backed by v. env may be nil, in which
// case only v is consulted.
func NewViperSource(v *viper.Viper, env Source) *ViperSource {
	return &ViperSource{v: v, env: env}
}

// Lookup implements Source
func (s *ViperSource) Lookup(key string) (string, bool) {
	if s.env != nil {
		if value, ok := s.env.Lookup(key); ok {
			return value, true
		}
	}
	if s.v == nil || !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}

// LoadDotenv reads a dotenv file into a new viper instance.
// A missing file yields an empty instance and no error.
func LoadDotenv(path string) (*viper.Viper, error) {
	v := viper.New()
	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("error reading env file: %w", err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error parsing env file '%s': %w", path, err)
	}
	return v, nil
}

// Resolve reads the settings of the named configuration from src.
// PROJECT_ENDPOINT_<name> and CHAT_MODEL_<name> are required; a missing or
// empty value returns a *aiproj.ConfigurationError naming the variable.
func Resolve(src Source, name string) (Configuration, error) {
	get := func(prefix string) string {
		value, _ := src.Lookup(prefix + name)
		return value
	}

	cfg := Configuration{
		Name:           name,
		Endpoint:       get(EndpointPrefix),
		ChatModel:      get(ChatModelPrefix),
		AgentID:        get(AgentIDPrefix),
		ConnectionName: get(ConnectionNamePrefix),
		APIVersion:     get(APIVersionPrefix),
	}

	if cfg.Endpoint == "" {
		return Configuration{}, &aiproj.ConfigurationError{Config: name, Field: EndpointPrefix + name}
	}
	if cfg.ChatModel == "" {
		return Configuration{}, &aiproj.ConfigurationError{Config: name, Field: ChatModelPrefix + name}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	return cfg, nil
}

// Set is the outcome of resolving a batch of configuration names.
type Set struct {
	// Configs holds the successfully resolved configurations in input order.
	Configs []Configuration
	// Errors holds one error per failed name, in input order.
	Errors []error
}

// ResolveAll resolves every name independently. A failure for one name is
// recorded in Set.Errors and never prevents the others from resolving.
// Repeated names are resolved once.
func ResolveAll(src Source, names []string) *Set {
	set := &Set{}
	seen := make(map[string]bool)
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		cfg, err := Resolve(src, name)
		if err != nil {
			set.Errors = append(set.Errors, err)
			continue
		}
		set.Configs = append(set.Configs, cfg)
	}
	return set
}

// Lookup returns the resolved configuration with the given name
func (s *Set) Lookup(name string) (Configuration, bool) {
	if s == nil {
		return Configuration{}, false
	}
	for _, cfg := range s.Configs {
		if cfg.Name == name {
			return cfg, true
		}
	}
	return Configuration{}, false
}

// Names returns the names of the resolved configurations
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Configs))
	for _, cfg := range s.Configs {
		names = append(names, cfg.Name)
	}
	return names
}

// ResolvePath converts a relative path to absolute path if needed
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	// Relative paths are taken from the plan file's directory
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %v", err)
		}
		return filepath.Join(cwd, path), nil
	}

	configDir := filepath.Dir(configFile)
	if !filepath.IsAbs(configDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %v", err)
		}
		configDir = filepath.Join(cwd, configDir)
	}

	return filepath.Join(configDir, path), nil
}

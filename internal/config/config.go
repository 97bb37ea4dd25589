// Package config loads podlogs.yaml: the log source, viewer tuning, logging
// and the engine emulator's containers.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level podlogs configuration
type Config struct {
	EnvFile string       `yaml:"env_file"`
	Source  SourceConfig `yaml:"source"`
	View    ViewConfig   `yaml:"view"`
	Log     LogConfig    `yaml:"log"`
	Serve   ServeConfig  `yaml:"serve"`
}

// SourceConfig selects where logs are read from
type SourceConfig struct {
	Kind       string `yaml:"kind"`
	URL        string `yaml:"url"`
	APIVersion string `yaml:"api_version"`
}

// ViewConfig tunes the log view
type ViewConfig struct {
	Tail           int    `yaml:"tail"`
	BatchSize      int    `yaml:"batch_size"`
	AnchorOffset   int    `yaml:"anchor_offset"`
	Boundary       string `yaml:"boundary"`
	EscapeMarkup   *bool  `yaml:"escape_markup,omitempty"` // nil = true
	ShowTimestamps bool   `yaml:"show_timestamps"`
	StatusPoll     string `yaml:"status_poll"`
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ServeConfig defines the engine emulator
type ServeConfig struct {
	Host       string                     `yaml:"host"`
	Port       int                        `yaml:"port"`
	BufferSize int                        `yaml:"buffer_size"`
	Containers map[string]ContainerConfig `yaml:"containers"`
}

// ContainerConfig represents an emulated container that can be either
// a simple string command or an expanded form with additional options
type ContainerConfig struct {
	Cmd        string            `yaml:"cmd"`
	Env        map[string]string `yaml:"env"`
	EnvFile    string            `yaml:"env_file"`
	AutoStart  *bool             `yaml:"autostart,omitempty"` // nil = true
	StopSignal string            `yaml:"stop_signal"`
}

// rawConfig is used for initial YAML parsing to handle the flexible container format
type rawConfig struct {
	EnvFile string       `yaml:"env_file"`
	Source  SourceConfig `yaml:"source"`
	View    ViewConfig   `yaml:"view"`
	Log     LogConfig    `yaml:"log"`
	Serve   struct {
		Host       string                 `yaml:"host"`
		Port       int                    `yaml:"port"`
		BufferSize int                    `yaml:"buffer_size"`
		Containers map[string]interface{} `yaml:"containers"`
	} `yaml:"serve"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	// serve runs the commands in this file
	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	config := &Config{
		EnvFile: raw.EnvFile,
		Source:  raw.Source,
		View:    raw.View,
		Log:     raw.Log,
		Serve: ServeConfig{
			Host:       raw.Serve.Host,
			Port:       raw.Serve.Port,
			BufferSize: raw.Serve.BufferSize,
			Containers: make(map[string]ContainerConfig),
		},
	}

	for name, value := range raw.Serve.Containers {
		c, err := parseContainerConfig(value)
		if err != nil {
			return nil, fmt.Errorf("container %q: %w", name, err)
		}
		config.Serve.Containers[name] = c
	}

	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func applyDefaults(c *Config) {
	if c.Source.Kind == "" {
		c.Source.Kind = "podman"
	}
	if c.Source.APIVersion == "" {
		c.Source.APIVersion = constants.DefaultAPIVersion
	}
	if c.View.Tail == 0 {
		c.View.Tail = constants.DefaultTailLines
	}
	if c.View.BatchSize == 0 {
		c.View.BatchSize = constants.DefaultHistoryBatch
	}
	if c.View.AnchorOffset == 0 {
		c.View.AnchorOffset = constants.DefaultAnchorOffset
	}
	if c.View.Boundary == "" {
		c.View.Boundary = "advance"
	}
	if c.View.StatusPoll == "" {
		c.View.StatusPoll = constants.DefaultStatusPoll.String()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Serve.Host == "" {
		c.Serve.Host = constants.DefaultServeHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = constants.DefaultServePort
	}
	if c.Serve.BufferSize == 0 {
		c.Serve.BufferSize = constants.DefaultLogBufferSize
	}
	if c.Serve.Containers == nil {
		c.Serve.Containers = make(map[string]ContainerConfig)
	}
}

// parseContainerConfig handles both simple and expanded container definitions
func parseContainerConfig(value interface{}) (ContainerConfig, error) {
	switch v := value.(type) {
	case string:
		// Simple form: web: ./server
		return ContainerConfig{Cmd: v}, nil
	case map[string]interface{}:
		data, err := yaml.Marshal(v)
		if err != nil {
			return ContainerConfig{}, fmt.Errorf("marshaling container config: %w", err)
		}
		var c ContainerConfig
		if err := yaml.Unmarshal(data, &c); err != nil {
			return ContainerConfig{}, fmt.Errorf("unmarshaling container config: %w", err)
		}
		return c, nil
	default:
		return ContainerConfig{}, fmt.Errorf("invalid container configuration type: %T", value)
	}
}

// EscapesMarkup reports whether decoded text is escaped for the markup surface
func (v ViewConfig) EscapesMarkup() bool {
	return v.EscapeMarkup == nil || *v.EscapeMarkup
}

// StatusPollInterval returns the parsed poll interval, falling back to the default
func (v ViewConfig) StatusPollInterval() time.Duration {
	d, err := time.ParseDuration(v.StatusPoll)
	if err != nil || d <= 0 {
		return constants.DefaultStatusPoll
	}
	return d
}

// ToDomainContainers converts the emulator containers, loading their env
// files relative to configDir. The result is sorted by name.
func (c *Config) ToDomainContainers(configDir string) ([]domain.ContainerConfig, error) {
	names := make([]string, 0, len(c.Serve.Containers))
	for name := range c.Serve.Containers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.ContainerConfig, 0, len(names))
	for _, name := range names {
		cc := c.Serve.Containers[name]
		env, err := LoadContainerEnv(c.EnvFile, cc.EnvFile, cc.Env, configDir)
		if err != nil {
			return nil, fmt.Errorf("container %q: %w", name, err)
		}
		out = append(out, domain.ContainerConfig{
			Name:      name,
			Cmd:       cc.Cmd,
			Env:       env,
			AutoStart:  cc.AutoStart == nil || *cc.AutoStart,
			StopSignal: cc.StopSignal,
		})
	}
	return out, nil
}

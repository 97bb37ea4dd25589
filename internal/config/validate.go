package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charliek/podlogs/internal/domain"
)

var (
	sourceKinds = []string{"podman", "docker", "file"}
	boundaries  = []string{"advance", "fixed"}
	logLevels   = []string{"debug", "info", "warn", "error"}
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors
func Validate(config *Config) error {
	var errs []string

	if !oneOf(config.Source.Kind, sourceKinds) {
		errs = append(errs, fmt.Sprintf("source.kind: must be one of %s, got %q", strings.Join(sourceKinds, ", "), config.Source.Kind))
	}

	if config.View.Tail < 0 {
		errs = append(errs, fmt.Sprintf("view.tail: must be non-negative, got %d", config.View.Tail))
	}
	if config.View.BatchSize < 0 {
		errs = append(errs, fmt.Sprintf("view.batch_size: must be positive, got %d", config.View.BatchSize))
	}
	if config.View.AnchorOffset < 0 {
		errs = append(errs, fmt.Sprintf("view.anchor_offset: must be non-negative, got %d", config.View.AnchorOffset))
	}
	if !oneOf(config.View.Boundary, boundaries) {
		errs = append(errs, fmt.Sprintf("view.boundary: must be one of %s, got %q", strings.Join(boundaries, ", "), config.View.Boundary))
	}
	if d, err := time.ParseDuration(config.View.StatusPoll); err != nil || d <= 0 {
		errs = append(errs, fmt.Sprintf("view.status_poll: must be a positive duration, got %q", config.View.StatusPoll))
	}

	if !oneOf(config.Log.Level, logLevels) {
		errs = append(errs, fmt.Sprintf("log.level: must be one of %s, got %q", strings.Join(logLevels, ", "), config.Log.Level))
	}

	if config.Serve.Port < 0 || config.Serve.Port > 65535 {
		errs = append(errs, fmt.Sprintf("serve.port: must be between 0 and 65535, got %d", config.Serve.Port))
	}
	if config.Serve.BufferSize < 0 {
		errs = append(errs, fmt.Sprintf("serve.buffer_size: must be positive, got %d", config.Serve.BufferSize))
	}

	for name, c := range config.Serve.Containers {
		if err := ValidateContainerName(name); err != nil {
			errs = append(errs, fmt.Sprintf("serve.containers.%s: %v", name, err))
		}
		if c.Cmd == "" {
			errs = append(errs, fmt.Sprintf("serve.containers.%s.cmd: command is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// ValidateContainerName checks that a name can appear in an API path
func ValidateContainerName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "container name cannot be empty"}
	}
	if strings.ContainsAny(name, " \t\n/\\?#%") {
		return &ValidationError{Field: "name", Message: "container name cannot contain whitespace, path separators or URL delimiters"}
	}
	return nil
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

// Environment variables that override the source section
const (
	EnvSourceKind    = "PODLOGS_SOURCE_KIND"
	EnvSourceURL     = "PODLOGS_SOURCE_URL"
	EnvContainerHost = "CONTAINER_HOST"
	EnvDockerHost    = "DOCKER_HOST"
)

// LoadEnvFile reads a .env file and returns the variables as a map
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file not found: %s", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	return env, nil
}

// MergeEnv merges multiple environment maps in order, with later maps taking precedence
func MergeEnv(envMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, env := range envMaps {
		for k, v := range env {
			result[k] = v
		}
	}
	return result
}

// LoadContainerEnv loads and merges environment variables for an emulated container
// Priority (lowest to highest):
// 1. Global env_file
// 2. Container env_file
// 3. Container env variables
func LoadContainerEnv(globalEnvFile, containerEnvFile string, containerEnv map[string]string, configDir string) (map[string]string, error) {
	var globalEnv, fileEnv map[string]string
	var err error

	if globalEnvFile != "" {
		globalEnv, err = LoadEnvFile(resolvePath(globalEnvFile, configDir))
		if err != nil {
			return nil, fmt.Errorf("loading global env file: %w", err)
		}
	}

	if containerEnvFile != "" {
		fileEnv, err = LoadEnvFile(resolvePath(containerEnvFile, configDir))
		if err != nil {
			return nil, fmt.Errorf("loading container env file: %w", err)
		}
	}

	return MergeEnv(globalEnv, fileEnv, containerEnv), nil
}

// ApplyEnvOverrides applies source overrides from the process environment,
// falling back to the global env_file. Process variables win, as with godotenv.Load.
func ApplyEnvOverrides(c *Config, configDir string) error {
	fileEnv, err := LoadEnvFile(resolvePath(c.EnvFile, configDir))
	if err != nil {
		return fmt.Errorf("loading global env file: %w", err)
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	}
	applyOverrides(c, lookup)
	return Validate(c)
}

func applyOverrides(c *Config, lookup func(string) string) {
	if v := lookup(EnvSourceKind); v != "" {
		c.Source.Kind = v
	}
	if v := lookup(EnvSourceURL); v != "" {
		c.Source.URL = v
	}
	if c.Source.URL != "" {
		return
	}
	switch c.Source.Kind {
	case "podman":
		c.Source.URL = lookup(EnvContainerHost)
	case "docker":
		// an empty URL lets the docker client read DOCKER_HOST itself
		c.Source.URL = lookup(EnvDockerHost)
	}
}

// resolvePath resolves a potentially relative path against a base directory
func resolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	candidates := []string{
		"podlogs.yaml",
		"podlogs.yml",
		".podlogs.yaml",
		".podlogs.yml",
	}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", fmt.Errorf("no config file found (tried: %v)", candidates)
}

// CheckFilePermissions checks if a file has secure permissions.
// On Unix-like systems, it verifies the file is not world-writable.
func CheckFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	// others have write (0002)
	if info.Mode().Perm()&0002 != 0 {
		return fmt.Errorf("config file %s has insecure permissions: world-writable files can be modified by any user. Please run: chmod o-w %s", path, path)
	}

	return nil
}

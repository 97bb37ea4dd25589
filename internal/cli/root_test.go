package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/podlogs/internal/config"
	"github.com/charliek/podlogs/internal/domain"
)

// isolate clears flag state and source environment overrides
func isolate(t *testing.T) {
	t.Helper()
	configPath, sourceKind, sourceURL, emulator, verbose = "", "", "", false, false
	exportOutput, exportTimestamps, exportGrep, exportRegex = "", false, "", false
	exportSince, exportUntil = "", ""
	statusJSON = false
	servePort = 0

	for _, key := range []string{config.EnvSourceKind, config.EnvSourceURL, config.EnvContainerHost, config.EnvDockerHost} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

// execute runs the root command with args and returns its output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "podlogs version dev\n", out)
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, _, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "podman", cfg.Source.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 512, cfg.View.Tail)
}

func TestLoadConfig_FindsFile(t *testing.T) {
	isolate(t)
	writeFile(t, "podlogs.yaml", `
source:
  kind: docker
  url: tcp://127.0.0.1:2375
view:
  tail: 64
`)

	cfg, dir, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "docker", cfg.Source.Kind)
	assert.Equal(t, "tcp://127.0.0.1:2375", cfg.Source.URL)
	assert.Equal(t, 64, cfg.View.Tail)
	assert.True(t, filepath.IsAbs(dir))
}

func TestLoadConfig_FlagsWin(t *testing.T) {
	isolate(t)
	writeFile(t, "podlogs.yaml", `
source:
  kind: docker
  url: tcp://127.0.0.1:2375
`)
	t.Setenv(config.EnvSourceKind, "podman")

	sourceKind = "file"
	verbose = true
	cfg, _, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Source.Kind)
	assert.Empty(t, cfg.Source.URL, "url of another engine is dropped")
	assert.Equal(t, "debug", cfg.Log.Level)

	sourceURL = "unix:///tmp/podman.sock"
	cfg, _, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "unix:///tmp/podman.sock", cfg.Source.URL)
}

func TestLoadConfig_Errors(t *testing.T) {
	isolate(t)

	configPath = "missing.yaml"
	_, _, err := loadConfig()
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)

	configPath = ""
	sourceKind = "kubernetes"
	_, _, err = loadConfig()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNewLogger(t *testing.T) {
	isolate(t)

	_, _, err := newLogger(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "podlogs.log")
	logger, closeLog, err := newLogger(config.LogConfig{Level: "warn", File: path}, true)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "container", "web")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "msg=shown container=web")

	logger, closeLog, err = newLogger(config.LogConfig{Level: "debug"}, true)
	require.NoError(t, err)
	defer closeLog()
	assert.True(t, logger.Enabled(t.Context(), -4))
}

func TestViewOptions(t *testing.T) {
	cfg := config.Default()
	assert.Len(t, viewOptions(cfg.View, nil), 6)
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{name: "empty", value: "", want: time.Time{}},
		{name: "rfc3339", value: "2024-01-01T10:00:00Z", want: now.Add(-2 * time.Hour)},
		{name: "duration", value: "10m", want: now.Add(-10 * time.Minute)},
		{name: "padded", value: " 1h ", want: now.Add(-time.Hour)},
		{name: "invalid", value: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimeFlag(tt.value, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)
	_, err := execute(t, "tail")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown command"), err.Error())
	assert.False(t, errors.Is(err, domain.ErrInvalidConfig))
}

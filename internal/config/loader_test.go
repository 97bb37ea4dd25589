package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/podlogs/internal/domain"
)

func TestLoadEnvFile(t *testing.T) {
	t.Run("empty path returns nil", func(t *testing.T) {
		env, err := LoadEnvFile("")
		assert.NoError(t, err)
		assert.Nil(t, env)
	})

	t.Run("loads env file", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("FOO=bar\nBAZ=qux"), 0644))

		env, err := LoadEnvFile(envPath)
		require.NoError(t, err)
		assert.Equal(t, "bar", env["FOO"])
		assert.Equal(t, "qux", env["BAZ"])
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadEnvFile("nonexistent.env")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestMergeEnv(t *testing.T) {
	result := MergeEnv(map[string]string{"A": "1", "B": "2"}, nil, map[string]string{"B": "3"})
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, result)
}

func TestLoadContainerEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "global.env"), []byte("A=global\nB=global\nC=global"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web.env"), []byte("B=file\nC=file"), 0644))

	env, err := LoadContainerEnv("global.env", "web.env", map[string]string{"C": "inline"}, dir)
	require.NoError(t, err)
	assert.Equal(t, "global", env["A"])
	assert.Equal(t, "file", env["B"])
	assert.Equal(t, "inline", env["C"])

	_, err = LoadContainerEnv("", "missing.env", nil, dir)
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		url      string
		env      map[string]string
		wantKind string
		wantURL  string
	}{
		{"nothing set", "podman", "", nil, "podman", ""},
		{"kind override", "podman", "", map[string]string{EnvSourceKind: "docker", EnvDockerHost: "tcp://d:2375"}, "docker", "tcp://d:2375"},
		{"url override wins", "podman", "unix:///a.sock", map[string]string{EnvSourceURL: "unix:///b.sock", EnvContainerHost: "unix:///c.sock"}, "podman", "unix:///b.sock"},
		{"container host for podman", "podman", "", map[string]string{EnvContainerHost: "unix:///c.sock"}, "podman", "unix:///c.sock"},
		{"configured url kept", "podman", "unix:///a.sock", map[string]string{EnvContainerHost: "unix:///c.sock"}, "podman", "unix:///a.sock"},
		{"docker host ignored for podman", "podman", "", map[string]string{EnvDockerHost: "tcp://d:2375"}, "podman", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Source.Kind = tt.kind
			cfg.Source.URL = tt.url
			applyOverrides(cfg, func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.wantKind, cfg.Source.Kind)
			assert.Equal(t, tt.wantURL, cfg.Source.URL)
		})
	}
}

func TestApplyEnvOverrides_EnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvSourceKind+"=file\n"), 0644))
	t.Setenv(EnvSourceKind, "")
	os.Unsetenv(EnvSourceKind)

	cfg := Default()
	cfg.EnvFile = ".env"
	require.NoError(t, ApplyEnvOverrides(cfg, dir))
	assert.Equal(t, "file", cfg.Source.Kind)

	t.Setenv(EnvSourceKind, "docker")
	require.NoError(t, ApplyEnvOverrides(cfg, dir))
	assert.Equal(t, "docker", cfg.Source.Kind)

	t.Setenv(EnvSourceKind, "bogus")
	assert.ErrorIs(t, ApplyEnvOverrides(cfg, dir), domain.ErrInvalidConfig)
}

func TestFindConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := FindConfigFile()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(".podlogs.yaml", []byte("{}"), 0644))
	path, err := FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, ".podlogs.yaml", path)
}

func TestCheckFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podlogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	assert.NoError(t, CheckFilePermissions(path))

	require.NoError(t, os.Chmod(path, 0646))
	assert.Error(t, CheckFilePermissions(path))
}

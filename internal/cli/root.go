// Package cli implements the podlogs command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/podlogs/internal/config"
	"github.com/charliek/podlogs/internal/instance"
	"github.com/charliek/podlogs/internal/logview"
	"github.com/charliek/podlogs/internal/source"
)

// Version is set during build
var Version = "dev"

// Global flags
var (
	configPath string
	sourceKind string
	sourceURL  string
	emulator   bool
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "podlogs",
	Short: "Live container log viewer",
	Long: `podlogs follows the log of a podman or docker container in the terminal.
It supports:
  - Live tail with sticky scrolling
  - Paging in older lines when scrolling to the top
  - ANSI colors rendered as terminal styles
  - Plain-text export with optional timestamps
  - A local engine emulator for development`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "podlogs version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: podlogs.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&sourceKind, "source", "", "Log source: podman, docker or file")
	rootCmd.PersistentFlags().StringVar(&sourceURL, "url", "", "Engine endpoint, e.g. unix:///run/podman/podman.sock")
	rootCmd.PersistentFlags().BoolVar(&emulator, "emulator", false, "Read logs from the podlogs serve instance of this directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetVersionTemplate("podlogs version {{.Version}}\n")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file, then applies environment and flag overrides.
// Without --config a missing podlogs.yaml means defaults.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		if found, err := config.FindConfigFile(); err == nil {
			path = found
		}
	}

	cfg := config.Default()
	configDir, err := os.Getwd()
	if err != nil {
		configDir = "."
	}
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			configDir = filepath.Dir(abs)
		}
	}

	if err := config.ApplyEnvOverrides(cfg, configDir); err != nil {
		return nil, "", err
	}

	if sourceKind != "" && sourceKind != cfg.Source.Kind {
		cfg.Source.Kind = sourceKind
		cfg.Source.URL = ""
	}
	if sourceURL != "" {
		cfg.Source.URL = sourceURL
	}
	if emulator {
		state, err := instance.Discover(configDir)
		if err != nil {
			return nil, "", fmt.Errorf("finding emulator in %s: %w", configDir, err)
		}
		if cfg.Source.Kind == string(source.KindFile) {
			cfg.Source.Kind = string(source.KindPodman)
		}
		cfg.Source.URL = state.URL()
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, configDir, nil
}

// newLogger builds the diagnostic logger. Interactive commands discard
// logs unless a file is configured.
func newLogger(cfg config.LogConfig, interactive bool) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	case interactive:
		w = io.Discard
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

// newSource creates the source for one container (or file)
func newSource(cfg *config.Config, name string, logger *slog.Logger) (source.Source, error) {
	kind, err := source.ParseKind(cfg.Source.Kind)
	if err != nil {
		return nil, err
	}
	return source.New(source.Target{
		Kind:       kind,
		URL:        cfg.Source.URL,
		APIVersion: cfg.Source.APIVersion,
		Name:       name,
	}, logger)
}

// viewOptions maps the view config onto logview options
func viewOptions(cfg config.ViewConfig, logger *slog.Logger) []logview.Option {
	return []logview.Option{
		logview.WithLogger(logger),
		logview.WithTail(cfg.Tail),
		logview.WithBatchSize(cfg.BatchSize),
		logview.WithAnchorOffset(float64(cfg.AnchorOffset)),
		logview.WithBoundaryPolicy(logview.BoundaryPolicy(cfg.Boundary)),
		logview.WithMarkupEscaping(cfg.EscapesMarkup()),
	}
}

// parseTimeFlag accepts an RFC 3339 time or a duration before now
func parseTimeFlag(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, errors.New("expected an RFC 3339 time or a duration like 10m")
	}
	return now.Add(-d), nil
}

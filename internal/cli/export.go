package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/podlogs/internal/export"
)

// Export command flags
var (
	exportOutput     string
	exportTimestamps bool
	exportGrep       string
	exportRegex      bool
	exportSince      string
	exportUntil      string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <container>",
	Short: "Write a container log to a file as plain text",
	Long: `Write the whole log of a container as plain text with colors removed.

Examples:
  podlogs export web                    # writes web.log
  podlogs export web -o - --timestamps  # prints to stdout
  podlogs export web --grep "level=error"
  podlogs export web --grep "5\d\d" --regex --since 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, - for stdout (default: <container>.log)")
	exportCmd.Flags().BoolVar(&exportTimestamps, "timestamps", false, "Prefix lines with their timestamp")
	exportCmd.Flags().StringVar(&exportGrep, "grep", "", "Keep only lines containing this pattern")
	exportCmd.Flags().BoolVar(&exportRegex, "regex", false, "Treat --grep as a regular expression")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "Oldest line to export (RFC 3339 or duration ago)")
	exportCmd.Flags().StringVar(&exportUntil, "until", "", "Export lines before this time (RFC 3339 or duration ago)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.Log, false)
	if err != nil {
		return err
	}
	defer closeLog()

	now := time.Now()
	since, err := parseTimeFlag(exportSince, now)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	until, err := parseTimeFlag(exportUntil, now)
	if err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}

	src, err := newSource(cfg, args[0], logger)
	if err != nil {
		return err
	}

	opts := export.Options{
		Timestamps: exportTimestamps,
		Pattern:    exportGrep,
		IsRegex:    exportRegex,
		Since:      since,
		Until:      until,
	}

	if exportOutput == "-" {
		_, err := export.Export(cmd.Context(), src, cmd.OutOrStdout(), opts)
		return err
	}

	path := exportOutput
	if path == "" {
		path = filepath.Base(args[0]) + ".log"
	}
	res, err := export.ToFile(cmd.Context(), src, path, opts)
	if err != nil {
		return err
	}
	if res.Skipped > 0 {
		logger.Warn("skipped lines without a timestamp", "count", res.Skipped)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d lines to %s\n", res.Written, path)
	return nil
}

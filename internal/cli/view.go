package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charliek/podlogs/internal/tui"
)

// viewCmd represents the view command
var viewCmd = &cobra.Command{
	Use:   "view <container>",
	Short: "Follow a container log in the terminal",
	Long: `Follow a container log in an interactive viewer.

Scrolling to the top loads older lines. Scrolling to the bottom (or F)
follows new output again.

Examples:
  podlogs view web
  podlogs view --source docker api
  podlogs view --source file ./app.log`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.Log, true)
	if err != nil {
		return err
	}
	defer closeLog()

	src, err := newSource(cfg, args[0], logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("opening log view", "container", args[0], "source", cfg.Source.Kind)
	return tui.Run(ctx, src, tui.Options{
		Name:           args[0],
		ShowTimestamps: cfg.View.ShowTimestamps,
		StatusPoll:     cfg.View.StatusPollInterval(),
	}, viewOptions(cfg.View, logger)...)
}

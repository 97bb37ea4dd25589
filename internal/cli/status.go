package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/charliek/podlogs/internal/config"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/source"
)

// statusConcurrency bounds parallel state queries
const statusConcurrency = 4

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <container>...",
	Short: "Show container state",
	Long: `Show the state of one or more containers.

Examples:
  podlogs status web
  podlogs status web worker --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// containerStatus is one row of status output
type containerStatus struct {
	Name  string                `json:"name"`
	State domain.ContainerState `json:"state,omitempty"`
	Error string                `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.Log, false)
	if err != nil {
		return err
	}
	defer closeLog()

	statuses := queryStates(cmd.Context(), cfg, args, logger)

	failed := 0
	for _, s := range statuses {
		if s.Error != "" {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		if err := json.NewEncoder(out).Encode(statuses); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATE")
		fmt.Fprintln(w, "----\t-----")
		for _, s := range statuses {
			state := s.State.String()
			if s.Error != "" {
				state = "error: " + s.Error
			}
			fmt.Fprintf(w, "%s\t%s\n", s.Name, state)
		}
		w.Flush()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d containers could not be queried", failed, len(statuses))
	}
	return nil
}

// queryStates asks the engine for every container concurrently.
// Results keep the order of names.
func queryStates(ctx context.Context, cfg *config.Config, names []string, logger *slog.Logger) []containerStatus {
	statuses := make([]containerStatus, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusConcurrency)
	for i, name := range names {
		g.Go(func() error {
			statuses[i] = queryState(gctx, cfg, name, logger)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

func queryState(ctx context.Context, cfg *config.Config, name string, logger *slog.Logger) containerStatus {
	status := containerStatus{Name: name}

	src, err := newSource(cfg, name, logger)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	reader, ok := src.(source.StateReader)
	if !ok {
		status.Error = fmt.Sprintf("%s source does not report container state", cfg.Source.Kind)
		return status
	}

	state, err := reader.State(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.State = state
	return status
}

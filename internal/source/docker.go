package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// dockerAPI is the subset of the engine client used by Docker
type dockerAPI interface {
	ContainerLogs(ctx context.Context, container string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerInspect(ctx context.Context, container string) (types.ContainerJSON, error)
	ContainerStart(ctx context.Context, container string, options container.StartOptions) error
}

// Docker reads container logs through the docker engine API
type Docker struct {
	api    dockerAPI
	name   string
	logger *slog.Logger
}

// NewDocker creates a docker source. An empty host uses DOCKER_HOST and friends.
func NewDocker(host, name string, logger *slog.Logger) (*Docker, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Docker{api: cli, name: name, logger: logger}, nil
}

// DockerLogsOptions converts fetch options to engine log options
func DockerLogsOptions(opts FetchOptions) container.LogsOptions {
	out := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Timestamps: opts.Timestamps,
		Tail:       "all",
	}
	if !opts.Since.IsZero() {
		out.Since = opts.Since.Format(time.RFC3339Nano)
	}
	if !opts.Until.IsZero() {
		out.Until = opts.Until.Format(time.RFC3339Nano)
	}
	if opts.Tail > 0 {
		out.Tail = strconv.Itoa(opts.Tail)
	}
	return out
}

// Fetch opens a log stream
func (d *Docker) Fetch(ctx context.Context, opts FetchOptions) (Stream, error) {
	d.logger.Debug("requesting container logs", "container", d.name, "follow", opts.Follow)
	body, err := d.api.ContainerLogs(ctx, d.name, DockerLogsOptions(opts))
	if err != nil {
		return nil, d.wrap("request logs", err)
	}
	return NewFrameStream(body), nil
}

// State returns the container status reported by inspect
func (d *Docker) State(ctx context.Context) (domain.ContainerState, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	info, err := d.api.ContainerInspect(ctx, d.name)
	if err != nil {
		return domain.ContainerStateUnknown, d.wrap("inspect container", err)
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return domain.ContainerStateUnknown, nil
	}
	return domain.ParseContainerState(info.State.Status), nil
}

// Start starts the container
func (d *Docker) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	if err := d.api.ContainerStart(ctx, d.name, container.StartOptions{}); err != nil {
		return d.wrap("start container", err)
	}
	return nil
}

func (d *Docker) wrap(op string, err error) error {
	if errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: %s", domain.ErrContainerNotFound, d.name)
	}
	return domain.NewTransportError(op, err)
}

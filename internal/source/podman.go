package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
)

// Podman reads container logs through the libpod REST API
type Podman struct {
	baseURL    string
	version    string
	name       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPodman creates a libpod source. rawURL may be unix://, tcp://, http:// or https://.
func NewPodman(rawURL, version, name string, logger *slog.Logger) (*Podman, error) {
	if rawURL == "" {
		rawURL = constants.DefaultPodmanSocket
	}
	if version == "" {
		version = constants.DefaultAPIVersion
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing podman url: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	var baseURL string
	switch u.Scheme {
	case "unix":
		socket := u.Path
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
		baseURL = "http://d"
	case "tcp":
		baseURL = "http://" + u.Host
	case "http", "https":
		baseURL = strings.TrimSuffix(u.String(), "/")
	default:
		return nil, fmt.Errorf("unsupported podman url scheme %q", u.Scheme)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Podman{
		baseURL: baseURL,
		version: strings.Trim(version, "/"),
		name:    name,
		// log streams are unbounded, so the client has no timeout
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}, nil
}

func (p *Podman) containerPath(suffix string) string {
	return fmt.Sprintf("%s/%s/libpod/containers/%s/%s", p.baseURL, p.version, url.PathEscape(p.name), suffix)
}

// LogQuery encodes fetch options as libpod query parameters
func LogQuery(opts FetchOptions) url.Values {
	query := url.Values{}
	query.Set("stdout", "true")
	query.Set("stderr", "true")
	query.Set("follow", strconv.FormatBool(opts.Follow))
	query.Set("timestamps", strconv.FormatBool(opts.Timestamps))
	if !opts.Since.IsZero() {
		query.Set("since", opts.Since.Format(time.RFC3339Nano))
	}
	if !opts.Until.IsZero() {
		query.Set("until", opts.Until.Format(time.RFC3339Nano))
	}
	if opts.Tail > 0 {
		query.Set("tail", strconv.Itoa(opts.Tail))
	}
	return query
}

// Fetch opens a log stream
func (p *Podman) Fetch(ctx context.Context, opts FetchOptions) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.containerPath("logs")+"?"+LogQuery(opts).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	p.logger.Debug("requesting container logs", "container", p.name, "follow", opts.Follow)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError("request logs", err)
	}
	if err := p.checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return NewFrameStream(resp.Body), nil
}

type inspectResponse struct {
	State struct {
		Status string `json:"Status"`
	} `json:"State"`
}

// State returns the container status reported by inspect
func (p *Podman) State(ctx context.Context) (domain.ContainerState, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.containerPath("json"), nil)
	if err != nil {
		return domain.ContainerStateUnknown, fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.ContainerStateUnknown, domain.NewTransportError("inspect container", err)
	}
	defer resp.Body.Close()

	if err := p.checkStatus(resp); err != nil {
		return domain.ContainerStateUnknown, err
	}
	var inspect inspectResponse
	if err := json.NewDecoder(resp.Body).Decode(&inspect); err != nil {
		return domain.ContainerStateUnknown, fmt.Errorf("decoding inspect response: %w", err)
	}
	return domain.ParseContainerState(inspect.State.Status), nil
}

// Start starts the container
func (p *Podman) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.containerPath("start"), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.NewTransportError("start container", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return domain.ErrContainerAlreadyRunning
	}
	return p.checkStatus(resp)
}

type errorResponse struct {
	Cause    string `json:"cause"`
	Message  string `json:"message"`
	Response int    `json:"response"`
}

func (p *Podman) checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrContainerNotFound, p.name)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("podman: %s", errResp.Message)
	}
	return fmt.Errorf("podman: unexpected status %d", resp.StatusCode)
}

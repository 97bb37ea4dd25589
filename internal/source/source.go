// Package source provides log sources for a single container: the podman
// libpod API, the docker engine API and plain files.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charliek/podlogs/internal/domain"
)

// FetchOptions bounds a log request.
// Zero times mean unbounded and a zero Tail means every line.
type FetchOptions struct {
	Since      time.Time
	Until      time.Time
	Follow     bool
	Timestamps bool
	Tail       int
}

// Stream yields one physical log line per call to Next.
// Next returns io.EOF when a non-following request is exhausted and a
// *domain.TransportError when the underlying transport fails.
type Stream interface {
	Next() (domain.LogChunk, error)
	Close() error
}

// Source fetches log streams for one container
type Source interface {
	Fetch(ctx context.Context, opts FetchOptions) (Stream, error)
}

// StateReader reports the current state of the container behind a Source
type StateReader interface {
	State(ctx context.Context) (domain.ContainerState, error)
}

// Starter starts the container behind a Source
type Starter interface {
	Start(ctx context.Context) error
}

// Kind selects a Source implementation
type Kind string

const (
	KindPodman Kind = "podman"
	KindDocker Kind = "docker"
	KindFile   Kind = "file"
)

// ParseKind validates a source kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPodman, KindDocker, KindFile:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownSourceKind, s)
}

// Target identifies the container (or file) whose logs are read
type Target struct {
	Kind       Kind
	URL        string // engine endpoint, unused for files
	APIVersion string // libpod API version
	Name       string // container name or ID, file path for KindFile
}

// New creates the Source for a target
func New(t Target, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch t.Kind {
	case KindPodman:
		return NewPodman(t.URL, t.APIVersion, t.Name, logger)
	case KindDocker:
		return NewDocker(t.URL, t.Name, logger)
	case KindFile:
		return NewFile(t.Name, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSourceKind, t.Kind)
}

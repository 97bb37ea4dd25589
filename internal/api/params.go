package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
)

// logParams holds a parsed logs request
type logParams struct {
	filter     domain.LogFilter
	follow     bool
	timestamps bool
	// tail < 0 means every line
	tail int
}

// parseLogParams reads the engine's logs query parameters.
// Podman sends RFC 3339 times and docker sends unix seconds with an optional
// nanosecond fraction, so both are accepted.
func parseLogParams(r *http.Request, name string) (logParams, error) {
	q := r.URL.Query()
	p := logParams{
		filter: domain.LogFilter{
			Containers: []string{name},
			Stdout:     parseBool(q.Get("stdout")),
			Stderr:     parseBool(q.Get("stderr")),
		},
		follow:     parseBool(q.Get("follow")),
		timestamps: parseBool(q.Get("timestamps")),
		tail:       -1,
	}

	var err error
	if p.filter.Since, err = parseEngineTime(q.Get("since")); err != nil {
		return p, fmt.Errorf("since: %w", err)
	}
	if p.filter.Until, err = parseEngineTime(q.Get("until")); err != nil {
		return p, fmt.Errorf("until: %w", err)
	}

	if tail := q.Get("tail"); tail != "" && tail != "all" {
		n, err := strconv.Atoi(tail)
		if err != nil {
			return p, fmt.Errorf("invalid tail %q", tail)
		}
		p.tail = n
	}
	if p.tail > constants.MaxLogLines {
		p.tail = constants.MaxLogLines
	}
	return p, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// parseEngineTime accepts RFC 3339 or "seconds[.nanoseconds]" since the epoch.
// An empty value or zero means unbounded.
func parseEngineTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	secStr, fracStr, hasFrac := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, s)
	}
	var nsec int64
	if hasFrac {
		if len(fracStr) == 0 || len(fracStr) > 9 {
			return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, s)
		}
		fracStr += strings.Repeat("0", 9-len(fracStr))
		if nsec, err = strconv.ParseInt(fracStr, 10, 64); err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, s)
		}
	}
	if sec == 0 && nsec == 0 {
		return time.Time{}, nil
	}
	return time.Unix(sec, nsec).UTC(), nil
}

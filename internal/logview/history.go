package logview

import (
	"context"
	"time"

	"github.com/charliek/podlogs/internal/domain"
)

// FetchState is the lifecycle of a history window
type FetchState int

const (
	FetchIdle FetchState = iota
	FetchFetching
	FetchDrained
)

func (s FetchState) String() string {
	switch s {
	case FetchFetching:
		return "fetching"
	case FetchDrained:
		return "drained"
	default:
		return "idle"
	}
}

// BoundaryPolicy controls how the history boundary moves between windows
type BoundaryPolicy string

const (
	// BoundaryAdvance moves the boundary to the oldest buffered line after each window
	BoundaryAdvance BoundaryPolicy = "advance"
	// BoundaryFixed fetches a single window older than the first seen line
	BoundaryFixed BoundaryPolicy = "fixed"
)

// historyEngine collects one window of older lines at a time
type historyEngine struct {
	state     FetchState
	pending   []domain.TimestampedLine
	until     time.Time
	gen       uint64
	cancel    context.CancelFunc
	accepted  int
	exhausted bool
}

// begin moves to Fetching for a new window and returns its generation
func (h *historyEngine) begin(until time.Time, cancel context.CancelFunc) uint64 {
	h.gen++
	h.state = FetchFetching
	h.until = until
	h.cancel = cancel
	h.accepted = 0
	h.pending = h.pending[:0]
	return h.gen
}

func (h *historyEngine) current(gen uint64) bool {
	return gen == h.gen && h.state == FetchFetching
}

func (h *historyEngine) push(line domain.TimestampedLine) {
	h.pending = append(h.pending, line)
}

func (h *historyEngine) finish() {
	h.state = FetchDrained
	h.release()
}

// abandon drops a failed window and allows a new fetch
func (h *historyEngine) abandon() {
	h.pending = nil
	h.state = FetchIdle
	h.release()
}

// take pops up to n lines from the back of the pending batch, newest first
func (h *historyEngine) take(n int) []domain.TimestampedLine {
	if n > len(h.pending) {
		n = len(h.pending)
	}
	out := make([]domain.TimestampedLine, 0, n)
	for range n {
		last := len(h.pending) - 1
		out = append(out, h.pending[last])
		h.pending[last] = domain.TimestampedLine{}
		h.pending = h.pending[:last]
	}
	return out
}

// settle returns to Idle once a drained window is empty and reports whether it did
func (h *historyEngine) settle() bool {
	if h.state != FetchDrained || len(h.pending) > 0 {
		return false
	}
	h.state = FetchIdle
	h.pending = nil
	return true
}

func (h *historyEngine) stop() {
	h.gen++
	h.abandon()
}

func (h *historyEngine) release() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

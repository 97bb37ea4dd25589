package logs

import (
	"sync/atomic"

	"github.com/charliek/podlogs/internal/domain"
)

// Follower receives entries written after its Follow snapshot.
// Its channel is closed by Manager.Unfollow or Manager.Close.
type Follower struct {
	matcher *Matcher
	ch      chan domain.LogEntry
	missed  atomic.Uint64
	closed  bool // guarded by Manager.mu
}

// Lines returns the channel of followed entries
func (f *Follower) Lines() <-chan domain.LogEntry {
	return f.ch
}

// Missed returns how many matching entries were lost to a full channel
func (f *Follower) Missed() uint64 {
	return f.missed.Load()
}

// offer hands over an entry without blocking.
// It returns false only when a matching entry had to be dropped.
func (f *Follower) offer(entry domain.LogEntry) bool {
	if f.closed || !f.matcher.Match(entry) {
		return true
	}
	select {
	case f.ch <- entry:
		return true
	default:
		f.missed.Add(1)
		return false
	}
}

func (f *Follower) close() {
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

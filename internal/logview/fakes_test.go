package logview

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/source"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func chunk(ts time.Time, msg string) domain.LogChunk {
	return domain.LogChunk{
		Origin: domain.OriginStdout,
		Raw:    []byte(ts.Format(time.RFC3339Nano) + " " + msg + "\n"),
	}
}

func framedChunk(stream byte, payload string) domain.LogChunk {
	raw := make([]byte, 8, 8+len(payload))
	raw[0] = stream
	binary.BigEndian.PutUint32(raw[4:], uint32(len(payload)))
	return domain.LogChunk{Raw: append(raw, payload...), Framed: true}
}

// seconds returns one chunk per second offset
func seconds(from, to int) []domain.LogChunk {
	var out []domain.LogChunk
	for i := from; i < to; i++ {
		out = append(out, chunk(at(i), fmt.Sprintf("line %d", i)))
	}
	return out
}

type fakeStream struct {
	ctx    context.Context
	chunks []domain.LogChunk
	live   chan domain.LogChunk
	err    error
	follow bool
	i      int
}

func (s *fakeStream) Next() (domain.LogChunk, error) {
	if s.i < len(s.chunks) {
		c := s.chunks[s.i]
		s.i++
		return c, nil
	}
	if s.err != nil {
		return domain.LogChunk{}, s.err
	}
	if !s.follow {
		return domain.LogChunk{}, io.EOF
	}
	select {
	case c := <-s.live:
		return c, nil
	case <-s.ctx.Done():
		return domain.LogChunk{}, s.ctx.Err()
	}
}

func (s *fakeStream) Close() error { return nil }

// fakeSource serves tail and history requests from fixed chunk lists
type fakeSource struct {
	mu         sync.Mutex
	fetches    []source.FetchOptions
	tail       []domain.LogChunk
	tailErr    error
	live       chan domain.LogChunk
	history    func(until time.Time) []domain.LogChunk
	historyErr error
}

func newFakeSource(tail []domain.LogChunk) *fakeSource {
	return &fakeSource{tail: tail, live: make(chan domain.LogChunk)}
}

func (f *fakeSource) Fetch(ctx context.Context, opts source.FetchOptions) (source.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, opts)

	if opts.Follow {
		return &fakeStream{ctx: ctx, chunks: f.tail, live: f.live, err: f.tailErr, follow: true}, nil
	}
	var chunks []domain.LogChunk
	if f.history != nil {
		chunks = f.history(opts.Until)
	}
	return &fakeStream{ctx: ctx, chunks: chunks, err: f.historyErr}, nil
}

func (f *fakeSource) Fetches() []source.FetchOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.FetchOptions(nil), f.fetches...)
}

// fakeSurface has one row per line and keeps its scroll value when lines are prepended
type fakeSurface struct {
	lines []string
	value float64
	page  float64
}

func (s *fakeSurface) Insert(at Position, markup string) {
	if at == PositionStart {
		s.lines = append([]string{markup}, s.lines...)
		return
	}
	s.lines = append(s.lines, markup)
}

func (s *fakeSurface) Metrics() Metrics {
	return Metrics{Value: s.value, PageSize: s.page, Upper: max(float64(len(s.lines)), s.page)}
}

func (s *fakeSurface) SetScrollValue(v float64) {
	s.value = min(max(v, 0), s.Metrics().Bottom())
}

// scrollTo simulates the user moving the viewport
func (s *fakeSurface) scrollTo(v *View, value float64) {
	s.SetScrollValue(value)
	v.OnViewportChanged(s.Metrics())
}

type notification struct {
	title, detail string
}

type fakeNotifier struct {
	got []notification
}

func (n *fakeNotifier) NotifyError(title, detail string) {
	n.got = append(n.got, notification{title, detail})
}

// handleUntil feeds events into the view until cond holds
func handleUntil(t *testing.T, v *View, cond func() bool) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for !cond() {
		select {
		case ev := <-v.Events():
			v.Handle(ev)
		case <-timeout:
			t.Fatal("timed out waiting for view events")
		}
	}
}

func openView(t *testing.T, src *fakeSource, page float64, opts ...Option) (*View, *fakeSurface, *fakeNotifier) {
	t.Helper()
	surf := &fakeSurface{page: page}
	notifier := &fakeNotifier{}
	v := New(src, surf, notifier, opts...)
	v.Open(context.Background())
	t.Cleanup(v.Close)
	return v, surf, notifier
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/source"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func chunk(sec int, msg string) domain.LogChunk {
	ts := t0.Add(time.Duration(sec) * time.Second)
	return domain.LogChunk{
		Origin: domain.OriginStdout,
		Raw:    []byte(ts.Format(time.RFC3339Nano) + " " + msg + "\n"),
	}
}

func lines(n int) []domain.LogChunk {
	out := make([]domain.LogChunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, chunk(i, fmt.Sprintf("line %d", i)))
	}
	return out
}

type sliceStream struct {
	chunks []domain.LogChunk
	err    error
}

func (s *sliceStream) Next() (domain.LogChunk, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return domain.LogChunk{}, s.err
		}
		return domain.LogChunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error { return nil }

// fakeSource ends every stream after its chunks, like an engine whose container has exited
type fakeSource struct {
	mu       sync.Mutex
	chunks   []domain.LogChunk
	tailErr  error
	fetches  []source.FetchOptions
	state    domain.ContainerState
	starts   int
	startErr error
}

func (f *fakeSource) Fetch(ctx context.Context, opts source.FetchOptions) (source.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, opts)

	chunks := append([]domain.LogChunk(nil), f.chunks...)
	if opts.Follow {
		if !opts.Since.IsZero() {
			return &sliceStream{}, nil
		}
		return &sliceStream{chunks: chunks, err: f.tailErr}, nil
	}
	return &sliceStream{chunks: chunks}, nil
}

func (f *fakeSource) State(ctx context.Context) (domain.ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == "" {
		return "", errors.New("no state")
	}
	return f.state, nil
}

func (f *fakeSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeSource) Fetches() []source.FetchOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.FetchOptions(nil), f.fetches...)
}

// update applies msg and returns the updated model
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T", updated)
	}
	return model, cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd, unwrapping a batch down to its first command
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				return run(t, c)
			}
		}
	}
	return msg
}

// pumpEvents feeds n engine events into the model
func pumpEvents(t *testing.T, m Model, n int) Model {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case ev := <-m.LogView().Events():
			m, _ = update(t, m, engineEventMsg(ev))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	return m
}

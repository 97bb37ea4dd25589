package logview

import (
	"context"
	"errors"
	"io"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/source"
)

// Engine identifies which subscription produced an event
type Engine uint8

const (
	EngineTail Engine = iota
	EngineHistory
)

func (e Engine) String() string {
	if e == EngineHistory {
		return "history"
	}
	return "tail"
}

// EventKind classifies engine events
type EventKind uint8

const (
	EventChunk EventKind = iota
	EventDone
	EventError
)

// Event carries one step of a subscription to the goroutine owning the View
type Event struct {
	Engine Engine
	Gen    uint64
	Kind   EventKind
	Chunk  domain.LogChunk
	Err    error
}

// pump reads a stream until it ends and forwards everything as events.
// Nothing is sent once ctx is cancelled.
func pump(ctx context.Context, src source.Source, opts source.FetchOptions, engine Engine, gen uint64, out chan<- Event) {
	send := func(ev Event) bool {
		ev.Engine = engine
		ev.Gen = gen
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	stream, err := src.Fetch(ctx, opts)
	if err != nil {
		if ctx.Err() == nil {
			send(Event{Kind: EventError, Err: domain.NewTransportError("fetch logs", err)})
		}
		return
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				send(Event{Kind: EventDone})
			default:
				send(Event{Kind: EventError, Err: err})
			}
			return
		}
		if !send(Event{Kind: EventChunk, Chunk: chunk}) {
			return
		}
	}
}

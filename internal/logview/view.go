// Package logview follows a container log, pages in older lines on demand and
// keeps the viewport anchored while both ends of the buffer grow.
package logview

import (
	"context"
	"log/slog"
	"time"

	"github.com/charliek/podlogs/internal/ansi"
	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/source"
)

// TailErrorTitle is the notification title used when following stops
const TailErrorTitle = "Error while following log"

// Stats counts what happened to the lines a View received
type Stats struct {
	Appended       int // lines added at the tail
	Prepended      int // lines added from history
	Dropped        int // lines without a parsable timestamp
	Duplicates     int // history lines not older than the window boundary
	Rejected       int // lines that would break timestamp order
	Unbalanced     int // lines ending with styles still open
	HistoryFetches int // history windows requested
	TailErrors     int // follow subscriptions ended by an error
}

// View owns the visible line buffer and wires the tail and history engines to a surface.
// All methods except Events must be called from a single goroutine.
type View struct {
	src      source.Source
	surface  Surface
	notifier Notifier
	logger   *slog.Logger

	batchSize    int
	anchorOffset float64
	tailLines    int
	policy       BoundaryPolicy
	escape       bool

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	splitter Splitter

	// one decoder per stream so styling carries from line to line within it
	tailDecoder    *ansi.MarkupDecoder
	historyDecoder *ansi.MarkupDecoder

	buffer   LineBuffer
	scroll   scrollController
	history  historyEngine
	tail     tailEngine
	boundary time.Time
	stats    Stats
}

// Option configures a View
type Option func(*View)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithBatchSize sets how many history lines are merged per drain
func WithBatchSize(n int) Option {
	return func(v *View) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithAnchorOffset sets the scroll threshold and nudge applied after a history merge
func WithAnchorOffset(offset float64) Option {
	return func(v *View) {
		if offset >= 0 {
			v.anchorOffset = offset
		}
	}
}

// WithTail sets how many recent lines the first follow request asks for
func WithTail(n int) Option {
	return func(v *View) {
		if n >= 0 {
			v.tailLines = n
		}
	}
}

// WithBoundaryPolicy selects how history windows advance
func WithBoundaryPolicy(p BoundaryPolicy) Option {
	return func(v *View) {
		if p == BoundaryAdvance || p == BoundaryFixed {
			v.policy = p
		}
	}
}

// WithMarkupEscaping toggles escaping of markup metacharacters in log text
func WithMarkupEscaping(enabled bool) Option {
	return func(v *View) {
		v.escape = enabled
	}
}

// New creates a View. Nothing is fetched until Open.
func New(src source.Source, surface Surface, notifier Notifier, opts ...Option) *View {
	v := &View{
		src:          src,
		surface:      surface,
		notifier:     notifier,
		logger:       slog.Default(),
		batchSize:    constants.DefaultHistoryBatch,
		anchorOffset: constants.DefaultAnchorOffset,
		tailLines:    constants.DefaultTailLines,
		policy:       BoundaryAdvance,
		escape:       true,
		events:       make(chan Event, constants.DefaultEventBuffer),
	}
	for _, opt := range opts {
		opt(v)
	}

	var decoderOpts []ansi.DecoderOption
	if v.escape {
		decoderOpts = append(decoderOpts, ansi.WithEscaping())
	}
	v.tailDecoder = ansi.NewMarkupDecoder(decoderOpts...)
	v.historyDecoder = ansi.NewMarkupDecoder(decoderOpts...)
	return v
}

// Open starts following the log and scrolls to the bottom
func (v *View) Open(ctx context.Context) {
	if v.cancel != nil {
		v.cancel()
	}
	v.ctx, v.cancel = context.WithCancel(ctx)
	v.follow(source.FetchOptions{Follow: true, Timestamps: true, Tail: v.tailLines})
	v.ScrollToBottom()
}

// Refollow subscribes to the tail again after the container restarted.
// Only lines newer than the last buffered second are requested.
func (v *View) Refollow() {
	if v.ctx == nil {
		return
	}
	opts := source.FetchOptions{Follow: true, Timestamps: true}
	if last, ok := v.buffer.Back(); ok && !last.Time.IsZero() {
		opts.Since = last.Time.Truncate(time.Second).Add(time.Second)
	} else {
		opts.Tail = v.tailLines
	}
	v.follow(opts)
}

func (v *View) follow(opts source.FetchOptions) {
	ctx, cancel := context.WithCancel(v.ctx)
	gen := v.tail.begin(cancel)
	v.tailDecoder.Reset()
	v.logger.Debug("following log", "since", opts.Since, "tail", opts.Tail)
	go pump(ctx, v.src, opts, EngineTail, gen, v.events)
}

// Close cancels every subscription. The view keeps its lines.
func (v *View) Close() {
	v.tail.stop()
	v.history.stop()
	if v.cancel != nil {
		v.cancel()
	}
}

// Events delivers engine events to be passed to Handle
func (v *View) Events() <-chan Event {
	return v.events
}

// Run handles events until ctx is done
func (v *View) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-v.events:
			v.Handle(ev)
		}
	}
}

// Handle applies one engine event. Events from stale subscriptions are ignored.
func (v *View) Handle(ev Event) {
	switch ev.Engine {
	case EngineTail:
		v.handleTail(ev)
	case EngineHistory:
		v.handleHistory(ev)
	}
}

func (v *View) handleTail(ev Event) {
	if !v.tail.current(ev.Gen) {
		return
	}
	switch ev.Kind {
	case EventChunk:
		v.appendChunk(ev.Chunk)
	case EventDone:
		v.tail.stop()
		v.logger.Debug("log stream ended")
	case EventError:
		v.tail.stop()
		v.stats.TailErrors++
		v.logger.Warn("stopping container log stream due to error", "error", ev.Err)
		if v.notifier != nil {
			v.notifier.NotifyError(TailErrorTitle, ev.Err.Error())
		}
	}
}

func (v *View) handleHistory(ev Event) {
	if !v.history.current(ev.Gen) {
		return
	}
	switch ev.Kind {
	case EventChunk:
		if line, ok := v.decode(ev.Chunk, v.historyDecoder); ok {
			v.history.push(line)
		}
	case EventDone:
		v.history.finish()
		v.logger.Debug("history window fetched", "lines", len(v.history.pending))
		v.drainHistory()
	case EventError:
		v.history.abandon()
		v.logger.Warn("stopping history log stream due to error", "error", ev.Err)
	}
}

// OnViewportChanged feeds new scroll metrics to the stickiness controller
func (v *View) OnViewportChanged(m Metrics) {
	if !v.scroll.observe(m) {
		return
	}
	switch v.history.state {
	case FetchIdle:
		v.startHistory()
	case FetchDrained:
		v.drainHistory()
	}
}

// ScrollToBottom jumps to the newest line and follows it from then on
func (v *View) ScrollToBottom() {
	v.scroll.autoScrolling = true
	v.setScrollValue(v.surface.Metrics().Bottom())
}

func (v *View) setScrollValue(value float64) {
	v.surface.SetScrollValue(value)
	v.OnViewportChanged(v.surface.Metrics())
}

func (v *View) startHistory() {
	boundary, ok := v.Boundary()
	if !ok || v.history.exhausted || v.ctx == nil {
		return
	}
	ctx, cancel := context.WithCancel(v.ctx)
	gen := v.history.begin(boundary, cancel)
	v.historyDecoder.Reset()
	v.stats.HistoryFetches++
	v.logger.Debug("fetching history", "until", boundary)
	go pump(ctx, v.src, source.FetchOptions{Until: boundary, Timestamps: true}, EngineHistory, gen, v.events)
}

// drainHistory merges one batch of the pending window at the front of the buffer
func (v *View) drainHistory() {
	lines := v.history.take(v.batchSize)
	if len(lines) > 0 {
		before := v.surface.Metrics()
		for _, line := range lines {
			v.prependLine(line)
		}
		if m := v.surface.Metrics(); m.Value < v.anchorOffset {
			v.setScrollValue(m.Value + v.anchorOffset)
		}
		v.afterInsert(before)
	}

	if !v.history.settle() {
		return
	}
	switch v.policy {
	case BoundaryFixed:
		v.history.exhausted = true
	default:
		front, ok := v.buffer.Front()
		if v.history.accepted == 0 || !ok {
			v.history.exhausted = true
			v.logger.Debug("history exhausted")
			return
		}
		v.boundary = front.Time
	}
}

func (v *View) appendChunk(chunk domain.LogChunk) {
	line, ok := v.decode(chunk, v.tailDecoder)
	if !ok {
		return
	}
	before := v.surface.Metrics()
	if !v.buffer.PushBack(line) {
		v.stats.Rejected++
		v.logger.Debug("dropping out of order line", "timestamp", line.Timestamp)
		return
	}
	v.surface.Insert(PositionEnd, line.Markup)
	v.stats.Appended++
	v.afterInsert(before)
}

func (v *View) prependLine(line domain.TimestampedLine) {
	if !line.Time.Before(v.history.until) {
		v.stats.Duplicates++
		return
	}
	if !v.buffer.PushFront(line) {
		v.stats.Rejected++
		v.logger.Debug("dropping out of order history line", "timestamp", line.Timestamp)
		return
	}
	v.surface.Insert(PositionStart, line.Markup)
	v.stats.Prepended++
	v.history.accepted++
}

func (v *View) afterInsert(before Metrics) {
	if v.surface.Metrics().Upper > before.Upper && v.scroll.follows() {
		v.ScrollToBottom()
	}
}

// decode splits a chunk and renders its message with the decoder of the stream it came from.
// Spans left open are closed at the end of the line and reopened at the start of the next.
func (v *View) decode(chunk domain.LogChunk, decoder *ansi.MarkupDecoder) (domain.TimestampedLine, bool) {
	split, err := v.splitter.Split(chunk)
	if err != nil {
		v.stats.Dropped++
		v.logger.Debug("dropping log line", "error", err)
		return domain.TimestampedLine{}, false
	}
	if v.boundary.IsZero() {
		if first, ok := v.splitter.Boundary(); ok {
			v.boundary = first.Time
		}
	}

	decoder.BeginLine()
	balanced := decoder.Decode(split.Message)
	decoder.EndLine()
	markup := decoder.MoveOutBuffer()
	if !balanced {
		v.stats.Unbalanced++
		v.logger.Debug("carrying open styles to the next line", "timestamp", split.Timestamp)
	}
	return domain.TimestampedLine{
		Timestamp: split.Timestamp,
		Time:      split.Time,
		Origin:    split.Origin,
		Markup:    markup,
	}, true
}

// Len returns the number of buffered lines
func (v *View) Len() int { return v.buffer.Len() }

// Lines returns a copy of the buffered lines, oldest first
func (v *View) Lines() []domain.TimestampedLine { return v.buffer.Lines() }

// Line returns the i-th buffered line, oldest first
func (v *View) Line(i int) domain.TimestampedLine { return v.buffer.At(i) }

// Sticky reports whether the viewport follows new lines
func (v *View) Sticky() bool { return v.scroll.sticky }

// Following reports whether the tail subscription is active
func (v *View) Following() bool { return v.tail.following }

// FetchState returns the history engine state
func (v *View) FetchState() FetchState { return v.history.state }

// HistoryExhausted reports whether no older lines will be requested
func (v *View) HistoryExhausted() bool { return v.history.exhausted }

// Boundary returns the timestamp the next history window ends at
func (v *View) Boundary() (time.Time, bool) {
	return v.boundary, !v.boundary.IsZero()
}

// Stats returns line counters
func (v *View) Stats() Stats { return v.stats }

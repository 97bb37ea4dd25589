package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/source"
)

// multiplexedContentType is what docker reports for a non-tty log stream
const multiplexedContentType = "application/vnd.docker.multiplexed-stream"

// frameWriter writes entries as multiplexed frames, one line per frame
type frameWriter struct {
	w          http.ResponseWriter
	flusher    http.Flusher
	timestamps bool
	written    int
}

func (fw *frameWriter) write(entry domain.LogEntry) error {
	line := entry.Line
	if fw.timestamps {
		line = entry.Timestamp.UTC().Format(time.RFC3339Nano) + " " + line
	}
	if _, err := fw.w.Write(source.EncodeFrame(entry.Stream, []byte(line+"\n"))); err != nil {
		return err
	}
	fw.written++
	return nil
}

func (fw *frameWriter) flush() {
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
}

// GetLogs handles GET /containers/{name}/logs.
// A follow request streams until the client leaves, the container's current
// run ends or the until bound passes.
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.supervisor.Container(name); err != nil {
		writeError(w, err)
		return
	}

	params, err := parseLogParams(r, name)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	limit := params.tail
	if limit < 0 {
		limit = 0
	}
	now := time.Now()
	follow := params.follow && (params.filter.Until.IsZero() || params.filter.Until.After(now))

	if !follow {
		var entries []domain.LogEntry
		if params.tail != 0 {
			if entries, err = h.logManager.Query(params.filter, limit); err != nil {
				writeError(w, err)
				return
			}
		}
		fw := h.startStream(w, params)
		for _, e := range entries {
			if err := fw.write(e); err != nil {
				return
			}
		}
		h.served(fw, false)
		return
	}

	// done is captured before the snapshot so an exit racing the request still ends the stream
	done, err := h.supervisor.Done(name)
	if err != nil {
		writeError(w, err)
		return
	}
	history, follower, err := h.logManager.Follow(params.filter, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.logManager.Unfollow(follower)
	if params.tail == 0 {
		history = nil
	}

	if h.metrics != nil {
		h.metrics.followers.Inc()
		defer h.metrics.followers.Dec()
	}

	fw := h.startStream(w, params)
	defer h.served(fw, true)
	for _, e := range history {
		if err := fw.write(e); err != nil {
			return
		}
	}
	fw.flush()

	var untilC <-chan time.Time
	if !params.filter.Until.IsZero() {
		timer := time.NewTimer(params.filter.Until.Sub(now))
		defer timer.Stop()
		untilC = timer.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-untilC:
			return
		case <-done:
			drain(fw, follower.Lines())
			return
		case entry, ok := <-follower.Lines():
			if !ok {
				return
			}
			if err := fw.write(entry); err != nil {
				log.Printf("Log stream write error (client likely disconnected): %v", err)
				return
			}
			fw.flush()
		}
	}
}

// drain writes what a follower already holds once the container has exited
func drain(fw *frameWriter, ch <-chan domain.LogEntry) {
	defer fw.flush()
	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			if err := fw.write(entry); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *Handlers) startStream(w http.ResponseWriter, params logParams) *frameWriter {
	w.Header().Set("Content-Type", multiplexedContentType)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	fw := &frameWriter{w: w, flusher: flusher, timestamps: params.timestamps}
	fw.flush()
	return fw
}

func (h *Handlers) served(fw *frameWriter, follow bool) {
	if h.metrics != nil {
		h.metrics.linesServed.WithLabelValues(strconv.FormatBool(follow)).Add(float64(fw.written))
	}
}

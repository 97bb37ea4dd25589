package logview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
)

// SplitLine is a log line separated into its timestamp and raw message
type SplitLine struct {
	Timestamp string
	Time      time.Time
	Origin    domain.Origin
	Message   []byte
}

// Splitter separates chunks into timestamp and message and remembers the
// first timestamp it ever parsed.
type Splitter struct {
	boundary    SplitLine
	hasBoundary bool
}

// Split parses one chunk. Errors wrap domain.ErrMalformedLine.
func (s *Splitter) Split(chunk domain.LogChunk) (SplitLine, error) {
	raw := chunk.Raw
	origin := chunk.Origin
	if origin == "" {
		origin = domain.OriginStdout
	}

	if chunk.Framed {
		if len(raw) < constants.FrameHeaderSize {
			return SplitLine{}, fmt.Errorf("%w: short frame header", domain.ErrMalformedLine)
		}
		origin = domain.OriginFromHeader(raw[0])
		size := int(binary.BigEndian.Uint32(raw[4:constants.FrameHeaderSize]))
		raw = raw[constants.FrameHeaderSize:]
		if size < len(raw) {
			raw = raw[:size]
		}
	}

	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))

	ts, msg, found := bytes.Cut(raw, []byte(" "))
	if !found || len(ts) == 0 {
		return SplitLine{}, fmt.Errorf("%w: no timestamp separator", domain.ErrMalformedLine)
	}
	t, err := time.Parse(time.RFC3339Nano, string(ts))
	if err != nil {
		return SplitLine{}, fmt.Errorf("%w: %v", domain.ErrMalformedLine, err)
	}

	line := SplitLine{
		Timestamp: string(ts),
		Time:      t,
		Origin:    origin,
		Message:   msg,
	}
	if !s.hasBoundary {
		s.boundary = line
		s.hasBoundary = true
	}
	return line, nil
}

// Boundary returns the first line ever split successfully
func (s *Splitter) Boundary() (SplitLine, bool) {
	return s.boundary, s.hasBoundary
}

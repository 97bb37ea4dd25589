package domain

import (
	"strings"
	"time"
)

// Origin identifies the output stream a log line was written to
type Origin string

const (
	OriginStdout Origin = "stdout"
	OriginStderr Origin = "stderr"
)

// String returns the string representation of Origin
func (o Origin) String() string {
	return string(o)
}

// OriginFromHeader maps the stream byte of a multiplexing header to an Origin.
// Unknown values (including stdin) are reported as stdout.
func OriginFromHeader(b byte) Origin {
	if b == 2 {
		return OriginStderr
	}
	return OriginStdout
}

// HeaderByte returns the stream byte written in a multiplexing header
func (o Origin) HeaderByte() byte {
	if o == OriginStderr {
		return 2
	}
	return 1
}

// LogChunk is the raw bytes of exactly one physical log line as delivered by a log source.
// Framed is true when Raw starts with the 8-byte multiplexing header.
type LogChunk struct {
	Origin Origin
	Raw    []byte
	Framed bool
}

// TimestampedLine is a decoded, render-ready log line
type TimestampedLine struct {
	Timestamp string    `json:"timestamp"`
	Time      time.Time `json:"-"`
	Origin    Origin    `json:"origin"`
	Markup    string    `json:"markup"`
}

// Before reports whether l sorts strictly before other.
// Parsed times are compared when both are known, otherwise the raw timestamps.
func (l TimestampedLine) Before(other TimestampedLine) bool {
	if !l.Time.IsZero() && !other.Time.IsZero() {
		return l.Time.Before(other.Time)
	}
	return strings.Compare(l.Timestamp, other.Timestamp) < 0
}

// LogEntry is a single captured output line held by the engine emulator
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Container string    `json:"container"`
	Stream    Origin    `json:"stream"`
	Line      string    `json:"line"`
}

// LogFilter defines criteria for selecting emulator log entries
type LogFilter struct {
	Containers []string  // Restrict to specific container names
	Since      time.Time // Inclusive lower bound, zero means unbounded
	Until      time.Time // Exclusive upper bound, zero means unbounded
	Stdout     bool      // Include stdout lines
	Stderr     bool      // Include stderr lines
	Pattern    string    // Substring or regex match on the line
	IsRegex    bool      // If true, Pattern is a regex; otherwise substring match
}

// AllStreams returns a filter that accepts both streams for the given containers
func AllStreams(containers ...string) LogFilter {
	return LogFilter{Containers: containers, Stdout: true, Stderr: true}
}

// IsEmpty returns true if the filter accepts every entry
func (f LogFilter) IsEmpty() bool {
	return len(f.Containers) == 0 && f.Pattern == "" && f.Since.IsZero() && f.Until.IsZero() &&
		f.Stdout == f.Stderr
}

// MatchesContainer returns true if the container name matches the filter
func (f LogFilter) MatchesContainer(name string) bool {
	if len(f.Containers) == 0 {
		return true
	}
	for _, c := range f.Containers {
		if c == name {
			return true
		}
	}
	return false
}

// MatchesStream returns true if the stream is selected.
// A filter selecting neither stream behaves like one selecting both.
func (f LogFilter) MatchesStream(o Origin) bool {
	if f.Stdout == f.Stderr {
		return true
	}
	if o == OriginStderr {
		return f.Stderr
	}
	return f.Stdout
}

// MatchesTime returns true if t lies within [Since, Until)
func (f LogFilter) MatchesTime(t time.Time) bool {
	if !f.Since.IsZero() && t.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !t.Before(f.Until) {
		return false
	}
	return true
}

// LogStats contains statistics about the emulator log buffer
type LogStats struct {
	Lines        int // Lines currently held across all containers
	Containers   int // Containers that have written at least one line
	PerContainer int // Cap on lines kept per container
	Followers    int
}

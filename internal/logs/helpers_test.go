package logs

import (
	"strconv"
	"time"

	"github.com/charliek/podlogs/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// numbered returns the n-th stdout line of container, n seconds after t0
func numbered(container string, n int) domain.LogEntry {
	return domain.LogEntry{
		Timestamp: t0.Add(time.Duration(n) * time.Second),
		Container: container,
		Stream:    domain.OriginStdout,
		Line:      container + "-" + strconv.Itoa(n),
	}
}

func lineTexts(entries []domain.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Line)
	}
	return out
}

func mustCompile(filter domain.LogFilter) *Matcher {
	m, err := Compile(filter)
	if err != nil {
		panic(err)
	}
	return m
}

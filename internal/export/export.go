// Package export writes a container log as plain text.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charliek/podlogs/internal/ansi"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/logs"
	"github.com/charliek/podlogs/internal/logview"
	"github.com/charliek/podlogs/internal/source"
)

// Options controls an export
type Options struct {
	Timestamps bool   // prefix each line with its RFC 3339 timestamp
	Pattern    string // keep only lines containing Pattern
	IsRegex    bool   // treat Pattern as a regular expression
	Since      time.Time
	Until      time.Time
}

// Result summarizes an export
type Result struct {
	Written int
	Skipped int // lines without a timestamp
}

// Export fetches the whole log from src and writes it to w without styling
func Export(ctx context.Context, src source.Source, w io.Writer, opts Options) (Result, error) {
	var res Result

	matcher, err := logs.Compile(domain.LogFilter{Pattern: opts.Pattern, IsRegex: opts.IsRegex})
	if err != nil {
		return res, err
	}

	stream, err := src.Fetch(ctx, source.FetchOptions{
		Since:      opts.Since,
		Until:      opts.Until,
		Timestamps: true,
	})
	if err != nil {
		return res, err
	}
	defer stream.Close()

	var splitter logview.Splitter
	decoder := ansi.NewPlainDecoder()
	bw := bufio.NewWriter(w)

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}

		line, err := splitter.Split(chunk)
		if err != nil {
			res.Skipped++
			continue
		}

		decoder.Reset()
		decoder.Decode(line.Message)
		text := decoder.MoveOutBuffer()
		if !matcher.MatchLine(text) {
			continue
		}

		if opts.Timestamps {
			bw.WriteString(line.Timestamp)
			bw.WriteByte(' ')
		}
		bw.WriteString(text)
		if err := bw.WriteByte('\n'); err != nil {
			return res, fmt.Errorf("writing export: %w", err)
		}
		res.Written++
	}

	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("writing export: %w", err)
	}
	return res, nil
}

// ToFile exports into path, replacing any existing file
func ToFile(ctx context.Context, src source.Source, path string, opts Options) (Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("creating export file: %w", err)
	}

	res, err := Export(ctx, src, f, opts)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing export file: %w", closeErr)
	}
	return res, err
}

package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/hpcloud/tail"
)

// File reads timestamped log lines ("<RFC3339> <message>") from a file and follows appends
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile creates a file source
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger}
}

// Fetch reads the lines selected by opts. Following continues from the end
// of what was read with hpcloud/tail.
func (f *File) Fetch(ctx context.Context, opts FetchOptions) (Stream, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, f.path)
		}
		return nil, domain.NewTransportError("open log file", err)
	}
	defer fh.Close()

	lines, offset, err := f.readExisting(fh, opts)
	if err != nil {
		return nil, err
	}
	stream := &fileStream{ctx: ctx, queue: lines, opts: opts}
	if !opts.Follow {
		return stream, nil
	}

	t, err := tail.TailFile(f.path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return nil, domain.NewTransportError("tail log file", err)
	}
	f.logger.Debug("following log file", "path", f.path, "offset", offset)
	stream.tail = t
	return stream, nil
}

// readExisting returns the selected lines currently in the file and the offset after the last one
func (f *File) readExisting(r io.Reader, opts FetchOptions) ([]domain.LogChunk, int64, error) {
	var (
		out    []domain.LogChunk
		offset int64
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, constants.ScannerBufferSize), constants.ScannerMaxBufferSize)
	scanner.Split(scanFullLines)
	for scanner.Scan() {
		raw := scanner.Bytes()
		offset += int64(len(raw))
		line := bytes.TrimRight(raw, "\r\n")
		if c, ok := selectLine(line, opts); ok {
			out = append(out, c)
			if opts.Tail > 0 && len(out) > opts.Tail {
				out[0] = domain.LogChunk{}
				out = out[1:]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, domain.NewTransportError("read log file", err)
	}
	return out, offset, nil
}

// scanFullLines splits on newlines and keeps them so byte offsets stay exact.
// A trailing line without newline is left for the follower.
func scanFullLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	return 0, nil, nil
}

// selectLine applies the time bounds and timestamp option to one line
func selectLine(line []byte, opts FetchOptions) (domain.LogChunk, bool) {
	ts, msg, found := bytes.Cut(line, []byte(" "))
	var t time.Time
	if found {
		t, _ = time.Parse(time.RFC3339Nano, string(ts))
	}
	if t.IsZero() {
		if !opts.Since.IsZero() || !opts.Until.IsZero() {
			return domain.LogChunk{}, false
		}
		msg = line
	} else {
		if !opts.Since.IsZero() && t.Before(opts.Since) {
			return domain.LogChunk{}, false
		}
		if !opts.Until.IsZero() && t.After(opts.Until) {
			return domain.LogChunk{}, false
		}
		if opts.Timestamps {
			msg = line
		}
	}

	raw := make([]byte, 0, len(msg)+1)
	raw = append(raw, msg...)
	return domain.LogChunk{Origin: domain.OriginStdout, Raw: append(raw, '\n')}, true
}

type fileStream struct {
	ctx   context.Context
	queue []domain.LogChunk
	opts  FetchOptions
	tail  *tail.Tail
}

func (s *fileStream) Next() (domain.LogChunk, error) {
	if len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		return c, nil
	}
	if s.tail == nil {
		return domain.LogChunk{}, io.EOF
	}
	for {
		select {
		case <-s.ctx.Done():
			return domain.LogChunk{}, s.ctx.Err()
		case line, ok := <-s.tail.Lines:
			if !ok {
				if err := s.tail.Wait(); err != nil {
					return domain.LogChunk{}, domain.NewTransportError("tail log file", err)
				}
				return domain.LogChunk{}, io.EOF
			}
			if line.Err != nil {
				return domain.LogChunk{}, domain.NewTransportError("tail log file", line.Err)
			}
			if c, ok := selectLine([]byte(line.Text), s.opts); ok {
				return c, nil
			}
		}
	}
}

func (s *fileStream) Close() error {
	if s.tail == nil {
		return nil
	}
	err := s.tail.Stop()
	s.tail.Cleanup()
	return err
}

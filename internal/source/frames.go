package source

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
)

// EncodeFrame prefixes payload with a stdout/stderr multiplexing header
func EncodeFrame(origin domain.Origin, payload []byte) []byte {
	out := make([]byte, constants.FrameHeaderSize, constants.FrameHeaderSize+len(payload))
	out[0] = origin.HeaderByte()
	binary.BigEndian.PutUint32(out[4:], uint32(len(payload)))
	return append(out, payload...)
}

func validHeader(hdr []byte) bool {
	return len(hdr) >= constants.FrameHeaderSize && hdr[0] <= 2 && hdr[1] == 0 && hdr[2] == 0 && hdr[3] == 0
}

// frameStream turns a log response body into one chunk per line.
// Multiplexed bodies are detected from the first header; anything else is
// read as bare newline separated lines.
type frameStream struct {
	br       *bufio.Reader
	body     io.Closer
	scanner  *bufio.Scanner
	detected bool
	framed   bool
	queue    []domain.LogChunk
	partial  map[domain.Origin][]byte
	eof      bool
}

// NewFrameStream wraps a log response body
func NewFrameStream(body io.ReadCloser) Stream {
	return &frameStream{
		br:      bufio.NewReaderSize(body, constants.ScannerBufferSize),
		body:    body,
		partial: make(map[domain.Origin][]byte),
	}
}

func (s *frameStream) Next() (domain.LogChunk, error) {
	for len(s.queue) == 0 {
		if s.eof {
			return domain.LogChunk{}, io.EOF
		}
		if err := s.fill(); err != nil {
			return domain.LogChunk{}, err
		}
	}
	c := s.queue[0]
	s.queue[0] = domain.LogChunk{}
	s.queue = s.queue[1:]
	return c, nil
}

func (s *frameStream) Close() error {
	return s.body.Close()
}

func (s *frameStream) fill() error {
	if !s.detected {
		if err := s.detect(); err != nil {
			return err
		}
	}
	if s.eof {
		return nil
	}
	if s.framed {
		return s.readFrame()
	}
	return s.readLine()
}

func (s *frameStream) detect() error {
	hdr, err := s.br.Peek(constants.FrameHeaderSize)
	if len(hdr) == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			s.eof = true
			s.detected = true
			return nil
		}
		return domain.NewTransportError("read log stream", err)
	}
	s.detected = true
	s.framed = validHeader(hdr)
	if !s.framed {
		s.scanner = bufio.NewScanner(s.br)
		s.scanner.Buffer(make([]byte, 0, constants.ScannerBufferSize), constants.ScannerMaxBufferSize)
	}
	return nil
}

func (s *frameStream) readFrame() error {
	var hdr [constants.FrameHeaderSize]byte
	if _, err := io.ReadFull(s.br, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			s.flushPartials()
			s.eof = true
			return nil
		}
		return domain.NewTransportError("read frame header", err)
	}
	if !validHeader(hdr[:]) {
		return domain.NewTransportError("read frame header", fmt.Errorf("invalid stream type %d", hdr[0]))
	}

	size := binary.BigEndian.Uint32(hdr[4:])
	if size > constants.ScannerMaxBufferSize {
		return domain.NewTransportError("read frame header",
			fmt.Errorf("frame of %d bytes exceeds limit of %d", size, constants.ScannerMaxBufferSize))
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(s.br, payload); err != nil {
		return domain.NewTransportError("read frame payload", err)
	}

	origin := domain.OriginFromHeader(hdr[0])
	buf := append(s.partial[origin], payload...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		s.queue = append(s.queue, frameLine(origin, buf[:i+1]))
		buf = buf[i+1:]
	}
	if len(buf) > constants.ScannerMaxBufferSize {
		s.queue = append(s.queue, frameLine(origin, buf))
		buf = nil
	}
	s.partial[origin] = bytes.Clone(buf)
	return nil
}

func (s *frameStream) flushPartials() {
	for _, origin := range []domain.Origin{domain.OriginStdout, domain.OriginStderr} {
		if buf := s.partial[origin]; len(buf) > 0 {
			s.queue = append(s.queue, frameLine(origin, buf))
		}
		delete(s.partial, origin)
	}
}

func (s *frameStream) readLine() error {
	if s.scanner.Scan() {
		line := make([]byte, 0, len(s.scanner.Bytes())+1)
		line = append(line, s.scanner.Bytes()...)
		s.queue = append(s.queue, domain.LogChunk{
			Origin: domain.OriginStdout,
			Raw:    append(line, '\n'),
		})
		return nil
	}
	if err := s.scanner.Err(); err != nil {
		return domain.NewTransportError("read log stream", err)
	}
	s.eof = true
	return nil
}

func frameLine(origin domain.Origin, line []byte) domain.LogChunk {
	return domain.LogChunk{
		Origin: origin,
		Raw:    EncodeFrame(origin, line),
		Framed: true,
	}
}

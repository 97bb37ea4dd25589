// Package ansi decodes ANSI-escaped terminal output into markup or plain text.
package ansi

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// MarkupDecoder converts ANSI SGR styling into nested markup spans.
// It keeps parser state and the stack of open spans between Decode calls,
// so styling opened on one line carries over to the next.
type MarkupDecoder struct {
	parser *xansi.Parser
	text   strings.Builder
	stack  []span
	escape bool
}

// DecoderOption configures a MarkupDecoder
type DecoderOption func(*MarkupDecoder)

// WithEscaping escapes markup metacharacters in printable text
func WithEscaping() DecoderOption {
	return func(d *MarkupDecoder) {
		d.escape = true
	}
}

// NewMarkupDecoder creates a decoder in the ground state
func NewMarkupDecoder(opts ...DecoderOption) *MarkupDecoder {
	d := &MarkupDecoder{parser: xansi.NewParser()}
	for _, opt := range opts {
		opt(d)
	}
	d.parser.SetHandler(xansi.Handler{
		Print:     d.print,
		Execute:   d.execute,
		HandleCsi: d.handleCsi,
	})
	return d
}

// Decode feeds raw bytes through the parser and reports whether every opened span has been closed.
func (d *MarkupDecoder) Decode(raw []byte) bool {
	for _, b := range raw {
		d.parser.Advance(b)
	}
	return len(d.stack) == 0
}

// BeginLine reopens the spans still open from previous lines
func (d *MarkupDecoder) BeginLine() {
	for _, s := range d.stack {
		d.text.WriteString(s.open)
	}
}

// EndLine closes the open spans in the buffer without forgetting them
func (d *MarkupDecoder) EndLine() {
	for i := len(d.stack) - 1; i >= 0; i-- {
		d.text.WriteString(d.stack[i].close)
	}
}

// MoveOutBuffer returns the accumulated markup and empties the buffer
func (d *MarkupDecoder) MoveOutBuffer() string {
	out := d.text.String()
	d.text.Reset()
	return out
}

// CloseAll pops every open span and returns the closing tags in LIFO order
func (d *MarkupDecoder) CloseAll() string {
	var b strings.Builder
	for i := len(d.stack) - 1; i >= 0; i-- {
		b.WriteString(d.stack[i].close)
	}
	d.stack = d.stack[:0]
	return b.String()
}

// Open returns the number of spans not yet closed
func (d *MarkupDecoder) Open() int {
	return len(d.stack)
}

// Reset returns the decoder to the ground state, discarding buffered text and open spans
func (d *MarkupDecoder) Reset() {
	d.parser.Reset()
	d.text.Reset()
	d.stack = d.stack[:0]
}

func (d *MarkupDecoder) print(r rune) {
	if d.escape {
		switch r {
		case '&':
			d.text.WriteString("&amp;")
			return
		case '<':
			d.text.WriteString("&lt;")
			return
		case '>':
			d.text.WriteString("&gt;")
			return
		}
	}
	d.text.WriteRune(r)
}

func (d *MarkupDecoder) execute(b byte) {
	if b == '\t' {
		d.text.WriteByte(b)
	}
}

func (d *MarkupDecoder) handleCsi(cmd xansi.Cmd, params xansi.Params) {
	if cmd.Final() != 'm' || cmd.Prefix() != 0 || cmd.Intermediate() != 0 {
		return
	}
	if len(params) == 0 {
		d.text.WriteString(d.CloseAll())
		return
	}

	skip := 0
	inGroup := false
	params.ForEach(0, func(i, code int, hasMore bool) {
		// colon separated sub-parameters belong to the code that opened the group
		member := inGroup
		inGroup = hasMore
		if member {
			return
		}
		if skip > 0 {
			skip--
			return
		}
		switch code {
		case 0:
			d.text.WriteString(d.CloseAll())
		case 38, 48:
			if !hasMore {
				skip = extendedColorArgs(params, i+1)
			}
		case 39:
			d.resetKind(spanForeground)
		case 49:
			d.resetKind(spanBackground)
		default:
			if s, ok := lookupSGR(code); ok {
				d.text.WriteString(s.open)
				d.stack = append(d.stack, s)
			}
		}
	})
}

// resetKind closes every open span and reopens all but those of the given kind
func (d *MarkupDecoder) resetKind(kind spanKind) {
	kept := make([]span, 0, len(d.stack))
	for _, s := range d.stack {
		if s.kind != kind {
			kept = append(kept, s)
		}
	}
	d.text.WriteString(d.CloseAll())
	d.stack = append(d.stack, kept...)
	d.BeginLine()
}

package ansi

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// PlainDecoder strips every escape sequence and keeps only printable text and tabs
type PlainDecoder struct {
	parser *xansi.Parser
	text   strings.Builder
}

// NewPlainDecoder creates a decoder in the ground state
func NewPlainDecoder() *PlainDecoder {
	d := &PlainDecoder{parser: xansi.NewParser()}
	d.parser.SetHandler(xansi.Handler{
		Print: func(r rune) { d.text.WriteRune(r) },
		Execute: func(b byte) {
			if b == '\t' {
				d.text.WriteByte(b)
			}
		},
	})
	return d
}

// Decode feeds raw bytes through the parser
func (d *PlainDecoder) Decode(raw []byte) {
	for _, b := range raw {
		d.parser.Advance(b)
	}
}

// MoveOutBuffer returns the accumulated text and empties the buffer
func (d *PlainDecoder) MoveOutBuffer() string {
	out := d.text.String()
	d.text.Reset()
	return out
}

// Reset returns the decoder to the ground state
func (d *PlainDecoder) Reset() {
	d.parser.Reset()
	d.text.Reset()
}

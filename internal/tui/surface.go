package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/podlogs/internal/logview"
)

// Surface renders view lines into a bubbles viewport.
// One row per buffered line; the scroll value is the viewport's YOffset.
type Surface struct {
	vp     viewport.Model
	rows   []string
	gutter func(i int) string
	dirty  bool
}

// NewSurface creates a surface of the given size
func NewSurface(width, height int) *Surface {
	return &Surface{vp: viewport.New(width, height)}
}

// Insert adds a rendered row. Prepending leaves YOffset alone, so the
// visible rows shift down until the view re-anchors.
func (s *Surface) Insert(at logview.Position, markup string) {
	row := renderMarkup(markup)
	if at == logview.PositionStart {
		s.rows = append(s.rows, "")
		copy(s.rows[1:], s.rows)
		s.rows[0] = row
	} else {
		s.rows = append(s.rows, row)
	}
	s.dirty = true
}

// Metrics reports the scroll position in rows
func (s *Surface) Metrics() logview.Metrics {
	return logview.Metrics{
		Value:    float64(s.vp.YOffset),
		PageSize: float64(s.vp.Height),
		Upper:    float64(max(len(s.rows), s.vp.Height)),
	}
}

// SetScrollValue moves the viewport, clamped to the content
func (s *Surface) SetScrollValue(value float64) {
	s.sync()
	s.vp.SetYOffset(int(value))
}

// SetGutter prefixes every row with gutter(i). nil removes the gutter.
func (s *Surface) SetGutter(gutter func(i int) string) {
	s.gutter = gutter
	s.dirty = true
}

// Resize changes the viewport dimensions
func (s *Surface) Resize(width, height int) {
	s.vp.Width = width
	s.vp.Height = height
	s.dirty = true
}

// Len returns the number of rows
func (s *Surface) Len() int {
	return len(s.rows)
}

// Update forwards key and mouse messages to the viewport
func (s *Surface) Update(msg tea.Msg) tea.Cmd {
	s.sync()
	var cmd tea.Cmd
	s.vp, cmd = s.vp.Update(msg)
	return cmd
}

// LineUp scrolls up n rows
func (s *Surface) LineUp(n int) {
	s.sync()
	s.vp.LineUp(n)
}

// LineDown scrolls down n rows
func (s *Surface) LineDown(n int) {
	s.sync()
	s.vp.LineDown(n)
}

// HalfViewUp scrolls up half a page
func (s *Surface) HalfViewUp() {
	s.sync()
	s.vp.HalfViewUp()
}

// HalfViewDown scrolls down half a page
func (s *Surface) HalfViewDown() {
	s.sync()
	s.vp.HalfViewDown()
}

// GotoTop scrolls to the first row
func (s *Surface) GotoTop() {
	s.sync()
	s.vp.GotoTop()
}

// View renders the visible rows
func (s *Surface) View() string {
	s.sync()
	return s.vp.View()
}

func (s *Surface) sync() {
	if !s.dirty {
		return
	}
	s.dirty = false

	if s.gutter == nil {
		s.vp.SetContent(strings.Join(s.rows, "\n"))
		return
	}
	var sb strings.Builder
	for i, row := range s.rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(dimStyle.Render(s.gutter(i)))
		sb.WriteByte(' ')
		sb.WriteString(row)
	}
	s.vp.SetContent(sb.String())
}

package tui

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charliek/podlogs/internal/logview"
)

func fill(s *Surface, n int) {
	for i := 0; i < n; i++ {
		s.Insert(logview.PositionEnd, "row "+strconv.Itoa(i))
	}
}

func TestSurface_Metrics(t *testing.T) {
	s := NewSurface(40, 5)
	fill(s, 12)

	m := s.Metrics()
	assert.Equal(t, 0.0, m.Value)
	assert.Equal(t, 5.0, m.PageSize)
	assert.Equal(t, 12.0, m.Upper)
	assert.Equal(t, 7.0, m.Bottom())
}

func TestSurface_SetScrollValueClamps(t *testing.T) {
	s := NewSurface(40, 5)
	fill(s, 12)

	s.SetScrollValue(4)
	assert.Equal(t, 4.0, s.Metrics().Value)

	s.SetScrollValue(100)
	assert.Equal(t, 7.0, s.Metrics().Value)
	assert.True(t, s.Metrics().AtBottom())

	s.SetScrollValue(-3)
	assert.Equal(t, 0.0, s.Metrics().Value)
}

func TestSurface_PrependKeepsOffset(t *testing.T) {
	s := NewSurface(40, 3)
	fill(s, 5)
	s.SetScrollValue(1)

	s.Insert(logview.PositionStart, "older")
	assert.Equal(t, 1.0, s.Metrics().Value)
	assert.Equal(t, 6.0, s.Metrics().Upper)
	assert.Contains(t, s.View(), "row 0")
	assert.NotContains(t, s.View(), "older")

	s.GotoTop()
	assert.Contains(t, s.View(), "older")
}

func TestSurface_Gutter(t *testing.T) {
	s := NewSurface(40, 3)
	fill(s, 2)

	s.SetGutter(func(i int) string { return "g" + strconv.Itoa(i) })
	assert.Contains(t, s.View(), "g1")

	s.SetGutter(nil)
	assert.NotContains(t, s.View(), "g1")
}

func TestSurface_RendersMarkup(t *testing.T) {
	s := NewSurface(40, 3)
	s.Insert(logview.PositionEnd, `<b>bold</b> &lt;tag&gt;`)
	assert.Contains(t, s.View(), "bold")
	assert.Contains(t, s.View(), "<tag>")
}

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.CharLimit = 100
	ti.Width = 40
	return ti
}

// handleSearchKey handles keys in search mode
func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.textInput.Blur()
		return m, nil

	case "enter":
		m.mode = ModeNormal
		m.textInput.Blur()
		m.searchPattern = m.textInput.Value()
		m.matchRow = -1
		if m.searchPattern == "" {
			return m, nil
		}
		// the first match is the newest one at or above the bottom of the page
		return m, m.nextMatch(-1)
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// nextMatch moves to the next matching line in direction dir (1 newer, -1 older), wrapping around
func (m *Model) nextMatch(dir int) tea.Cmd {
	if m.searchPattern == "" {
		return m.setInfo("No search pattern, press / to search")
	}

	from := m.lastVisibleRow()
	if row, ok := m.currentMatch(); ok {
		from = row + dir
	}
	row, ok := m.findMatch(from, dir)
	if !ok {
		m.matchRow = -1
		return m.setInfo("Pattern not found: %s", m.searchPattern)
	}

	m.matchRow = row
	m.matchShift = m.view.Stats().Prepended
	page := m.surface.Metrics().PageSize
	m.surface.SetScrollValue(max(0, float64(row)-page/2))

	nth, total := m.countMatches(row)
	return m.setInfo("Match %d of %d: %s", nth, total, m.searchPattern)
}

// currentMatch returns the row of the last match, following lines merged above it
func (m Model) currentMatch() (int, bool) {
	if m.matchRow < 0 {
		return 0, false
	}
	row := m.matchRow + m.view.Stats().Prepended - m.matchShift
	return row, row < m.view.Len()
}

func (m Model) lastVisibleRow() int {
	metrics := m.surface.Metrics()
	return min(int(metrics.Value+metrics.PageSize)-1, m.view.Len()-1)
}

// findMatch scans every row once starting at from and returns the first match
func (m Model) findMatch(from, dir int) (int, bool) {
	n := m.view.Len()
	for i := range n {
		row := ((from+dir*i)%n + n) % n
		if m.matches(row) {
			return row, true
		}
	}
	return 0, false
}

// countMatches returns the position of row among all matches and their total
func (m Model) countMatches(row int) (nth, total int) {
	for i := range m.view.Len() {
		if !m.matches(i) {
			continue
		}
		total++
		if i <= row {
			nth = total
		}
	}
	return nth, total
}

// matches compares against the text a terminal would show, ignoring case
func (m Model) matches(row int) bool {
	text := plainMarkup(m.view.Line(row).Markup)
	return strings.Contains(strings.ToLower(text), strings.ToLower(m.searchPattern))
}

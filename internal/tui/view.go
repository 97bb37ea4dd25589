package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.mode == ModeHelp {
		return m.helpView()
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.surface.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m Model) headerView() string {
	title := fmt.Sprintf("podlogs  %s  %s", m.name, stateStyle(m.state).Render(m.state.String()))
	return headerStyle.Width(m.width).Render(title)
}

func (m Model) statusBar() string {
	var left string
	switch {
	case m.mode == ModeSearch:
		left = "Search: " + m.textInput.View()
	case m.toast.Active():
		left = errorStyle.Render(xansi.Truncate(m.toast.Text(), m.width/2, "..."))
	case m.info != "":
		left = m.info
	case m.searchPattern != "":
		left = fmt.Sprintf("/%s (n/N next/previous)", m.searchPattern)
	default:
		left = "? help"
	}

	var flags []string
	if m.view.Sticky() {
		flags = append(flags, followStyle.Render("FOLLOW"))
	}
	if !m.view.Following() {
		flags = append(flags, dimStyle.Render("ended"))
	}
	if m.view.HistoryExhausted() {
		flags = append(flags, dimStyle.Render("top"))
	}
	flags = append(flags, fmt.Sprintf("%d lines", m.view.Len()))
	right := strings.Join(flags, " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) helpView() string {
	help := `Keyboard Shortcuts

Navigation:
  j/k, up/down   Scroll one line
  b/space        Scroll half a page
  g/G            Oldest loaded line / newest line
  F              Toggle follow

Search:
  /              Search the loaded lines
  n/N            Next newer / older match

Actions:
  t              Toggle timestamps
  s              Start container
  e              Export log to ` + m.exportPath() + `
  ?              Toggle help
  q              Quit`

	return helpStyle.Render(help)
}

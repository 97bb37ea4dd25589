package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/podlogs/internal/logview"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		cmds = append(cmds, m.surface.Update(msg))

	case engineEventMsg:
		m.view.Handle(logview.Event(msg))
		cmds = append(cmds, waitForEvent(m.view.Events()))

	case statusTickMsg:
		if m.states != nil {
			cmds = append(cmds, pollStatus(m.ctx, m.states))
		}

	case statusMsg:
		m.handleStatus(msg)
		cmds = append(cmds, statusTickCmd(m.statusPoll))

	case startResultMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setInfo("Start failed: %v", msg.err))
		} else {
			cmds = append(cmds, m.setInfo("Started: %s", m.name))
			if m.states != nil {
				cmds = append(cmds, pollStatus(m.ctx, m.states))
			}
		}

	case exportResultMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setInfo("Export failed: %v", msg.err))
		} else {
			cmds = append(cmds, m.setInfo("Exported %d lines to %s", msg.result.Written, msg.path))
		}

	case infoClearMsg:
		if msg.seq == m.infoSeq {
			m.info = ""
		}

	case toastClearMsg:
		m.toast.clear(msg.seq)
	}

	if m.ready {
		m.view.OnViewportChanged(m.surface.Metrics())
	}
	if m.toast.seq != m.toastSeen {
		m.toastSeen = m.toast.seq
		cmds = append(cmds, toastClearCmd(m.toastSeen))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.surface.Resize(msg.Width, max(1, msg.Height-headerHeight-footerHeight))

	if !m.ready {
		m.ready = true
		m.view.Open(m.ctx)
	}
}

// handleStatus refollows the log when the container comes back
func (m *Model) handleStatus(msg statusMsg) {
	if msg.err != nil {
		return
	}
	prev := m.state
	m.state = msg.state
	if m.ready && !prev.IsRunning() && msg.state.IsRunning() && !m.view.Following() {
		m.view.Refollow()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.mode == ModeSearch {
		return m.handleSearchKey(msg)
	}
	if m.mode == ModeHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.mode = ModeNormal
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.view.Close()
		return m, tea.Quit

	case "?":
		m.mode = ModeHelp

	case "/":
		m.mode = ModeSearch
		m.textInput.SetValue("")
		m.textInput.Focus()

	case "n":
		return m, m.nextMatch(1)

	case "N":
		return m, m.nextMatch(-1)

	case "F":
		if m.view.Sticky() {
			m.surface.LineUp(1)
		} else {
			m.view.ScrollToBottom()
		}

	case "t":
		m.showTimestamps = !m.showTimestamps
		m.applyGutter()

	case "s":
		if m.starter == nil {
			return m, m.setInfo("Start is not supported for this source")
		}
		if m.state.IsRunning() {
			return m, m.setInfo("Already running: %s", m.name)
		}
		return m, startContainer(m.ctx, m.starter)

	case "e":
		return m, exportLog(m.ctx, m.src, m.exportPath(), m.showTimestamps)

	case "up", "k":
		m.surface.LineUp(1)
	case "down", "j":
		m.surface.LineDown(1)
	case "pgup", "b":
		m.surface.HalfViewUp()
	case "pgdown", " ":
		m.surface.HalfViewDown()
	case "home", "g":
		m.surface.GotoTop()
	case "end", "G":
		m.view.ScrollToBottom()
	}
	return m, nil
}

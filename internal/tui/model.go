package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/export"
	"github.com/charliek/podlogs/internal/logview"
	"github.com/charliek/podlogs/internal/source"
)

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeHelp
	ModeSearch
)

// Layout
const (
	headerHeight = 1
	footerHeight = 1
)

// Options configures the viewer
type Options struct {
	Name           string
	ShowTimestamps bool
	StatusPoll     time.Duration
	ExportDir      string
}

// Model is the bubbletea model for a single container log
type Model struct {
	ctx  context.Context
	name string
	src  source.Source

	view    *logview.View
	surface *Surface
	toast   *Toast

	// optional capabilities of src
	states  source.StateReader
	starter source.Starter

	state          domain.ContainerState
	showTimestamps bool
	statusPoll     time.Duration
	exportDir      string

	mode      Mode
	info      string
	infoSeq   int
	toastSeen int

	textInput     textinput.Model
	searchPattern string
	matchRow      int // -1 when there is no current match
	matchShift    int // lines prepended when matchRow was found

	width  int
	height int
	ready  bool
}

// NewModel creates the viewer for src. The view is opened on the first window size.
func NewModel(ctx context.Context, src source.Source, opts Options, viewOpts ...logview.Option) Model {
	if opts.StatusPoll <= 0 {
		opts.StatusPoll = constants.DefaultStatusPoll
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	surface := NewSurface(0, 0)
	toast := &Toast{}
	m := Model{
		ctx:            ctx,
		name:           opts.Name,
		src:            src,
		view:           logview.New(src, surface, toast, viewOpts...),
		surface:        surface,
		toast:          toast,
		showTimestamps: opts.ShowTimestamps,
		statusPoll:     opts.StatusPoll,
		exportDir:      opts.ExportDir,
		state:          domain.ContainerStateUnknown,
		textInput:      newSearchInput(),
		matchRow:       -1,
	}
	m.states, _ = src.(source.StateReader)
	m.starter, _ = src.(source.Starter)
	m.applyGutter()
	return m
}

// Init starts waiting for engine events and polling the container state
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.view.Events())}
	if m.states != nil {
		cmds = append(cmds, pollStatus(m.ctx, m.states))
	}
	return tea.Batch(cmds...)
}

// LogView returns the log view driving the surface
func (m Model) LogView() *logview.View {
	return m.view
}

// engineEventMsg carries one logview event to the UI goroutine
type engineEventMsg logview.Event

// statusMsg reports a polled container state
type statusMsg struct {
	state domain.ContainerState
	err   error
}

// statusTickMsg schedules the next poll
type statusTickMsg struct{}

// startResultMsg is sent when a start request completes
type startResultMsg struct {
	err error
}

// exportResultMsg is sent when an export completes
type exportResultMsg struct {
	path   string
	result export.Result
	err    error
}

// infoClearMsg clears the status info if it is still the one identified by seq
type infoClearMsg struct {
	seq int
}

// toastClearMsg clears the toast if it is still the one identified by seq
type toastClearMsg struct {
	seq int
}

// infoClearDelay is how long to show a status message before clearing
const infoClearDelay = 3 * time.Second

func waitForEvent(events <-chan logview.Event) tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg(<-events)
	}
}

func pollStatus(ctx context.Context, states source.StateReader) tea.Cmd {
	return func() tea.Msg {
		state, err := states.State(ctx)
		return statusMsg{state: state, err: err}
	}
}

func statusTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

func startContainer(ctx context.Context, starter source.Starter) tea.Cmd {
	return func() tea.Msg {
		return startResultMsg{err: starter.Start(ctx)}
	}
}

func exportLog(ctx context.Context, src source.Source, path string, timestamps bool) tea.Cmd {
	return func() tea.Msg {
		res, err := export.ToFile(ctx, src, path, export.Options{Timestamps: timestamps})
		return exportResultMsg{path: path, result: res, err: err}
	}
}

func infoClearCmd(seq int) tea.Cmd {
	return tea.Tick(infoClearDelay, func(time.Time) tea.Msg {
		return infoClearMsg{seq: seq}
	})
}

func toastClearCmd(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastClearMsg{seq: seq}
	})
}

// setInfo shows a transient status message
func (m *Model) setInfo(format string, args ...any) tea.Cmd {
	m.info = fmt.Sprintf(format, args...)
	m.infoSeq++
	return infoClearCmd(m.infoSeq)
}

func (m *Model) applyGutter() {
	if !m.showTimestamps {
		m.surface.SetGutter(nil)
		return
	}
	view := m.view
	m.surface.SetGutter(func(i int) string {
		if i >= view.Len() {
			return ""
		}
		return view.Line(i).Time.Local().Format(time.DateTime)
	})
}

func (m Model) exportPath() string {
	return filepath.Join(m.exportDir, m.name+".log")
}

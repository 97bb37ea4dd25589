package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/logview"
)

// open sizes the window and consumes the initial tail: every chunk plus the end of stream
func open(t *testing.T, src *fakeSource, opts Options, height int) Model {
	t.Helper()
	m := NewModel(t.Context(), src, opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: height})
	require.True(t, m.ready)
	return pumpEvents(t, m, len(src.chunks)+1)
}

func TestModel_InitialView(t *testing.T) {
	m := NewModel(t.Context(), &fakeSource{}, Options{Name: "web"})
	assert.Equal(t, "Initializing...", m.View())
	assert.Equal(t, domain.ContainerStateUnknown, m.state)
	assert.NotNil(t, m.Init())
}

func TestModel_LoadsTail(t *testing.T) {
	src := &fakeSource{chunks: lines(3)}
	m := open(t, src, Options{Name: "web"}, 20)

	assert.Equal(t, 3, m.LogView().Len())
	assert.False(t, m.LogView().Following())

	view := m.View()
	assert.Contains(t, view, "web")
	assert.Contains(t, view, "line 2")
	assert.Contains(t, view, "3 lines")

	fetches := src.Fetches()
	require.Len(t, fetches, 1)
	assert.True(t, fetches[0].Follow)
	assert.True(t, fetches[0].Timestamps)
}

func TestModel_ToggleFollow(t *testing.T) {
	src := &fakeSource{chunks: lines(10)}
	m := open(t, src, Options{Name: "web"}, 5)
	require.True(t, m.LogView().Sticky())

	m, _ = update(t, m, key("F"))
	assert.False(t, m.LogView().Sticky())
	assert.Less(t, m.surface.Metrics().Value, m.surface.Metrics().Bottom())

	m, _ = update(t, m, key("F"))
	assert.True(t, m.LogView().Sticky())
	assert.Equal(t, m.surface.Metrics().Bottom(), m.surface.Metrics().Value)
}

func TestModel_ToggleTimestamps(t *testing.T) {
	src := &fakeSource{chunks: lines(1)}
	m := open(t, src, Options{Name: "web"}, 20)

	stamp := t0.Local().Format(time.DateTime)
	assert.NotContains(t, m.View(), stamp)

	m, _ = update(t, m, key("t"))
	assert.Contains(t, m.View(), stamp)

	m, _ = update(t, m, key("t"))
	assert.NotContains(t, m.View(), stamp)
}

func TestModel_RefollowOnRestart(t *testing.T) {
	src := &fakeSource{chunks: lines(3)}
	m := open(t, src, Options{Name: "web"}, 20)

	m, _ = update(t, m, statusMsg{state: domain.ContainerStateExited})
	assert.Len(t, src.Fetches(), 1)

	m, _ = update(t, m, statusMsg{state: domain.ContainerStateRunning})
	assert.True(t, m.LogView().Following())
	assert.Equal(t, domain.ContainerStateRunning, m.state)

	require.Eventually(t, func() bool { return len(src.Fetches()) == 2 }, 2*time.Second, 10*time.Millisecond)
	refollow := src.Fetches()[1]
	assert.True(t, refollow.Follow)
	assert.Equal(t, t0.Add(3*time.Second), refollow.Since.UTC())
}

func TestModel_StatusErrorKeepsState(t *testing.T) {
	src := &fakeSource{chunks: lines(1)}
	m := open(t, src, Options{Name: "web"}, 20)

	m, _ = update(t, m, statusMsg{state: domain.ContainerStateRunning})
	m, _ = update(t, m, statusMsg{err: errors.New("engine down")})
	assert.Equal(t, domain.ContainerStateRunning, m.state)
}

func TestModel_TailErrorShowsToast(t *testing.T) {
	src := &fakeSource{chunks: lines(2), tailErr: errors.New("connection reset")}
	m := open(t, src, Options{Name: "web"}, 20)

	assert.True(t, m.toast.Active())
	assert.Contains(t, m.View(), logview.TailErrorTitle)
	assert.Equal(t, 1, m.LogView().Stats().TailErrors)

	m, _ = update(t, m, toastClearMsg{seq: m.toast.seq - 1})
	assert.True(t, m.toast.Active(), "stale clear keeps the toast")

	m, _ = update(t, m, toastClearMsg{seq: m.toast.seq})
	assert.False(t, m.toast.Active())
}

func TestModel_StartContainer(t *testing.T) {
	src := &fakeSource{chunks: lines(1)}
	m := open(t, src, Options{Name: "web"}, 20)
	m, _ = update(t, m, statusMsg{state: domain.ContainerStateExited})

	m, cmd := update(t, m, key("s"))
	msg := run(t, cmd)
	require.IsType(t, startResultMsg{}, msg)
	assert.Equal(t, 1, src.starts)

	m, _ = update(t, m, msg)
	assert.Contains(t, m.info, "Started: web")
}

func TestModel_StartWhileRunning(t *testing.T) {
	src := &fakeSource{chunks: lines(1)}
	m := open(t, src, Options{Name: "web"}, 20)
	m, _ = update(t, m, statusMsg{state: domain.ContainerStateRunning})

	m, _ = update(t, m, key("s"))
	assert.Contains(t, m.info, "Already running")
	assert.Equal(t, 0, src.starts)
}

func TestModel_StartFailure(t *testing.T) {
	src := &fakeSource{chunks: lines(1), startErr: errors.New("no such container")}
	m := open(t, src, Options{Name: "web"}, 20)

	m, _ = update(t, m, startResultMsg{err: src.startErr})
	assert.Contains(t, m.info, "Start failed: no such container")

	m, _ = update(t, m, infoClearMsg{seq: m.infoSeq})
	assert.Empty(t, m.info)
}

func TestModel_Export(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{chunks: lines(3)}
	m := open(t, src, Options{Name: "web", ExportDir: dir}, 20)

	m, cmd := update(t, m, key("e"))
	msg := run(t, cmd)
	result, ok := msg.(exportResultMsg)
	require.True(t, ok)
	require.NoError(t, result.err)
	assert.Equal(t, 3, result.result.Written)

	data, err := os.ReadFile(filepath.Join(dir, "web.log"))
	require.NoError(t, err)
	assert.Equal(t, "line 0\nline 1\nline 2\n", string(data))

	m, _ = update(t, m, msg)
	assert.Contains(t, m.info, "Exported 3 lines")
}

func TestModel_HelpMode(t *testing.T) {
	m := open(t, &fakeSource{}, Options{Name: "web"}, 20)

	m, _ = update(t, m, key("?"))
	assert.Equal(t, ModeHelp, m.mode)
	assert.True(t, strings.Contains(m.View(), "Keyboard Shortcuts"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeNormal, m.mode)
}

func TestModel_Quit(t *testing.T) {
	m := open(t, &fakeSource{chunks: lines(1)}, Options{Name: "web"}, 20)

	_, cmd := update(t, m, key("q"))
	assert.Equal(t, tea.Quit(), run(t, cmd))
	assert.False(t, m.LogView().Following())
}

// searchLog loads 50 lines with colored matches at rows 20 and 40 into a page of 10 rows
func searchLog(t *testing.T) Model {
	t.Helper()
	chunks := lines(50)
	chunks[20] = chunk(20, "\x1b[31merror\x1b[0m boom")
	chunks[40] = chunk(40, "\x1b[1;31mERROR\x1b[0m boom <done>")
	m := open(t, &fakeSource{chunks: chunks}, Options{Name: "web"}, 12)
	require.Equal(t, float64(40), m.surface.Metrics().Value)
	return m
}

func search(t *testing.T, m Model, pattern string) (Model, tea.Cmd) {
	t.Helper()
	m, _ = update(t, m, key("/"))
	require.Equal(t, ModeSearch, m.mode)
	m, _ = update(t, m, key(pattern))
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestModel_SearchJumpsBetweenMatches(t *testing.T) {
	m := searchLog(t)

	m, _ = search(t, m, "Error Boom")
	assert.Equal(t, ModeNormal, m.mode)
	assert.Equal(t, "Error Boom", m.searchPattern)
	assert.Equal(t, 40, m.matchRow)
	assert.Equal(t, float64(35), m.surface.Metrics().Value)
	assert.Contains(t, m.info, "Match 2 of 2")

	m, _ = update(t, m, key("n"))
	assert.Equal(t, 20, m.matchRow)
	assert.Equal(t, float64(15), m.surface.Metrics().Value)
	assert.Contains(t, m.info, "Match 1 of 2")
	assert.False(t, m.LogView().Sticky())

	m, _ = update(t, m, key("N"))
	assert.Equal(t, 40, m.matchRow)
	assert.Contains(t, m.info, "Match 2 of 2")

	m, _ = update(t, m, key("N"))
	assert.Equal(t, 20, m.matchRow)
}

func TestModel_SearchIgnoresEscapesAndMarkup(t *testing.T) {
	m := searchLog(t)

	m, _ = search(t, m, "31m")
	assert.Equal(t, -1, m.matchRow)
	assert.Contains(t, m.info, "Pattern not found: 31m")

	m, _ = search(t, m, "span")
	assert.Equal(t, -1, m.matchRow)

	m, _ = search(t, m, "<done>")
	assert.Equal(t, 40, m.matchRow)
	assert.Contains(t, m.info, "Match 1 of 1")
}

func TestModel_SearchPromptTakesKeys(t *testing.T) {
	m := searchLog(t)

	m, _ = update(t, m, key("/"))
	m, _ = update(t, m, key("q"))
	assert.Equal(t, ModeSearch, m.mode)
	assert.Equal(t, "q", m.textInput.Value())
	assert.Contains(t, m.View(), "Search: ")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeNormal, m.mode)
	assert.Empty(t, m.searchPattern)
	assert.Equal(t, float64(40), m.surface.Metrics().Value)
}

func TestModel_NextWithoutPattern(t *testing.T) {
	m := searchLog(t)

	m, _ = update(t, m, key("n"))
	assert.Contains(t, m.info, "press / to search")
	assert.Equal(t, float64(40), m.surface.Metrics().Value)
}

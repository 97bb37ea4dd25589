package tui

import "time"

// toastDuration is how long an error stays in the status bar
const toastDuration = 5 * time.Second

// Toast is a logview.Notifier that shows the latest error in the status bar
type Toast struct {
	title  string
	detail string
	seq    int
}

// NotifyError replaces the current toast
func (t *Toast) NotifyError(title, detail string) {
	t.title = title
	t.detail = detail
	t.seq++
}

// Active reports whether a toast is showing
func (t *Toast) Active() bool {
	return t.title != ""
}

// Text returns the toast as one line
func (t *Toast) Text() string {
	if t.detail == "" {
		return t.title
	}
	return t.title + ": " + t.detail
}

// clear hides the toast if it is still the one identified by seq
func (t *Toast) clear(seq int) {
	if seq == t.seq {
		t.title = ""
		t.detail = ""
	}
}

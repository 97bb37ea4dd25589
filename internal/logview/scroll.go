package logview

// scrollController decides between following the tail and reading history
type scrollController struct {
	sticky        bool
	autoScrolling bool
	prevValue     float64
}

// observe records new viewport metrics and reports whether the user is
// scrolling up near the top.
func (s *scrollController) observe(m Metrics) bool {
	wantHistory := false
	if s.autoScrolling {
		if m.AtBottom() {
			s.autoScrolling = false
			s.sticky = true
		}
	} else {
		s.sticky = m.AtBottom()
		wantHistory = m.Value < s.prevValue && m.Value < m.PageSize
	}
	s.prevValue = m.Value
	return wantHistory
}

// follows reports whether content growth should pull the viewport down
func (s *scrollController) follows() bool {
	return s.sticky || s.autoScrolling
}

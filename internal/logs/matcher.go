package logs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charliek/podlogs/internal/domain"
	xansi "github.com/charmbracelet/x/ansi"
)

// MaxPatternLength is the longest grep pattern a client may send
const MaxPatternLength = 256

// Matcher is a compiled domain.LogFilter.
// Patterns are matched against the text a terminal would show, so escape
// sequences in captured output never split or fake a match.
type Matcher struct {
	filter     domain.LogFilter
	containers map[string]struct{}
	regex      *regexp.Regexp
}

// Compile validates the filter and prepares it for matching
func Compile(filter domain.LogFilter) (*Matcher, error) {
	if len(filter.Pattern) > MaxPatternLength {
		return nil, fmt.Errorf("%w: pattern exceeds maximum length of %d characters", domain.ErrInvalidPattern, MaxPatternLength)
	}

	m := &Matcher{filter: filter}
	if filter.Pattern != "" && filter.IsRegex {
		re, err := regexp.Compile(filter.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
		}
		m.regex = re
	}
	if len(filter.Containers) > 0 {
		m.containers = make(map[string]struct{}, len(filter.Containers))
		for _, name := range filter.Containers {
			m.containers[name] = struct{}{}
		}
	}
	return m, nil
}

func (m *Matcher) wantsContainer(name string) bool {
	if m.containers == nil {
		return true
	}
	_, ok := m.containers[name]
	return ok
}

// Match reports whether a captured entry passes every criterion
func (m *Matcher) Match(entry domain.LogEntry) bool {
	if !m.wantsContainer(entry.Container) ||
		!m.filter.MatchesStream(entry.Stream) ||
		!m.filter.MatchesTime(entry.Timestamp) {
		return false
	}
	if m.filter.Pattern == "" {
		return true
	}
	return m.MatchLine(plainText(entry.Line))
}

// MatchLine applies only the pattern to already rendered text
func (m *Matcher) MatchLine(text string) bool {
	switch {
	case m.filter.Pattern == "":
		return true
	case m.regex != nil:
		return m.regex.MatchString(text)
	default:
		return strings.Contains(text, m.filter.Pattern)
	}
}

func plainText(line string) string {
	if !strings.ContainsRune(line, 0x1b) {
		return line
	}
	return xansi.Strip(line)
}

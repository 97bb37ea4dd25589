package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// segment is a run of text with one resolved style
type segment struct {
	text string
	bold bool
	fg   string
	bg   string
}

type attrKind int

const (
	attrBold attrKind = iota
	attrForeground
	attrBackground
	attrNone // unknown tag, still balanced by its closing tag
)

type attr struct {
	kind  attrKind
	value string
}

var markupUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

// parseMarkup resolves the decoder's span markup into styled segments.
// Unknown tags are kept on the stack so their closing tags stay paired.
func parseMarkup(markup string) []segment {
	var segs []segment
	var stack []attr

	for len(markup) > 0 {
		open := strings.IndexByte(markup, '<')
		if open < 0 {
			segs = appendText(segs, markup, stack)
			break
		}
		if open > 0 {
			segs = appendText(segs, markup[:open], stack)
			markup = markup[open:]
		}

		end := strings.IndexByte(markup, '>')
		if end < 0 {
			segs = appendText(segs, markup, stack)
			break
		}
		tag := markup[1:end]
		markup = markup[end+1:]

		if strings.HasPrefix(tag, "/") {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		stack = append(stack, parseTag(tag))
	}
	return segs
}

func parseTag(tag string) attr {
	if tag == "b" {
		return attr{kind: attrBold}
	}
	name, rest, _ := strings.Cut(tag, " ")
	if name != "span" {
		return attr{kind: attrNone}
	}
	key, value, ok := strings.Cut(rest, "=")
	if !ok {
		return attr{kind: attrNone}
	}
	value = strings.Trim(value, `"`)
	switch key {
	case "foreground":
		return attr{kind: attrForeground, value: value}
	case "background":
		return attr{kind: attrBackground, value: value}
	}
	return attr{kind: attrNone}
}

func appendText(segs []segment, text string, stack []attr) []segment {
	if text == "" {
		return segs
	}
	seg := segment{text: markupUnescaper.Replace(text)}
	for _, a := range stack {
		switch a.kind {
		case attrBold:
			seg.bold = true
		case attrForeground:
			seg.fg = a.value
		case attrBackground:
			seg.bg = a.value
		}
	}
	return append(segs, seg)
}

// plainMarkup returns the text of markup without tags or entities
func plainMarkup(markup string) string {
	var sb strings.Builder
	for _, seg := range parseMarkup(markup) {
		sb.WriteString(seg.text)
	}
	return sb.String()
}

// renderMarkup turns markup into a terminal string
func renderMarkup(markup string) string {
	var sb strings.Builder
	for _, seg := range parseMarkup(markup) {
		if !seg.bold && seg.fg == "" && seg.bg == "" {
			sb.WriteString(seg.text)
			continue
		}
		style := lipgloss.NewStyle().Bold(seg.bold)
		if seg.fg != "" {
			style = style.Foreground(lipgloss.Color(seg.fg))
		}
		if seg.bg != "" {
			style = style.Background(lipgloss.Color(seg.bg))
		}
		sb.WriteString(style.Render(seg.text))
	}
	return sb.String()
}

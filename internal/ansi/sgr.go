package ansi

import xansi "github.com/charmbracelet/x/ansi"

var basePalette = [8]string{
	"#000000", "#e01b24", "#33d17a", "#f6d32d",
	"#3584e4", "#d4267e", "#00f7f7", "#ffffff",
}

var brightPalette = [8]string{
	"#3d3846", "#f66151", "#8ff0a4", "#f9f06b",
	"#99c1f1", "#c061cb", "#33c7de", "#ffffff",
}

type spanKind uint8

const (
	spanBold spanKind = iota
	spanForeground
	spanBackground
)

type span struct {
	kind  spanKind
	open  string
	close string
}

var boldSpan = span{kind: spanBold, open: "<b>", close: "</b>"}

// lookupSGR maps a single SGR attribute code to its markup span
func lookupSGR(code int) (span, bool) {
	switch {
	case code == 1:
		return boldSpan, true
	case code >= 30 && code <= 37:
		return colorSpan(spanForeground, basePalette[code-30]), true
	case code >= 40 && code <= 47:
		return colorSpan(spanBackground, basePalette[code-40]), true
	case code >= 90 && code <= 97:
		return colorSpan(spanForeground, brightPalette[code-90]), true
	case code >= 100 && code <= 107:
		return colorSpan(spanBackground, brightPalette[code-100]), true
	}
	return span{}, false
}

func colorSpan(kind spanKind, color string) span {
	attr := "foreground"
	if kind == spanBackground {
		attr = "background"
	}
	return span{kind: kind, open: `<span ` + attr + `="` + color + `">`, close: "</span>"}
}

// extendedColorArgs returns how many parameters starting at from belong to
// a semicolon separated 38/48 introducer
func extendedColorArgs(params xansi.Params, from int) int {
	rest := len(params) - from
	if rest <= 0 {
		return 0
	}
	mode, _, _ := params.Param(from, 0)
	switch mode {
	case 5:
		return min(2, rest)
	case 2:
		return min(4, rest)
	}
	return 1
}

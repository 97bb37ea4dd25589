package logview

// Position selects the end of the render surface an insertion goes to
type Position int

const (
	PositionStart Position = iota
	PositionEnd
)

// Metrics describes the vertical scroll state of a render surface
type Metrics struct {
	Value    float64 // offset of the first visible row
	PageSize float64 // visible rows
	Upper    float64 // total content height, never less than PageSize
}

// AtBottom reports whether the last row is visible
func (m Metrics) AtBottom() bool {
	return m.Value+m.PageSize >= m.Upper
}

// Bottom returns the largest valid scroll value
func (m Metrics) Bottom() float64 {
	return max(0, m.Upper-m.PageSize)
}

// Surface renders markup lines and exposes its scroll position
type Surface interface {
	Insert(at Position, markup string)
	Metrics() Metrics
	SetScrollValue(v float64)
}

// Notifier shows user-visible errors. Implementations must not block.
type Notifier interface {
	NotifyError(title, detail string)
}

package logview

import "github.com/charliek/podlogs/internal/domain"

// LineBuffer is a double-ended sequence of lines kept in timestamp order.
// The front half is stored reversed so both ends grow in amortized O(1).
type LineBuffer struct {
	front []domain.TimestampedLine
	back  []domain.TimestampedLine
}

// Len returns the number of lines
func (b *LineBuffer) Len() int {
	return len(b.front) + len(b.back)
}

// At returns the i-th line from the front
func (b *LineBuffer) At(i int) domain.TimestampedLine {
	if i < len(b.front) {
		return b.front[len(b.front)-1-i]
	}
	return b.back[i-len(b.front)]
}

// Front returns the oldest line
func (b *LineBuffer) Front() (domain.TimestampedLine, bool) {
	if b.Len() == 0 {
		return domain.TimestampedLine{}, false
	}
	return b.At(0), true
}

// Back returns the newest line
func (b *LineBuffer) Back() (domain.TimestampedLine, bool) {
	if b.Len() == 0 {
		return domain.TimestampedLine{}, false
	}
	return b.At(b.Len() - 1), true
}

// PushBack appends a line unless it is older than the current back
func (b *LineBuffer) PushBack(line domain.TimestampedLine) bool {
	if last, ok := b.Back(); ok && line.Before(last) {
		return false
	}
	b.back = append(b.back, line)
	return true
}

// PushFront prepends a line unless it is newer than the current front
func (b *LineBuffer) PushFront(line domain.TimestampedLine) bool {
	if first, ok := b.Front(); ok && first.Before(line) {
		return false
	}
	b.front = append(b.front, line)
	return true
}

// Lines returns a copy of all lines, oldest first
func (b *LineBuffer) Lines() []domain.TimestampedLine {
	out := make([]domain.TimestampedLine, 0, b.Len())
	for i := len(b.front) - 1; i >= 0; i-- {
		out = append(out, b.front[i])
	}
	return append(out, b.back...)
}

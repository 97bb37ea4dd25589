package logs

import (
	"sort"

	"github.com/charliek/podlogs/internal/domain"
)

// record is a stored entry tagged with its place in the global write order
type record struct {
	seq   uint64
	entry domain.LogEntry
}

// journal keeps the newest lines of each container under a per-container
// cap, so a noisy container never evicts a quiet one's history.
// The Manager serializes all access.
type journal struct {
	perContainer int
	seq          uint64
	lines        int
	byName       map[string][]record
}

func newJournal(perContainer int) *journal {
	return &journal{
		perContainer: perContainer,
		byName:       make(map[string][]record),
	}
}

func (j *journal) append(entry domain.LogEntry) {
	j.seq++
	recs := append(j.byName[entry.Container], record{seq: j.seq, entry: entry})
	if over := len(recs) - j.perContainer; over > 0 {
		recs = recs[over:]
	} else {
		j.lines++
	}
	j.byName[entry.Container] = recs
}

// tail returns the newest limit entries accepted by m, oldest first.
// A limit <= 0 returns every accepted entry.
func (j *journal) tail(m *Matcher, limit int) []domain.LogEntry {
	var picked []record
	for name, recs := range j.byName {
		if !m.wantsContainer(name) {
			continue
		}
		n := 0
		for i := len(recs) - 1; i >= 0; i-- {
			if !m.Match(recs[i].entry) {
				continue
			}
			picked = append(picked, recs[i])
			n++
			if limit > 0 && n == limit {
				break
			}
		}
	}
	if len(picked) == 0 {
		return nil
	}

	sort.Slice(picked, func(a, b int) bool { return picked[a].seq < picked[b].seq })
	if limit > 0 && len(picked) > limit {
		picked = picked[len(picked)-limit:]
	}
	out := make([]domain.LogEntry, len(picked))
	for i, r := range picked {
		out[i] = r.entry
	}
	return out
}

func (j *journal) containers() int {
	return len(j.byName)
}

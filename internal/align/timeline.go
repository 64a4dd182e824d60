package align

import (
	"github.com/MrWong99/transcriptsync/internal/align/textnorm"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// Timeline is a timed transcript with every entry normalised once up front.
// It is read-only after construction and may be shared between searches.
type Timeline struct {
	entries []types.TimedEntry
	tokens  [][]string
	totalMs int64
}

// NewTimeline normalises the text of every entry. The caller keeps ownership
// of entries; the Timeline never modifies them.
func NewTimeline(entries []types.TimedEntry) *Timeline {
	tl := &Timeline{
		entries: entries,
		tokens:  make([][]string, len(entries)),
	}
	for i, e := range entries {
		tl.tokens[i] = textnorm.Normalize(e.Text)
		tl.totalMs = max(tl.totalMs, e.EndMs)
	}
	return tl
}

// Len returns the number of timed entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Entry returns the i-th timed entry.
func (t *Timeline) Entry(i int) types.TimedEntry {
	return t.entries[i]
}

// DurationMs returns the largest end offset of any entry.
func (t *Timeline) DurationMs() int64 {
	return t.totalMs
}

package align

import (
	"log/slog"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// InterpolationMode names how pass 2 placed a turn that has no anchor.
type InterpolationMode string

const (
	// InterpolateBetween spreads turns across the gap between two anchors.
	InterpolateBetween InterpolationMode = "between"

	// InterpolateLeading extrapolates backwards from the first anchor.
	InterpolateLeading InterpolationMode = "leading"

	// InterpolateTrailing spreads turns across the time after the last anchor.
	InterpolateTrailing InterpolationMode = "trailing"

	// InterpolateEven spreads turns across the whole timeline when no anchor
	// exists at all.
	InterpolateEven InterpolationMode = "even"
)

// Observer receives every decision the aligner makes during one run. It lets
// callers and tests inspect alignment behaviour without depending on a
// logging backend. Calls happen synchronously on the goroutine running
// [Aligner.Align], in decision order.
type Observer interface {
	// TranscriptStart reports the detected index of the first body turn.
	TranscriptStart(index int)

	// Searched reports that pass 1 is about to search for turnIndex starting
	// at timed-entry cursor.
	Searched(turnIndex, cursor int)

	// Anchored reports a new pass-1 anchor.
	Anchored(a Anchor)

	// Missed reports that no span cleared the anchor floor for turnIndex.
	Missed(turnIndex, cursor int)

	// Interpolated reports a pass-2 placement for a turn without an anchor.
	Interpolated(turnIndex int, seg types.Segment, mode InterpolationMode)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) TranscriptStart(int)                                {}
func (NopObserver) Searched(int, int)                                  {}
func (NopObserver) Anchored(Anchor)                                    {}
func (NopObserver) Missed(int, int)                                    {}
func (NopObserver) Interpolated(int, types.Segment, InterpolationMode) {}

// LogObserver writes every event to a [slog.Logger] at debug level.
type LogObserver struct {
	log *slog.Logger
}

// NewLogObserver returns an [Observer] that logs to l, or to the default
// logger when l is nil.
func NewLogObserver(l *slog.Logger) *LogObserver {
	if l == nil {
		l = slog.Default()
	}
	return &LogObserver{log: l}
}

func (o *LogObserver) TranscriptStart(index int) {
	o.log.Debug("align: transcript start detected", "turn", index)
}

func (o *LogObserver) Searched(turnIndex, cursor int) {}

func (o *LogObserver) Anchored(a Anchor) {
	o.log.Debug("align: anchor placed",
		"turn", a.TurnIndex,
		"speaker", a.Speaker,
		"entries", [2]int{a.EntryStart, a.EntryEnd},
		"start_ms", a.StartMs,
		"end_ms", a.EndMs,
		"confidence", a.Confidence,
	)
}

func (o *LogObserver) Missed(turnIndex, cursor int) {
	o.log.Debug("align: no anchor", "turn", turnIndex, "cursor", cursor)
}

func (o *LogObserver) Interpolated(turnIndex int, seg types.Segment, mode InterpolationMode) {
	o.log.Debug("align: turn interpolated",
		"turn", turnIndex,
		"mode", string(mode),
		"start_ms", seg.StartMs,
		"end_ms", seg.EndMs,
	)
}

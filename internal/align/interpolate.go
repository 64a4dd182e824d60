package align

import (
	"slices"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// anchorIndex maps turn indices to anchors. It is built once after pass 1 so
// that "has this turn an anchor" and "which anchors surround it" are direct
// queries.
type anchorIndex struct {
	byTurn map[int]Anchor
	turns  []int // sorted
}

func newAnchorIndex(anchors []Anchor) anchorIndex {
	idx := anchorIndex{
		byTurn: make(map[int]Anchor, len(anchors)),
		turns:  make([]int, 0, len(anchors)),
	}
	for _, a := range anchors {
		idx.byTurn[a.TurnIndex] = a
		idx.turns = append(idx.turns, a.TurnIndex)
	}
	slices.Sort(idx.turns)
	return idx
}

func (x anchorIndex) at(turn int) (Anchor, bool) {
	a, ok := x.byTurn[turn]
	return a, ok
}

// neighbours returns the closest anchors before and after turn, if any.
func (x anchorIndex) neighbours(turn int) (prev, next *Anchor) {
	pos, _ := slices.BinarySearch(x.turns, turn)
	if pos > 0 {
		a := x.byTurn[x.turns[pos-1]]
		prev = &a
	}
	if pos < len(x.turns) {
		if x.turns[pos] == turn {
			pos++
		}
		if pos < len(x.turns) {
			a := x.byTurn[x.turns[pos]]
			next = &a
		}
	}
	return prev, next
}

// interpolate is pass 2. Anchored turns keep their measured timing; every
// other turn gets a short placement derived from its neighbours.
func (a *Aligner) interpolate(turns []types.ReferenceTurn, tl *Timeline, start int, anchors anchorIndex) []types.Segment {
	segments := make([]types.Segment, 0, len(turns)-start)
	total := tl.DurationMs()
	last := len(turns) - 1

	for t := start; t <= last; t++ {
		turn := turns[t]
		if an, ok := anchors.at(t); ok {
			segments = append(segments, types.Segment{
				Speaker:    turn.Speaker,
				Text:       turn.Text,
				StartMs:    an.StartMs,
				EndMs:      an.EndMs,
				Source:     types.SourceAnchored,
				Confidence: an.Confidence,
			})
			continue
		}

		var (
			startMs, share int64
			mode           InterpolationMode
		)
		prev, next := anchors.neighbours(t)
		switch {
		case prev != nil && next != nil:
			mode = InterpolateBetween
			count := int64(next.TurnIndex - prev.TurnIndex - 1)
			gap := max(next.StartMs-prev.EndMs, 0)
			share = gap / count
			startMs = prev.EndMs + gap*int64(t-prev.TurnIndex-1)/count
		case next != nil:
			mode = InterpolateLeading
			count := int64(next.TurnIndex - start)
			share = next.StartMs / count
			startMs = next.StartMs - next.StartMs*int64(next.TurnIndex-t)/count
		case prev != nil:
			mode = InterpolateTrailing
			count := int64(last - prev.TurnIndex)
			remaining := max(total-prev.EndMs, 0)
			share = remaining / count
			startMs = prev.EndMs + remaining*int64(t-prev.TurnIndex-1)/count
		default:
			mode = InterpolateEven
			count := int64(last - start + 1)
			share = total / count
			startMs = total * int64(t-start) / count
		}

		startMs = max(startMs, 0)
		seg := types.Segment{
			Speaker: turn.Speaker,
			Text:    turn.Text,
			StartMs: startMs,
			EndMs:   startMs + a.interpolatedDuration(share),
			Source:  types.SourceInterpolated,
		}
		segments = append(segments, seg)
		a.observer.Interpolated(t, seg, mode)
	}
	return segments
}

// interpolatedDuration caps a placement guess so it never claims more than a
// fraction of its share, nor more than InterpolatedMaxMs.
func (a *Aligner) interpolatedDuration(share int64) int64 {
	d := int64(float64(share) * a.params.InterpolatedShareFraction)
	return max(min(d, a.params.InterpolatedMaxMs), 0)
}

package reshape

import (
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// MergeBySpeaker folds runs of consecutive segments with an identical speaker
// label into single segments. Text is joined with one space; the merged span
// runs from the first start to the latest end. Labels are compared exactly.
//
// The result never contains two adjacent segments with the same speaker, so
// merging it again returns an identical sequence.
func MergeBySpeaker(segs []types.Segment) []types.Segment {
	out := make([]types.Segment, 0, len(segs))
	for _, seg := range segs {
		n := len(out)
		if n == 0 || out[n-1].Speaker != seg.Speaker {
			out = append(out, seg)
			continue
		}
		out[n-1] = join(out[n-1], seg)
	}
	return out
}

// join returns the concatenation of a and b as a new value.
func join(a, b types.Segment) types.Segment {
	text := a.Text
	switch {
	case text == "":
		text = b.Text
	case b.Text != "":
		text = strings.TrimRight(text, " ") + " " + strings.TrimLeft(b.Text, " ")
	}
	return types.Segment{
		Speaker:    a.Speaker,
		Text:       text,
		StartMs:    a.StartMs,
		EndMs:      max(a.EndMs, b.EndMs),
		Source:     mergeSource(a.Source, b.Source),
		Confidence: min(a.Confidence, b.Confidence),
	}
}

func mergeSource(a, b types.Source) types.Source {
	if a == b {
		return a
	}
	return types.SourceMixed
}

package reshape

import (
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// SplitLong splits every segment lasting longer than p.MaxSegmentMs into
// shorter segments. Text is chunked at sentence boundaries where possible
// (see [ChunkText]); when that yields too few chunks to honour the cap, the
// sentences, or failing that the words, are regrouped evenly.
//
// Each chunk gets an equal share of the original duration and the final
// chunk ends exactly at the original end. Should a segment have fewer words
// than the cap requires, chunk timings are trimmed to the cap while the first
// start and last end stay fixed. Text order and covered span never change.
func SplitLong(segs []types.Segment, p Params) []types.Segment {
	out := make([]types.Segment, 0, len(segs))
	for _, seg := range segs {
		if seg.Duration() <= p.MaxSegmentMs {
			out = append(out, seg)
			continue
		}
		out = append(out, split(seg, p)...)
	}
	return out
}

func split(seg types.Segment, p Params) []types.Segment {
	dur := seg.Duration()
	need := int((dur + p.MaxSegmentMs - 1) / p.MaxSegmentMs)

	chunks := ChunkText(seg.Text, p.MaxChunkChars)
	if len(chunks) < need {
		if sentences := Sentences(seg.Text); len(sentences) >= need {
			chunks = groupEvenly(sentences, need)
		} else if words := strings.Fields(seg.Text); len(words) > len(chunks) {
			chunks = groupEvenly(words, min(need, len(words)))
		}
	}
	if len(chunks) == 0 {
		chunks = []string{seg.Text}
	}

	k := int64(len(chunks))
	share := dur / k
	out := make([]types.Segment, len(chunks))
	for i, text := range chunks {
		start := seg.StartMs + share*int64(i)
		end := start + share
		if i == len(chunks)-1 {
			end = seg.EndMs
		}
		if end-start > p.MaxSegmentMs {
			if i == len(chunks)-1 {
				start = end - p.MaxSegmentMs
			} else {
				end = start + p.MaxSegmentMs
			}
		}
		out[i] = types.Segment{
			Speaker:    seg.Speaker,
			Text:       text,
			StartMs:    start,
			EndMs:      end,
			Source:     seg.Source,
			Confidence: seg.Confidence,
		}
	}
	return out
}

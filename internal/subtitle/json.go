package subtitle

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrWong99/transcriptsync/pkg/timecode"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// jsonSegment adds display timestamps to a segment.
type jsonSegment struct {
	types.Segment
	Start string `json:"start"`
	End   string `json:"end"`
}

// WriteJSON writes segments as an indented JSON array, including each
// segment's source and confidence.
func WriteJSON(w io.Writer, segs []types.Segment) error {
	out := make([]jsonSegment, len(segs))
	for i, s := range segs {
		out[i] = jsonSegment{
			Segment: s,
			Start:   timecode.MustFormat(max(s.StartMs, 0)),
			End:     timecode.MustFormat(max(s.EndMs, 0)),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("subtitle: write json: %w", err)
	}
	return nil
}

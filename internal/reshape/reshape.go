// Package reshape turns one-segment-per-turn alignment output into the final
// caption sequence: consecutive segments of the same speaker are merged, and
// any segment longer than a duration cap is split at sentence or word
// boundaries.
//
// Every function returns a new slice and never modifies its input.
package reshape

import (
	"errors"
	"fmt"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// Params tunes the reshaper.
type Params struct {
	// MaxSegmentMs is the longest duration an emitted segment may span.
	MaxSegmentMs int64 `yaml:"max_segment_ms"`

	// MaxChunkChars is the longest text a split chunk may carry, unless a
	// single word is longer.
	MaxChunkChars int `yaml:"max_chunk_chars"`
}

// DefaultParams returns a two-minute cap and 200-character chunks.
func DefaultParams() Params {
	return Params{
		MaxSegmentMs:  120_000,
		MaxChunkChars: 200,
	}
}

// Validate reports out-of-range fields.
func (p Params) Validate() error {
	var errs []error
	if p.MaxSegmentMs < 1 {
		errs = append(errs, fmt.Errorf("max_segment_ms %d must be positive", p.MaxSegmentMs))
	}
	if p.MaxChunkChars < 1 {
		errs = append(errs, fmt.Errorf("max_chunk_chars %d must be positive", p.MaxChunkChars))
	}
	return errors.Join(errs...)
}

// Reshape merges by speaker and then splits overlong segments.
func Reshape(segs []types.Segment, p Params) []types.Segment {
	return SplitLong(MergeBySpeaker(segs), p)
}

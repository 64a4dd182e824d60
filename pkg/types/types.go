// Package types defines the shared records used across all transcriptsync
// packages.
//
// These types are the lingua franca between the caption codec, the reference
// ingestion layer, the alignment engine, the segment reshaper and the run
// store. Each package keeps its own internal types, but the records that cross
// package boundaries live here to avoid circular imports.
package types

// TimedEntry is one atomic unit of a timed transcript (a caption cue).
// The wording is machine generated and uncorrected; the timestamps are
// considered accurate.
type TimedEntry struct {
	// Index is the sequence position of the cue. Informational only.
	Index int `json:"index"`

	// StartMs and EndMs are millisecond offsets from the start of the media.
	// 0 <= StartMs <= EndMs.
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`

	// Text is the uncorrected spoken text for this interval.
	Text string `json:"text"`
}

// Duration returns EndMs - StartMs.
func (e TimedEntry) Duration() int64 {
	return e.EndMs - e.StartMs
}

// ReferenceTurn is one speaker-attributed block of corrected text without
// any timing information. Its position in the reference sequence is the only
// positional information available before alignment.
type ReferenceTurn struct {
	// Speaker is a free-form label. The alignment engine never normalises it.
	Speaker string `json:"speaker"`

	// Text is the corrected text. It may span many sentences.
	Text string `json:"text"`
}

// Source records how a segment's timestamps were obtained.
type Source string

const (
	// SourceAnchored marks timestamps measured from a confident text match.
	SourceAnchored Source = "anchored"

	// SourceInterpolated marks timestamps guessed from neighbouring anchors
	// or the overall duration. EndMs is a placement hint, not a measured span.
	SourceInterpolated Source = "interpolated"

	// SourceMixed marks a merged segment built from both kinds of parts.
	SourceMixed Source = "mixed"
)

// Segment is a timed, speaker-labelled block of corrected text. The alignment
// engine emits one Segment per reference turn; the reshaper folds those into
// the final output sequence.
type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`

	// StartMs <= EndMs always holds.
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`

	// Source tells consumers whether the timing was matched or guessed.
	Source Source `json:"source"`

	// Confidence is the raw match confidence in [0, 1]. Interpolated
	// segments carry 0. Merged segments carry the weakest part's value.
	Confidence float64 `json:"confidence"`
}

// Duration returns EndMs - StartMs.
func (s Segment) Duration() int64 {
	return s.EndMs - s.StartMs
}

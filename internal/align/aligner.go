// Package align relocates the corrected wording of a reference transcript
// onto the timeline of a machine-generated caption track.
//
// Alignment runs in three steps:
//
//  1. Front-matter detection: leading reference turns that do not match the
//     start of the captions (title pages, consent forms) are skipped.
//  2. Pass 1, anchoring: reference turns are walked in order and placed onto
//     the captions with a bounded window search whenever a confident match
//     exists. The timed-entry cursor only ever moves forward.
//  3. Pass 2, interpolation: every remaining turn is positioned relative to
//     its neighbouring anchors, or spread across the whole timeline when
//     there are none.
//
// Every turn from the transcript start onward yields exactly one segment.
// Each segment records whether its timing was anchored or interpolated.
//
// An [Aligner] holds no per-run state; [Aligner.Align] is safe for
// concurrent use with independent inputs.
package align

import (
	"errors"
	"fmt"

	"github.com/MrWong99/transcriptsync/internal/align/similarity"
	"github.com/MrWong99/transcriptsync/internal/align/textnorm"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// ErrEmptyAlignment is returned when the two inputs cannot be related at
// all: there are no timed entries, or no reference turns remain after front
// matter is skipped.
var ErrEmptyAlignment = errors.New("align: empty alignment")

// Anchor is a confident pass-1 placement of one reference turn. Anchors are
// immutable once created.
type Anchor struct {
	TurnIndex  int
	Speaker    string
	StartMs    int64
	EndMs      int64
	Confidence float64

	// EntryStart and EntryEnd are the inclusive timed-entry span matched.
	EntryStart int
	EntryEnd   int
}

// Stats summarises one alignment run.
type Stats struct {
	Turns        int `json:"turns"`
	FrontMatter  int `json:"front_matter"`
	Anchored     int `json:"anchored"`
	Interpolated int `json:"interpolated"`
}

// Result is the output of one [Aligner.Align] call.
type Result struct {
	// StartIndex is the index of the first reference turn treated as
	// interview body.
	StartIndex int

	// Segments holds one segment per reference turn from StartIndex onward,
	// in reference order.
	Segments []types.Segment

	// Anchors lists the pass-1 anchors in turn order.
	Anchors []Anchor

	Stats Stats
}

// Option is a functional option for configuring an [Aligner].
type Option func(*Aligner)

// WithParams replaces the default tuning.
func WithParams(p Params) Option {
	return func(a *Aligner) {
		a.params = p
	}
}

// WithObserver attaches an [Observer] that receives every decision. When nil
// (the default), decisions are discarded.
func WithObserver(o Observer) Option {
	return func(a *Aligner) {
		a.observer = o
	}
}

// Aligner is the two-pass alignment engine. It is read-only after
// construction.
type Aligner struct {
	params   Params
	scorer   *similarity.Scorer
	observer Observer
}

// New returns an [Aligner] using [DefaultParams] unless overridden.
func New(opts ...Option) *Aligner {
	a := &Aligner{params: DefaultParams()}
	for _, o := range opts {
		o(a)
	}
	if a.observer == nil {
		a.observer = NopObserver{}
	}
	a.scorer = similarity.New(similarity.WithFuzzyThreshold(a.params.FuzzyTokenThreshold))
	return a
}

// Params returns the tuning in use.
func (a *Aligner) Params() Params {
	return a.params
}

// Align places every reference turn from the detected transcript start onward
// onto the timeline of entries.
//
// Per-turn failures never abort the run; a turn without a confident match is
// interpolated. Only inputs that cannot be related at all produce an error,
// which wraps [ErrEmptyAlignment].
func (a *Aligner) Align(turns []types.ReferenceTurn, entries []types.TimedEntry) (*Result, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("align: no timed entries: %w", ErrEmptyAlignment)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("align: no reference turns: %w", ErrEmptyAlignment)
	}

	tl := NewTimeline(entries)
	start := a.DetectTranscriptStart(turns, tl)
	a.observer.TranscriptStart(start)
	if start >= len(turns) {
		return nil, fmt.Errorf("align: no reference turns after front matter: %w", ErrEmptyAlignment)
	}

	anchors := a.placeAnchors(turns, tl, start)
	segments := a.interpolate(turns, tl, start, newAnchorIndex(anchors))

	res := &Result{
		StartIndex: start,
		Segments:   segments,
		Anchors:    anchors,
		Stats: Stats{
			Turns:        len(segments),
			FrontMatter:  start,
			Anchored:     len(anchors),
			Interpolated: len(segments) - len(anchors),
		},
	}
	return res, nil
}

// placeAnchors is pass 1. It walks turns from start, searching forward from a
// monotonically advancing cursor. A hit moves the cursor past the matched
// span; a miss moves it by a single entry so unmatched captions are not lost.
func (a *Aligner) placeAnchors(turns []types.ReferenceTurn, tl *Timeline, start int) []Anchor {
	var anchors []Anchor

	// The first search always runs, even on captions shorter than the margin.
	stopAt := max(tl.Len()-a.params.EndMargin, 1)

	cursor := 0
	for t := start; t < len(turns) && cursor < stopAt; t++ {
		a.observer.Searched(t, cursor)

		target := textnorm.Normalize(turns[t].Text)
		m, ok := a.FindBestMatch(target, tl, cursor, a.params.Anchor)
		if !ok {
			a.observer.Missed(t, cursor)
			cursor++
			continue
		}

		anchor := Anchor{
			TurnIndex:  t,
			Speaker:    turns[t].Speaker,
			StartMs:    m.StartMs,
			EndMs:      m.EndMs,
			Confidence: m.Confidence,
			EntryStart: m.Start,
			EntryEnd:   m.End,
		}
		anchors = append(anchors, anchor)
		a.observer.Anchored(anchor)
		cursor = m.End + 1
	}
	return anchors
}

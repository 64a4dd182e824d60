// Package similarity scores how well two normalised token sequences describe
// the same stretch of speech.
//
// The score combines three signals:
//
//  1. Jaccard overlap of the unique token sets. Robust to reordering and to
//     isolated recognition errors.
//  2. Length ratio. Penalises candidate spans that are far shorter or longer
//     than the target.
//  3. Sequential match ratio. A two-pointer scan counting target tokens that
//     appear in reading order in the candidate. Both transcripts come from the
//     same speech, so preserved order is the strongest true signal.
//
// They are weighted as
//
//	score = 0.5*jaccard + 0.2*lengthRatio + 0.3*sequential
//
// A [Scorer] may optionally treat near-identical tokens as equal in the
// sequential scan (Jaro-Winkler similarity via matchr), which helps with
// captions that misspell names. Jaccard overlap always uses exact tokens.
package similarity

import (
	"github.com/antzucaro/matchr"
)

// Weights of the three score components. They sum to 1.
const (
	JaccardWeight     = 0.5
	LengthRatioWeight = 0.2
	SequentialWeight  = 0.3
)

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithFuzzyThreshold enables fuzzy token equality in the sequential scan:
// two tokens are equal when their Jaro-Winkler similarity is at least
// threshold. A threshold of 0 (the default) or above 1 keeps exact equality.
func WithFuzzyThreshold(threshold float64) Option {
	return func(s *Scorer) {
		s.fuzzyThreshold = threshold
	}
}

// Scorer computes similarity scores. It is read-only after construction and
// safe for concurrent use.
type Scorer struct {
	fuzzyThreshold float64
}

// New returns a [Scorer] configured with the supplied options.
func New(opts ...Option) *Scorer {
	s := &Scorer{}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Default is an exact-match scorer.
var Default = New()

// Score returns the combined similarity of a and b in [0, 1] using exact
// token equality.
func Score(a, b []string) float64 {
	return Default.Score(a, b)
}

// Score returns the combined similarity of a and b in [0, 1].
func (s *Scorer) Score(a, b []string) float64 {
	acc := s.Prepare(a).NewAccumulator()
	acc.Add(b...)
	return acc.Score()
}

func (s *Scorer) equal(x, y string) bool {
	if x == y {
		return true
	}
	if s.fuzzyThreshold <= 0 || s.fuzzyThreshold > 1 {
		return false
	}
	return matchr.JaroWinkler(x, y, false) >= s.fuzzyThreshold
}

// Target is a token sequence prepared for repeated scoring against many
// candidates.
type Target struct {
	scorer *Scorer
	tokens []string
	unique map[string]struct{}
}

// Prepare precomputes the unique token set of target.
func (s *Scorer) Prepare(target []string) *Target {
	u := make(map[string]struct{}, len(target))
	for _, t := range target {
		u[t] = struct{}{}
	}
	return &Target{scorer: s, tokens: target, unique: u}
}

// Len returns the number of target tokens.
func (t *Target) Len() int {
	return len(t.tokens)
}

// NewAccumulator returns an empty candidate bound to t. Tokens appended with
// [Accumulator.Add] extend the candidate; [Accumulator.Score] always equals
// Score(target, allTokensAddedSoFar).
func (t *Target) NewAccumulator() *Accumulator {
	return &Accumulator{target: t, seen: make(map[string]struct{})}
}

// Accumulator scores a growing candidate sequence against a fixed [Target]
// without rescanning what it has already seen. Not safe for concurrent use.
type Accumulator struct {
	target *Target

	candidate []string
	seen      map[string]struct{}
	shared    int

	// Sequential scan state: position in the target, cursor in the
	// candidate, and matches so far. The scan pauses when the cursor reaches
	// the end of the candidate and resumes on the next Add.
	targetPos int
	cursor    int
	matches   int
}

// Add appends tokens to the candidate.
func (a *Accumulator) Add(tokens ...string) {
	for _, tok := range tokens {
		a.candidate = append(a.candidate, tok)
		if _, dup := a.seen[tok]; dup {
			continue
		}
		a.seen[tok] = struct{}{}
		if _, ok := a.target.unique[tok]; ok {
			a.shared++
		}
	}
	a.scan()
}

func (a *Accumulator) scan() {
	target := a.target.tokens
	for a.targetPos < len(target) && a.cursor < len(a.candidate) {
		if a.target.scorer.equal(target[a.targetPos], a.candidate[a.cursor]) {
			a.matches++
			a.cursor++
		}
		a.targetPos++
	}
}

// Len returns the number of candidate tokens added so far.
func (a *Accumulator) Len() int {
	return len(a.candidate)
}

// Score returns the combined similarity of the target and the candidate.
func (a *Accumulator) Score() float64 {
	return JaccardWeight*a.jaccard() +
		LengthRatioWeight*a.lengthRatio() +
		SequentialWeight*a.sequential()
}

func (a *Accumulator) jaccard() float64 {
	union := len(a.target.unique) + len(a.seen) - a.shared
	if union == 0 {
		return 0
	}
	return float64(a.shared) / float64(union)
}

func (a *Accumulator) lengthRatio() float64 {
	na, nb := len(a.target.tokens), len(a.candidate)
	if na == 0 && nb == 0 {
		return 1
	}
	return float64(min(na, nb)) / float64(max(na, nb))
}

func (a *Accumulator) sequential() float64 {
	longest := max(len(a.target.tokens), len(a.candidate))
	if longest == 0 {
		return 0
	}
	return float64(a.matches) / float64(longest)
}

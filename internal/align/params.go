package align

import (
	"errors"
	"fmt"
)

// SearchParams tunes one mode of the window search. The search probes
// WindowSize start positions and up to MaxRangeSize entries per candidate
// span, so its cost grows with WindowSize*MaxRangeSize.
type SearchParams struct {
	// WindowSize is the number of candidate start positions probed from the
	// search floor.
	WindowSize int `yaml:"window_size"`

	// MaxRangeSize is the maximum number of timed entries in one candidate
	// span.
	MaxRangeSize int `yaml:"max_range_size"`

	// PreferredRangeSize is the largest span that is ranked without a size
	// penalty. It is also the largest span allowed to trigger early exit.
	PreferredRangeSize int `yaml:"preferred_range_size"`

	// RangePenalty is the fraction of the score lost per entry beyond
	// PreferredRangeSize. Penalised scores only rank candidates; the reported
	// confidence is always the raw score.
	RangePenalty float64 `yaml:"range_penalty"`

	// MinConfidence is the raw score a candidate must reach to count as a
	// match at all.
	MinConfidence float64 `yaml:"min_confidence"`

	// EarlyExitConfidence stops the search as soon as a candidate of at most
	// PreferredRangeSize entries reaches this raw score.
	EarlyExitConfidence float64 `yaml:"early_exit_confidence"`
}

// Params holds every tuning constant of the alignment engine. The defaults
// returned by [DefaultParams] are heuristics, not derived values; they are
// expected to be tuned per corpus.
type Params struct {
	// Anchor configures the pass-1 search that places anchors.
	Anchor SearchParams `yaml:"anchor"`

	// FrontMatter configures the probe that finds the first reference turn
	// belonging to the interview body.
	FrontMatter SearchParams `yaml:"front_matter"`

	// FrontMatterProbeTurns is how many leading reference turns are probed.
	FrontMatterProbeTurns int `yaml:"front_matter_probe_turns"`

	// FrontMatterMinTokens is the token count below which a leading turn is
	// treated as a title or header and not probed.
	FrontMatterMinTokens int `yaml:"front_matter_min_tokens"`

	// EndMargin stops pass 1 once the timed-entry cursor is this close to the
	// end of the timed transcript.
	EndMargin int `yaml:"end_margin"`

	// InterpolatedMaxMs caps the duration of an interpolated segment.
	InterpolatedMaxMs int64 `yaml:"interpolated_max_ms"`

	// InterpolatedShareFraction caps an interpolated duration to this
	// fraction of the turn's even share of the available gap.
	InterpolatedShareFraction float64 `yaml:"interpolated_share_fraction"`

	// FuzzyTokenThreshold enables Jaro-Winkler token equality in the
	// sequential score component when in (0, 1]. 0 keeps exact matching.
	FuzzyTokenThreshold float64 `yaml:"fuzzy_token_threshold"`
}

// DefaultParams returns the default tuning.
func DefaultParams() Params {
	return Params{
		Anchor: SearchParams{
			WindowSize:          30,
			MaxRangeSize:        30,
			PreferredRangeSize:  15,
			RangePenalty:        0.01,
			MinConfidence:       0.45,
			EarlyExitConfidence: 0.75,
		},
		FrontMatter: SearchParams{
			WindowSize:          25,
			MaxRangeSize:        20,
			PreferredRangeSize:  10,
			RangePenalty:        0.02,
			MinConfidence:       0.4,
			EarlyExitConfidence: 0.75,
		},
		FrontMatterProbeTurns:     20,
		FrontMatterMinTokens:      5,
		EndMargin:                 5,
		InterpolatedMaxMs:         3000,
		InterpolatedShareFraction: 0.8,
	}
}

// Validate reports every out-of-range field as a joined error.
func (p Params) Validate() error {
	var errs []error
	errs = append(errs, p.Anchor.validate("anchor")...)
	errs = append(errs, p.FrontMatter.validate("front_matter")...)
	if p.FrontMatterProbeTurns < 0 {
		errs = append(errs, fmt.Errorf("front_matter_probe_turns %d must not be negative", p.FrontMatterProbeTurns))
	}
	if p.FrontMatterMinTokens < 0 {
		errs = append(errs, fmt.Errorf("front_matter_min_tokens %d must not be negative", p.FrontMatterMinTokens))
	}
	if p.EndMargin < 0 {
		errs = append(errs, fmt.Errorf("end_margin %d must not be negative", p.EndMargin))
	}
	if p.InterpolatedMaxMs < 0 {
		errs = append(errs, fmt.Errorf("interpolated_max_ms %d must not be negative", p.InterpolatedMaxMs))
	}
	if p.InterpolatedShareFraction < 0 || p.InterpolatedShareFraction > 1 {
		errs = append(errs, fmt.Errorf("interpolated_share_fraction %.2f is out of range [0, 1]", p.InterpolatedShareFraction))
	}
	if p.FuzzyTokenThreshold < 0 || p.FuzzyTokenThreshold > 1 {
		errs = append(errs, fmt.Errorf("fuzzy_token_threshold %.2f is out of range [0, 1]", p.FuzzyTokenThreshold))
	}
	return errors.Join(errs...)
}

func (s SearchParams) validate(prefix string) []error {
	var errs []error
	if s.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("%s.window_size %d must be at least 1", prefix, s.WindowSize))
	}
	if s.MaxRangeSize < 1 {
		errs = append(errs, fmt.Errorf("%s.max_range_size %d must be at least 1", prefix, s.MaxRangeSize))
	}
	if s.PreferredRangeSize < 1 || s.PreferredRangeSize > s.MaxRangeSize {
		errs = append(errs, fmt.Errorf("%s.preferred_range_size %d must be in [1, max_range_size]", prefix, s.PreferredRangeSize))
	}
	if s.RangePenalty < 0 || s.RangePenalty > 1 {
		errs = append(errs, fmt.Errorf("%s.range_penalty %.3f is out of range [0, 1]", prefix, s.RangePenalty))
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("%s.min_confidence %.2f is out of range [0, 1]", prefix, s.MinConfidence))
	}
	if s.EarlyExitConfidence < s.MinConfidence || s.EarlyExitConfidence > 1 {
		errs = append(errs, fmt.Errorf("%s.early_exit_confidence %.2f must be in [min_confidence, 1]", prefix, s.EarlyExitConfidence))
	}
	return errs
}

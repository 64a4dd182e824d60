package reference

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.85
	defaultFuzzyThreshold    = 0.92
	defaultMinSupport        = 2
)

// MatcherOption configures a [SpeakerMatcher].
type MatcherOption func(*SpeakerMatcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a label whose
// Double Metaphone codes overlap a candidate's. Default: 0.85.
func WithPhoneticThreshold(threshold float64) MatcherOption {
	return func(m *SpeakerMatcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a label without
// phonetic overlap. Default: 0.92.
func WithFuzzyThreshold(threshold float64) MatcherOption {
	return func(m *SpeakerMatcher) {
		m.fuzzyThreshold = threshold
	}
}

// WithMinSupport sets how many turns a label needs before it counts as an
// established speaker in its own right. Rarer labels are candidates for
// folding onto a similar established label. Default: 2.
func WithMinSupport(n int) MatcherOption {
	return func(m *SpeakerMatcher) {
		m.minSupport = n
	}
}

// SpeakerMatcher recognises variant spellings of speaker labels using Double
// Metaphone codes and Jaro-Winkler similarity. It is read-only after
// construction and safe for concurrent use.
type SpeakerMatcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	minSupport        int
}

// NewSpeakerMatcher returns a matcher configured with opts.
func NewSpeakerMatcher(opts ...MatcherOption) *SpeakerMatcher {
	m := &SpeakerMatcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		minSupport:        defaultMinSupport,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the candidate most similar to label. When matched is false,
// best equals label and score is 0. A case-insensitive exact match always
// wins with score 1.
func (m *SpeakerMatcher) Match(label string, candidates []string) (best string, score float64, matched bool) {
	key := foldLabel(label)
	if key == "" || len(candidates) == 0 {
		return label, 0, false
	}
	tokens := strings.Fields(key)
	codes := codesForTokens(tokens)

	var (
		bestScore    float64
		bestPhonetic bool
	)
	for _, c := range candidates {
		ckey := foldLabel(c)
		if ckey == "" {
			continue
		}
		if ckey == key {
			return c, 1, true
		}
		ctokens := strings.Fields(ckey)
		jw := bestJWScore(tokens, ctokens, key, ckey)
		if codesOverlap(codes, codesForTokens(ctokens)) {
			if jw >= m.phoneticThreshold && (!bestPhonetic || jw > bestScore) {
				best, bestScore, bestPhonetic = c, jw, true
			}
		} else if !bestPhonetic && jw >= m.fuzzyThreshold && jw > bestScore {
			best, bestScore = c, jw
		}
	}
	if best == "" {
		return label, 0, false
	}
	return best, bestScore, true
}

// Canonicalize maps every label in labels (one entry per turn, in document
// order) onto its canonical spelling. Labels equal up to case and spacing
// share the first-seen spelling. A label seen fewer than the minimum support
// times is folded onto the most similar established label, if any.
// Established labels are never folded onto each other.
func (m *SpeakerMatcher) Canonicalize(labels []string) map[string]string {
	var (
		first = make(map[string]string)
		count = make(map[string]int)
		order []string
	)
	for _, l := range labels {
		key := foldLabel(l)
		if key == "" {
			continue
		}
		if _, ok := first[key]; !ok {
			first[key] = l
			order = append(order, key)
		}
		count[key]++
	}

	var established []string
	for _, key := range order {
		if count[key] >= m.minSupport {
			established = append(established, first[key])
		}
	}

	out := make(map[string]string, len(labels))
	for _, l := range labels {
		key := foldLabel(l)
		if key == "" {
			continue
		}
		canon := first[key]
		if count[key] < m.minSupport {
			if best, _, ok := m.Match(canon, established); ok {
				canon = best
			}
		}
		out[l] = canon
	}
	return out
}

// foldLabel lowercases and collapses whitespace for comparison.
func foldLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// codesForTokens returns the union of the Double Metaphone codes of tokens,
// excluding empty codes.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore is the highest Jaro-Winkler similarity over the full labels,
// the labels with spaces removed, and single-token labels against each token
// of a multi-word label ("Smith" against "Dr Smith").
func bestJWScore(aTokens, bTokens []string, a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}
	if len(aTokens) == 1 || len(bTokens) == 1 {
		for _, at := range aTokens {
			for _, bt := range bTokens {
				if s := matchr.JaroWinkler(at, bt, false); s > score {
					score = s
				}
			}
		}
	}
	return score
}

package align

// Match is the best candidate span found by [Aligner.FindBestMatch].
type Match struct {
	// Start and End are inclusive timed-entry indices.
	Start int
	End   int

	// StartMs is the start of entry Start; EndMs the end of entry End,
	// clamped so that StartMs <= EndMs.
	StartMs int64
	EndMs   int64

	// Confidence is the raw similarity score of the span. It is what gets
	// compared against confidence floors.
	Confidence float64

	// Score is the size-penalised score used to rank candidates.
	Score float64
}

// Size returns the number of timed entries in the span.
func (m Match) Size() int {
	return m.End - m.Start + 1
}

// FindBestMatch searches the window of candidate spans starting at entry
// indices [from, from+WindowSize) and spanning at most MaxRangeSize entries.
// Only candidates whose raw confidence reaches sp.MinConfidence are eligible;
// among those the highest penalised score wins. The search stops early once a
// candidate no larger than PreferredRangeSize reaches EarlyExitConfidence.
//
// The boolean result is false when no candidate is eligible, which is the
// normal outcome for turns the captions do not cover.
func (a *Aligner) FindBestMatch(target []string, tl *Timeline, from int, sp SearchParams) (Match, bool) {
	n := tl.Len()
	if len(target) == 0 || from < 0 || from >= n {
		return Match{}, false
	}

	prepared := a.scorer.Prepare(target)
	lastStart := min(from+sp.WindowSize, n)

	var (
		best  Match
		found bool
	)

search:
	for i := from; i < lastStart; i++ {
		acc := prepared.NewAccumulator()
		lastEnd := min(i+sp.MaxRangeSize, n)
		for j := i; j < lastEnd; j++ {
			acc.Add(tl.tokens[j]...)
			raw := acc.Score()
			if raw < sp.MinConfidence {
				continue
			}

			size := j - i + 1
			score := penalise(raw, size, sp)
			if !found || score > best.Score {
				best = a.match(tl, i, j, raw, score)
				found = true
			}
			if raw >= sp.EarlyExitConfidence && size <= sp.PreferredRangeSize {
				break search
			}
		}
	}
	return best, found
}

func (a *Aligner) match(tl *Timeline, i, j int, raw, score float64) Match {
	startMs := tl.entries[i].StartMs
	endMs := max(tl.entries[j].EndMs, startMs)
	return Match{
		Start:      i,
		End:        j,
		StartMs:    startMs,
		EndMs:      endMs,
		Confidence: raw,
		Score:      score,
	}
}

// penalise discounts spans larger than the preferred size by a fixed fraction
// of the score per extra entry.
func penalise(raw float64, size int, sp SearchParams) float64 {
	extra := size - sp.PreferredRangeSize
	if extra <= 0 {
		return raw
	}
	factor := 1 - sp.RangePenalty*float64(extra)
	if factor < 0 {
		return 0
	}
	return raw * factor
}

package align

import (
	"github.com/MrWong99/transcriptsync/internal/align/textnorm"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// DetectTranscriptStart returns the index of the first reference turn that
// belongs to the interview body.
//
// The first FrontMatterProbeTurns turns are probed in order. Turns with fewer
// than FrontMatterMinTokens tokens are assumed to be titles or headers and
// skipped. Each remaining turn is searched for at the start of the timeline;
// the first one that clears the front-matter confidence floor is the start.
// When no probed turn matches, 0 is returned: no front matter detected.
func (a *Aligner) DetectTranscriptStart(turns []types.ReferenceTurn, tl *Timeline) int {
	probe := min(a.params.FrontMatterProbeTurns, len(turns))
	for i := range probe {
		target := textnorm.Normalize(turns[i].Text)
		if len(target) < a.params.FrontMatterMinTokens {
			continue
		}
		if _, ok := a.FindBestMatch(target, tl, 0, a.params.FrontMatter); ok {
			return i
		}
	}
	return 0
}

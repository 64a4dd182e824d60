// Package reference reads a corrected, speaker-attributed transcript from
// plain text into ordered reference turns.
//
// A line that starts with a speaker label opens a new turn:
//
//	INTERVIEWER: Where were you born?
//	Mary Smith: In Leeds.
//	[Q] And your parents?
//
// Lines without a label continue the current turn. Paragraphs before the first
// label become turns without a speaker, which the alignment engine's
// front-matter detection is free to discard.
package reference

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

var (
	// colonLabelRe matches "Name:" with one to four capitalised words.
	colonLabelRe = regexp.MustCompile(`^(\p{Lu}[\p{L}\p{N}'’.\-]*(?:[ \t]+\p{Lu}[\p{L}\p{N}'’.\-]*){0,3})[ \t]*:[ \t]*(.*)$`)

	// bracketLabelRe matches "[Name]" followed by optional text.
	bracketLabelRe = regexp.MustCompile(`^\[([^\[\]]{1,40})\][ \t]*:?[ \t]*(.*)$`)
)

// Options controls label handling.
type Options struct {
	// Aliases maps a label (compared case-insensitively) onto the speaker
	// name to use instead, e.g. "Q" to "Interviewer".
	Aliases map[string]string

	// KnownSpeakers, when non-empty, restricts which labels open a turn. A
	// label must match one of these names, allowing for spelling variants, and
	// is replaced by it.
	KnownSpeakers []string

	// Matcher canonicalises speaker labels. Nil uses a default
	// [SpeakerMatcher].
	Matcher *SpeakerMatcher
}

type rawTurn struct {
	speaker string
	text    []string
}

// Parse reads reference turns from r. Turns without text are dropped.
func Parse(r io.Reader, opts Options) ([]types.ReferenceTurn, error) {
	m := opts.Matcher
	if m == nil {
		m = NewSpeakerMatcher()
	}
	aliases := make(map[string]string, len(opts.Aliases))
	for k, v := range opts.Aliases {
		aliases[foldLabel(k)] = v
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		turns   []rawTurn
		cur     *rawTurn
		labeled bool
		lineNo  int
	)
	flush := func() {
		if cur != nil && len(cur.text) > 0 {
			turns = append(turns, *cur)
		}
		cur = nil
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			if !labeled {
				flush()
			}
			continue
		}

		if label, rest, ok := splitLabel(line); ok {
			if speaker, ok := resolve(label, aliases, opts.KnownSpeakers, m); ok {
				flush()
				labeled = true
				cur = &rawTurn{speaker: speaker}
				if rest != "" {
					cur.text = append(cur.text, rest)
				}
				continue
			}
		}
		if cur == nil {
			cur = &rawTurn{}
		}
		cur.text = append(cur.text, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reference: line %d: %w", lineNo+1, err)
	}
	flush()

	labels := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.speaker != "" {
			labels = append(labels, t.speaker)
		}
	}
	canon := labels
	if len(opts.KnownSpeakers) == 0 {
		mapping := m.Canonicalize(labels)
		canon = make([]string, len(labels))
		for i, l := range labels {
			canon[i] = mapping[l]
		}
	}

	out := make([]types.ReferenceTurn, 0, len(turns))
	i := 0
	for _, t := range turns {
		speaker := t.speaker
		if speaker != "" {
			speaker = canon[i]
			i++
		}
		out = append(out, types.ReferenceTurn{
			Speaker: speaker,
			Text:    strings.Join(t.text, " "),
		})
	}
	return out, nil
}

// splitLabel separates a leading speaker label from the rest of line.
func splitLabel(line string) (label, rest string, ok bool) {
	if m := bracketLabelRe.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if m := colonLabelRe.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

// resolve tidies a raw label and applies aliases and the known-speaker list.
func resolve(label string, aliases map[string]string, known []string, m *SpeakerMatcher) (string, bool) {
	label = TidyLabel(label)
	if label == "" {
		return "", false
	}
	if alias, ok := aliases[foldLabel(label)]; ok {
		label = alias
	}
	if len(known) == 0 {
		return label, true
	}
	best, _, ok := m.Match(label, known)
	return best, ok
}

// TidyLabel collapses whitespace and trims surrounding punctuation from a
// speaker label.
func TidyLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .,;:-–—")
}

// Speakers returns the distinct speakers of turns in order of first
// appearance.
func Speakers(turns []types.ReferenceTurn) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range turns {
		if t.Speaker == "" || seen[t.Speaker] {
			continue
		}
		seen[t.Speaker] = true
		out = append(out, t.Speaker)
	}
	return out
}

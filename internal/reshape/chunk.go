package reshape

import (
	"regexp"
	"strings"
)

// sentenceRe matches a run of text ending in sentence punctuation, plus any
// closing quotes or brackets.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["'”’)\]]*`)

// Sentences splits text at sentence boundaries. Trailing text without
// terminal punctuation becomes the last sentence. Whitespace is trimmed and
// empty pieces are dropped.
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// ChunkText packs whole sentences greedily into chunks of at most maxChars
// characters. A sentence longer than maxChars is broken on word boundaries;
// a single word longer than maxChars forms its own chunk.
func ChunkText(text string, maxChars int) []string {
	var (
		chunks []string
		cur    string
	)
	flush := func() {
		if cur != "" {
			chunks = append(chunks, cur)
			cur = ""
		}
	}
	add := func(piece string) {
		switch {
		case cur == "":
			cur = piece
		case len(cur)+1+len(piece) <= maxChars:
			cur += " " + piece
		default:
			flush()
			cur = piece
		}
	}

	for _, s := range Sentences(text) {
		if len(s) <= maxChars {
			add(s)
			continue
		}
		flush()
		for _, w := range strings.Fields(s) {
			add(w)
		}
		flush()
	}
	flush()
	return chunks
}

// groupEvenly splits items into n contiguous groups whose sizes differ by at
// most one, joining each group with a space. n must not exceed len(items).
func groupEvenly(items []string, n int) []string {
	out := make([]string, 0, n)
	for g := range n {
		lo := g * len(items) / n
		hi := (g + 1) * len(items) / n
		out = append(out, strings.Join(items[lo:hi], " "))
	}
	return out
}

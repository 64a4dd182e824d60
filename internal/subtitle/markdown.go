package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// Metadata is the header block of a Markdown transcript.
type Metadata struct {
	Title     string
	Source    string
	Speakers  []string
	Generated string
}

// RenderMarkdown writes a readable transcript with one
// "[HH:MM:SS-HH:MM:SS] Speaker: text" paragraph per segment.
func RenderMarkdown(w io.Writer, meta Metadata, segs []types.Segment) error {
	bw := bufio.NewWriter(w)
	if meta.Title != "" {
		fmt.Fprintf(bw, "# %s\n\n", meta.Title)
	} else {
		bw.WriteString("# Transcript\n\n")
	}
	if meta.Source != "" {
		fmt.Fprintf(bw, "- Source: `%s`\n", meta.Source)
	}
	if len(meta.Speakers) > 0 {
		fmt.Fprintf(bw, "- Speakers: %s\n", strings.Join(meta.Speakers, ", "))
	}
	if meta.Generated != "" {
		fmt.Fprintf(bw, "- Generated: %s\n", meta.Generated)
	}
	if n := len(segs); n > 0 {
		fmt.Fprintf(bw, "- Duration: %s\n", clock(segs[n-1].EndMs))
	}
	bw.WriteString("\n---\n\n")

	for _, s := range segs {
		fmt.Fprintf(bw, "[%s-%s] ", clock(s.StartMs), clock(s.EndMs))
		if s.Speaker != "" {
			fmt.Fprintf(bw, "%s: %s\n\n", s.Speaker, StripLabel(s.Speaker, strings.TrimSpace(s.Text)))
			continue
		}
		fmt.Fprintf(bw, "%s\n\n", strings.TrimSpace(s.Text))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("subtitle: write markdown: %w", err)
	}
	return nil
}

// clock renders ms as HH:MM:SS, truncating milliseconds.
func clock(ms int64) string {
	sec := max(ms, 0) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}

// Speakers lists the distinct speaker labels in order of first appearance.
func Speakers(segs []types.Segment) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range segs {
		if s.Speaker == "" || seen[s.Speaker] {
			continue
		}
		seen[s.Speaker] = true
		out = append(out, s.Speaker)
	}
	return out
}

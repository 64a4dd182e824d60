package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/timecode"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// ParseVTT reads WebVTT captions. The WEBVTT header block and NOTE, STYLE
// and REGION blocks are skipped, cue identifiers and cue settings are
// ignored, and MM:SS.mmm timestamps are accepted.
func ParseVTT(r io.Reader) ([]types.TimedEntry, error) {
	return parseCues(r, "vtt", func(line string) (int64, int64, error) {
		return parseTiming(line, timecode.ParseVTT)
	}, skipVTTBlock)
}

func skipVTTBlock(first string) bool {
	for _, p := range []string{"WEBVTT", "NOTE", "STYLE", "REGION"} {
		if first == p || strings.HasPrefix(first, p+" ") || strings.HasPrefix(first, p+"\t") {
			return true
		}
	}
	return false
}

// WriteVTT serialises segments as a WebVTT document.
func WriteVTT(w io.Writer, segs []types.Segment, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n")
	for i, s := range segs {
		start, err := timecode.FormatVTT(s.StartMs)
		if err != nil {
			return fmt.Errorf("subtitle: vtt cue %d: %w", i+1, err)
		}
		end, err := timecode.FormatVTT(s.EndMs)
		if err != nil {
			return fmt.Errorf("subtitle: vtt cue %d: %w", i+1, err)
		}
		text := strings.TrimSpace(s.Text)
		if opts.SpeakerLabels {
			text = labeled(s.Speaker, s.Text)
		}
		fmt.Fprintf(bw, "\n%s --> %s\n%s\n", start, end, text)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("subtitle: write vtt: %w", err)
	}
	return nil
}

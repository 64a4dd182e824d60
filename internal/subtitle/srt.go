package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/timecode"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// cueParser turns a cue's timing line into start and end offsets.
type cueParser func(line string) (start, end int64, err error)

// ParseSRT reads SubRip captions. Index lines are optional; text lines of a
// cue are joined with a space and stripped of inline tags. Cues without text
// are dropped and the result is re-indexed from 1.
func ParseSRT(r io.Reader) ([]types.TimedEntry, error) {
	return parseCues(r, "srt", func(line string) (int64, int64, error) {
		return parseTiming(line, timecode.Parse)
	}, nil)
}

// parseTiming splits "start --> end [settings]" and parses both sides.
func parseTiming(line string, parse func(string) (int64, error)) (int64, int64, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("missing \"-->\" in %q", line)
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("missing end time in %q", line)
	}
	start, err := parse(left)
	if err != nil {
		return 0, 0, err
	}
	end, err := parse(fields[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end %s before start %s", strings.TrimSpace(fields[0]), strings.TrimSpace(left))
	}
	return start, end, nil
}

// parseCues is the blank-line-delimited block reader shared by SRT and VTT.
// skip, when non-nil, reports whether a block should be ignored entirely.
func parseCues(r io.Reader, kind string, timing cueParser, skip func(first string) bool) ([]types.TimedEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries []types.TimedEntry
		block   []string
		blockAt int
		lineNo  int
	)
	flush := func() error {
		defer func() { block = block[:0] }()
		if len(block) == 0 || (skip != nil && skip(block[0])) {
			return nil
		}
		i := 0
		if !strings.Contains(block[0], "-->") {
			// Index (SRT) or cue identifier (VTT).
			i = 1
		}
		if i >= len(block) || !strings.Contains(block[i], "-->") {
			if len(block) == 1 && isIndex(block[0]) {
				return nil
			}
			return fmt.Errorf("subtitle: %s line %d: cue without timing line", kind, blockAt)
		}
		start, end, err := timing(block[i])
		if err != nil {
			return fmt.Errorf("subtitle: %s line %d: %w", kind, blockAt+i, err)
		}
		text := cleanText(strings.Join(block[i+1:], " "))
		if text == "" {
			return nil
		}
		entries = append(entries, types.TimedEntry{
			Index:   len(entries) + 1,
			StartMs: start,
			EndMs:   end,
			Text:    text,
		})
		return nil
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(block) == 0 {
			blockAt = lineNo
		}
		block = append(block, strings.TrimSpace(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("subtitle: read %s: %w", kind, err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return entries, nil
}

func isIndex(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// WriteSRT serialises segments as SubRip cues numbered from 1.
func WriteSRT(w io.Writer, segs []types.Segment, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	for i, s := range segs {
		start, err := timecode.Format(s.StartMs)
		if err != nil {
			return fmt.Errorf("subtitle: srt cue %d: %w", i+1, err)
		}
		end, err := timecode.Format(s.EndMs)
		if err != nil {
			return fmt.Errorf("subtitle: srt cue %d: %w", i+1, err)
		}
		text := strings.TrimSpace(s.Text)
		if opts.SpeakerLabels {
			text = labeled(s.Speaker, s.Text)
		}
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n", i+1, start, end, text)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("subtitle: write srt: %w", err)
	}
	return nil
}

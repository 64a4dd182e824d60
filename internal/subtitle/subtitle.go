// Package subtitle reads caption files into timed entries and writes aligned
// segments back out as SRT, WebVTT, JSON or a Markdown transcript.
package subtitle

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MrWong99/transcriptsync/pkg/types"
)

// Format names a caption or transcript serialisation.
type Format string

const (
	FormatSRT      Format = "srt"
	FormatVTT      Format = "vtt"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat maps a user-supplied name onto a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("subtitle: unknown format %q", s)
	}
}

// Ext returns the conventional file extension, without the dot.
func (f Format) Ext() string { return string(f) }

// DetectFormat picks a caption format from a file name, falling back to the
// WEBVTT header in data. Anything else is treated as SRT.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".vtt":
		return FormatVTT
	case ".srt":
		return FormatSRT
	}
	head := bytes.TrimPrefix(data, []byte("\ufeff"))
	head = bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(head, []byte("WEBVTT")) {
		return FormatVTT
	}
	return FormatSRT
}

// Parse reads captions in the given format.
func Parse(r io.Reader, f Format) ([]types.TimedEntry, error) {
	switch f {
	case FormatSRT:
		return ParseSRT(r)
	case FormatVTT:
		return ParseVTT(r)
	default:
		return nil, fmt.Errorf("subtitle: cannot parse %q captions", f)
	}
}

// WriteOptions controls caption output.
type WriteOptions struct {
	// SpeakerLabels prefixes each cue with "Speaker: ".
	SpeakerLabels bool
}

// Write serialises segments in the given format. meta is only used by the
// Markdown renderer.
func Write(w io.Writer, f Format, segs []types.Segment, opts WriteOptions, meta Metadata) error {
	switch f {
	case FormatSRT:
		return WriteSRT(w, segs, opts)
	case FormatVTT:
		return WriteVTT(w, segs, opts)
	case FormatJSON:
		return WriteJSON(w, segs)
	case FormatMarkdown:
		return RenderMarkdown(w, meta, segs)
	default:
		return fmt.Errorf("subtitle: cannot write %q", f)
	}
}

var inlineTagRe = regexp.MustCompile(`<[^>]+>`)

// cleanText strips inline markup and collapses whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(inlineTagRe.ReplaceAllString(s, "")), " ")
}

// labeled returns text prefixed with the speaker label. An identical label
// already leading the text is removed first.
func labeled(speaker, text string) string {
	text = strings.TrimSpace(text)
	if speaker == "" {
		return text
	}
	return speaker + ": " + StripLabel(speaker, text)
}

// StripLabel removes a leading "speaker:" from text, ignoring case and
// surrounding whitespace. Text without that prefix is returned unchanged.
func StripLabel(speaker, text string) string {
	trimmed := strings.TrimLeft(text, " \t")
	if len(trimmed) <= len(speaker) || !strings.EqualFold(trimmed[:len(speaker)], speaker) {
		return text
	}
	rest := strings.TrimLeft(trimmed[len(speaker):], " \t")
	if !strings.HasPrefix(rest, ":") {
		return text
	}
	return strings.TrimLeft(rest[1:], " \t")
}

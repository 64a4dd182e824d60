// Package timecode converts between caption timestamp strings and integer
// millisecond offsets.
//
// The canonical form is the fixed-width SRT timestamp HH:MM:SS,mmm. Parsing
// also accepts a '.' millisecond separator (WebVTT) and hour fields wider
// than two digits, so that every non-negative offset round-trips:
//
//	Parse(Format(ms)) == ms
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

var (
	fullRe  = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})$`)
	shortRe = regexp.MustCompile(`^(\d{2}):(\d{2})[,.](\d{3})$`)
)

// FormatError reports a malformed timestamp string or an out-of-range
// millisecond value. It is always surfaced to the caller.
type FormatError struct {
	// Input is the offending string or number.
	Input string

	// Reason describes what was wrong.
	Reason string
}

// Error implements [error].
func (e *FormatError) Error() string {
	return fmt.Sprintf("timecode: %q: %s", e.Input, e.Reason)
}

// Parse converts a HH:MM:SS,mmm (or HH:MM:SS.mmm) timestamp to milliseconds.
// Surrounding whitespace is ignored. Minutes and seconds must be below 60.
func Parse(s string) (int64, error) {
	m := fullRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, &FormatError{Input: s, Reason: "want HH:MM:SS,mmm"}
	}
	return assemble(s, m[1], m[2], m[3], m[4])
}

// ParseVTT is like [Parse] but additionally accepts the WebVTT short form
// MM:SS.mmm, which omits the hour field.
func ParseVTT(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if m := shortRe.FindStringSubmatch(trimmed); m != nil {
		return assemble(s, "0", m[1], m[2], m[3])
	}
	return Parse(trimmed)
}

func assemble(input, hh, mm, ss, mmm string) (int64, error) {
	h, err := strconv.ParseInt(hh, 10, 64)
	if err != nil {
		return 0, &FormatError{Input: input, Reason: "hours out of range"}
	}
	// The regexp guarantees the remaining fields are short digit runs.
	m, _ := strconv.ParseInt(mm, 10, 64)
	s, _ := strconv.ParseInt(ss, 10, 64)
	ms, _ := strconv.ParseInt(mmm, 10, 64)
	if m >= 60 {
		return 0, &FormatError{Input: input, Reason: "minutes must be below 60"}
	}
	if s >= 60 {
		return 0, &FormatError{Input: input, Reason: "seconds must be below 60"}
	}
	return h*msPerHour + m*msPerMinute + s*msPerSecond + ms, nil
}

// Format renders ms as HH:MM:SS,mmm with every field zero-padded. Hours
// widen past two digits when needed. Negative input is a [FormatError].
func Format(ms int64) (string, error) {
	return format(ms, ',')
}

// FormatVTT renders ms as HH:MM:SS.mmm.
func FormatVTT(ms int64) (string, error) {
	return format(ms, '.')
}

// MustFormat is like [Format] but panics on negative input. It is intended
// for values already known to be valid, such as reshaper output.
func MustFormat(ms int64) string {
	s, err := Format(ms)
	if err != nil {
		panic(err)
	}
	return s
}

func format(ms int64, sep byte) (string, error) {
	if ms < 0 {
		return "", &FormatError{Input: strconv.FormatInt(ms, 10), Reason: "must be non-negative"}
	}
	h := ms / msPerHour
	m := (ms % msPerHour) / msPerMinute
	s := (ms % msPerMinute) / msPerSecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%msPerSecond), nil
}

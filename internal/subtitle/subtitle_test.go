package subtitle_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/transcriptsync/internal/subtitle"
	"github.com/MrWong99/transcriptsync/pkg/timecode"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,000
hello world

2
00:00:02,000 --> 00:00:04,500
how <i>are</i>
you

3
00:00:05,000 --> 00:00:06,000

4
00:01:00,250 --> 00:01:02,000
bye
`

func TestParseSRT(t *testing.T) {
	t.Parallel()

	got, err := subtitle.ParseSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	want := []types.TimedEntry{
		{Index: 1, StartMs: 0, EndMs: 2000, Text: "hello world"},
		{Index: 2, StartMs: 2000, EndMs: 4500, Text: "how are you"},
		{Index: 3, StartMs: 60250, EndMs: 62000, Text: "bye"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseSRT_CRLFAndNoIndex(t *testing.T) {
	t.Parallel()

	in := "\ufeff00:00:01,000 --> 00:00:02,000\r\nfirst\r\n\r\n00:00:03,000 --> 00:00:04,000\r\nsecond\r\n"
	got, err := subtitle.ParseSRT(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(got) != 2 || got[0].Text != "first" || got[1].StartMs != 3000 {
		t.Errorf("got %+v", got)
	}
}

func TestParseSRT_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         string
		wantFormat bool
	}{
		{name: "bad timestamp", in: "1\n00:00:0x,000 --> 00:00:02,000\nhi\n", wantFormat: true},
		{name: "minutes out of range", in: "1\n00:61:00,000 --> 00:62:00,000\nhi\n", wantFormat: true},
		{name: "missing arrow", in: "1\n00:00:01,000 00:00:02,000\nhi\n"},
		{name: "end before start", in: "1\n00:00:05,000 --> 00:00:02,000\nhi\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := subtitle.ParseSRT(strings.NewReader(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "line") {
				t.Errorf("error %q does not name a line", err)
			}
			var fe *timecode.FormatError
			if tt.wantFormat && !errors.As(err, &fe) {
				t.Errorf("error %v is not a FormatError", err)
			}
		})
	}
}

func TestParseVTT(t *testing.T) {
	t.Parallel()

	in := `WEBVTT
Kind: captions

NOTE this is a comment
spanning lines

STYLE
::cue { color: yellow }

intro
00:01.000 --> 00:02.500 align:start position:10%
<v Roger>so tell me</v>

00:00:03.000 --> 00:00:04.000
about yourself
`
	got, err := subtitle.ParseVTT(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseVTT: %v", err)
	}
	want := []types.TimedEntry{
		{Index: 1, StartMs: 1000, EndMs: 2500, Text: "so tell me"},
		{Index: 2, StartMs: 3000, EndMs: 4000, Text: "about yourself"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data string
		want subtitle.Format
	}{
		{"srt ext", "a.SRT", "WEBVTT", subtitle.FormatSRT},
		{"vtt ext", "a.vtt", "", subtitle.FormatVTT},
		{"vtt header", "upload", "\n WEBVTT\n", subtitle.FormatVTT},
		{"fallback", "upload", "1\n00:00:00,000 --> 00:00:01,000\nx\n", subtitle.FormatSRT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := subtitle.DetectFormat(tt.file, []byte(tt.data)); got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]subtitle.Format{
		"SRT": subtitle.FormatSRT, "webvtt": subtitle.FormatVTT,
		"json": subtitle.FormatJSON, "markdown": subtitle.FormatMarkdown,
	} {
		got, err := subtitle.ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := subtitle.ParseFormat("docx"); err == nil {
		t.Error("ParseFormat(docx) succeeded")
	}
}

func segments() []types.Segment {
	return []types.Segment{
		{Speaker: "INTERVIEWER", Text: "Where were you born?", StartMs: 0, EndMs: 2500, Source: types.SourceAnchored, Confidence: 0.9},
		{Speaker: "Smith", Text: "smith: In Leeds, in 1950.", StartMs: 2500, EndMs: 3_723_004, Source: types.SourceInterpolated},
	}
}

func TestWriteSRT_RoundTrip(t *testing.T) {
	t.Parallel()

	segs := segments()
	var buf bytes.Buffer
	if err := subtitle.WriteSRT(&buf, segs, subtitle.WriteOptions{}); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	got, err := subtitle.ParseSRT(&buf)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(got) != len(segs) {
		t.Fatalf("len = %d, want %d", len(got), len(segs))
	}
	for i, e := range got {
		if e.StartMs != segs[i].StartMs || e.EndMs != segs[i].EndMs || e.Text != segs[i].Text {
			t.Errorf("entry %d = %+v, want %+v", i, e, segs[i])
		}
	}
}

func TestWriteSRT_SpeakerLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := subtitle.WriteSRT(&buf, segments(), subtitle.WriteOptions{SpeakerLabels: true}); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,500\nINTERVIEWER: Where were you born?\n\n" +
		"2\n00:00:02,500 --> 01:02:03,004\nSmith: In Leeds, in 1950.\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteSRT =\n%q\nwant\n%q", got, want)
	}
}

func TestWriteVTT_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := subtitle.WriteVTT(&buf, segments(), subtitle.WriteOptions{SpeakerLabels: true}); err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "WEBVTT\n\n00:00:00.000 --> 00:00:02.500\n") {
		t.Errorf("unexpected header:\n%s", buf.String())
	}
	got, err := subtitle.ParseVTT(&buf)
	if err != nil {
		t.Fatalf("ParseVTT: %v", err)
	}
	if len(got) != 2 || got[1].Text != "Smith: In Leeds, in 1950." || got[1].EndMs != 3_723_004 {
		t.Errorf("got %+v", got)
	}
}

func TestStripLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		speaker, text, want string
	}{
		{"Smith", "Smith: hello", "hello"},
		{"Smith", "  SMITH :hello", "hello"},
		{"Smith", "Smithers: hello", "Smithers: hello"},
		{"Smith", "Smith said hello", "Smith said hello"},
		{"Smith", "Smith", "Smith"},
	}
	for _, tt := range tests {
		if got := subtitle.StripLabel(tt.speaker, tt.text); got != tt.want {
			t.Errorf("StripLabel(%q, %q) = %q, want %q", tt.speaker, tt.text, got, tt.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	segs := segments()
	var buf bytes.Buffer
	meta := subtitle.Metadata{Title: "Oral history", Speakers: subtitle.Speakers(segs)}
	if err := subtitle.RenderMarkdown(&buf, meta, segs); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Oral history\n",
		"- Speakers: INTERVIEWER, Smith\n",
		"- Duration: 01:02:03\n",
		"[00:00:00-00:00:02] INTERVIEWER: Where were you born?\n",
		"[00:00:02-01:02:03] Smith: In Leeds, in 1950.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := subtitle.WriteJSON(&buf, segments()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["source"] != "anchored" || got[1]["source"] != "interpolated" {
		t.Errorf("sources = %v, %v", got[0]["source"], got[1]["source"])
	}
	if got[1]["end"] != "01:02:03,004" {
		t.Errorf("end = %v", got[1]["end"])
	}
	if got[0]["confidence"] != 0.9 {
		t.Errorf("confidence = %v", got[0]["confidence"])
	}
}

package reshape_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/transcriptsync/internal/reshape"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

func seg(speaker, text string, start, end int64, src types.Source) types.Segment {
	return types.Segment{Speaker: speaker, Text: text, StartMs: start, EndMs: end, Source: src, Confidence: 0.9}
}

func TestMergeBySpeaker(t *testing.T) {
	t.Parallel()

	in := []types.Segment{
		seg("INTERVIEWER", "Where were you born?", 0, 2000, types.SourceAnchored),
		seg("SMITH", "In Leeds.", 2000, 3000, types.SourceAnchored),
		seg("SMITH", "In nineteen fifty.", 3000, 5000, types.SourceInterpolated),
		seg("SMITH", "A cold winter.", 5000, 6000, types.SourceAnchored),
		seg("INTERVIEWER", "And your parents?", 6000, 7000, types.SourceAnchored),
	}
	in[3].Confidence = 0.5
	orig := slices.Clone(in)

	got := reshape.MergeBySpeaker(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	m := got[1]
	if m.Text != "In Leeds. In nineteen fifty. A cold winter." {
		t.Errorf("Text = %q", m.Text)
	}
	if m.StartMs != 2000 || m.EndMs != 6000 {
		t.Errorf("span = [%d, %d], want [2000, 6000]", m.StartMs, m.EndMs)
	}
	if m.Source != types.SourceMixed {
		t.Errorf("Source = %q, want mixed", m.Source)
	}
	if m.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", m.Confidence)
	}
	if !slices.Equal(in, orig) {
		t.Error("input was modified")
	}
}

func TestMergeBySpeaker_Idempotent(t *testing.T) {
	t.Parallel()

	in := []types.Segment{
		seg("A", "one", 0, 1000, types.SourceAnchored),
		seg("A", "two", 1000, 2000, types.SourceAnchored),
		seg("B", "three", 2000, 3000, types.SourceAnchored),
		seg("", "four", 3000, 4000, types.SourceInterpolated),
		seg("", "five", 4000, 5000, types.SourceInterpolated),
		seg("A", "six", 5000, 6000, types.SourceAnchored),
	}
	once := reshape.MergeBySpeaker(in)
	twice := reshape.MergeBySpeaker(once)
	if !slices.Equal(once, twice) {
		t.Errorf("merge not idempotent:\n once = %+v\ntwice = %+v", once, twice)
	}
	for i := 1; i < len(once); i++ {
		if once[i].Speaker == once[i-1].Speaker {
			t.Errorf("adjacent segments %d and %d share speaker %q", i-1, i, once[i].Speaker)
		}
	}
	if len(once) != 4 {
		t.Errorf("len = %d, want 4", len(once))
	}
}

func TestMergeBySpeaker_KeepsLatestEnd(t *testing.T) {
	t.Parallel()

	got := reshape.MergeBySpeaker([]types.Segment{
		seg("A", "long", 0, 9000, types.SourceAnchored),
		seg("A", "short", 2000, 3000, types.SourceAnchored),
	})
	if len(got) != 1 || got[0].EndMs != 9000 {
		t.Errorf("got %+v, want one segment ending at 9000", got)
	}
}

func TestSplitLong(t *testing.T) {
	t.Parallel()

	text := "I grew up on a farm outside the village. We kept sheep and a few cows. " +
		"My father worked the land until he was seventy. Then my brother took over."
	in := []types.Segment{seg("SMITH", text, 10_000, 160_000, types.SourceAnchored)}

	got := reshape.SplitLong(in, reshape.DefaultParams())
	if len(got) < 2 {
		t.Fatalf("len = %d, want at least 2", len(got))
	}
	if got[0].StartMs != 10_000 {
		t.Errorf("first start = %d, want 10000", got[0].StartMs)
	}
	if got[len(got)-1].EndMs != 160_000 {
		t.Errorf("last end = %d, want 160000", got[len(got)-1].EndMs)
	}

	var texts []string
	for i, s := range got {
		if s.Duration() > 120_000 {
			t.Errorf("chunk %d lasts %d ms", i, s.Duration())
		}
		if s.Speaker != "SMITH" || s.Source != types.SourceAnchored {
			t.Errorf("chunk %d lost attributes: %+v", i, s)
		}
		if i > 0 && s.StartMs < got[i-1].EndMs {
			t.Errorf("chunk %d starts at %d before previous end %d", i, s.StartMs, got[i-1].EndMs)
		}
		texts = append(texts, s.Text)
	}
	if strings.Join(texts, " ") != text {
		t.Errorf("text changed:\n got %q\nwant %q", strings.Join(texts, " "), text)
	}
}

func TestSplitLong_ManyChunksWhenVeryLong(t *testing.T) {
	t.Parallel()

	text := "One. Two. Three. Four. Five."
	in := []types.Segment{seg("A", text, 0, 400_000, types.SourceInterpolated)}

	got := reshape.SplitLong(in, reshape.DefaultParams())
	if len(got) < 4 {
		t.Fatalf("len = %d, want at least 4 for a 400 s segment", len(got))
	}
	for i, s := range got {
		if s.Duration() > 120_000 {
			t.Errorf("chunk %d lasts %d ms", i, s.Duration())
		}
	}
	if got[0].StartMs != 0 || got[len(got)-1].EndMs != 400_000 {
		t.Errorf("span = [%d, %d], want [0, 400000]", got[0].StartMs, got[len(got)-1].EndMs)
	}
}

func TestSplitLong_ShortSegmentsUntouched(t *testing.T) {
	t.Parallel()

	in := []types.Segment{
		seg("A", "short", 0, 120_000, types.SourceAnchored),
		seg("B", "also short", 120_000, 121_000, types.SourceAnchored),
	}
	got := reshape.SplitLong(in, reshape.DefaultParams())
	if !slices.Equal(in, got) {
		t.Errorf("got %+v, want input unchanged", got)
	}
}

func TestChunkText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{
			name:     "packs sentences",
			text:     "Hi. Yes. No.",
			maxChars: 8,
			want:     []string{"Hi. Yes.", "No."},
		},
		{
			name:     "long sentence broken on words",
			text:     "alpha beta gamma delta",
			maxChars: 11,
			want:     []string{"alpha beta", "gamma delta"},
		},
		{
			name:     "unterminated tail kept",
			text:     "Done. and then",
			maxChars: 100,
			want:     []string{"Done. and then"},
		},
		{
			name:     "empty",
			text:     "   ",
			maxChars: 10,
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reshape.ChunkText(tt.text, tt.maxChars)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ChunkText(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestSentences(t *testing.T) {
	t.Parallel()

	got := reshape.Sentences(`He said "stop!" Then left. Why?`)
	want := []string{`He said "stop!"`, "Then left.", "Why?"}
	if !slices.Equal(got, want) {
		t.Errorf("Sentences = %q, want %q", got, want)
	}
}

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	if err := reshape.DefaultParams().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	if err := (reshape.Params{}).Validate(); err == nil {
		t.Error("zero params accepted")
	}
}

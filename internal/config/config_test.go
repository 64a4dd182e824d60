package config_test

import (
	"testing"

	"github.com/MrWong99/transcriptsync/internal/align"
	"github.com/MrWong99/transcriptsync/internal/config"
	"github.com/MrWong99/transcriptsync/internal/reshape"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if cfg.AlignParams() != align.DefaultParams() {
		t.Errorf("AlignParams() = %+v, want defaults", cfg.AlignParams())
	}
	if cfg.ReshapeParams() != reshape.DefaultParams() {
		t.Errorf("ReshapeParams() = %+v, want defaults", cfg.ReshapeParams())
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
}

func TestAlignParams_FillsZeroFields(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Alignment.Anchor.WindowSize = 50
	cfg.Alignment.EndMargin = 2
	cfg.Alignment.FuzzyTokenThreshold = 0.9

	got := cfg.AlignParams()
	want := align.DefaultParams()
	want.Anchor.WindowSize = 50
	want.EndMargin = 2
	want.FuzzyTokenThreshold = 0.9
	if got != want {
		t.Errorf("AlignParams() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestReshapeParams_FillsZeroFields(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Reshape: reshape.Params{MaxChunkChars: 80}}
	got := cfg.ReshapeParams()
	if got.MaxChunkChars != 80 || got.MaxSegmentMs != reshape.DefaultParams().MaxSegmentMs {
		t.Errorf("ReshapeParams() = %+v", got)
	}
}

func TestOutputFormat_Default(t *testing.T) {
	t.Parallel()

	if got := (&config.Config{}).OutputFormat(); got != "srt" {
		t.Errorf("OutputFormat() = %q, want srt", got)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q.IsValid() = false", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error(`"verbose".IsValid() = true`)
	}
}

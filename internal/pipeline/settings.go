package pipeline

import (
	"fmt"

	"github.com/MrWong99/transcriptsync/internal/config"
	"github.com/MrWong99/transcriptsync/internal/reference"
	"github.com/MrWong99/transcriptsync/internal/subtitle"
)

// SettingsFromConfig derives pipeline settings from a loaded configuration,
// filling unset fields with their defaults.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	format, err := subtitle.ParseFormat(cfg.OutputFormat())
	if err != nil {
		return Settings{}, fmt.Errorf("pipeline: %w", err)
	}

	var mopts []reference.MatcherOption
	if cfg.Reference.PhoneticThreshold > 0 {
		mopts = append(mopts, reference.WithPhoneticThreshold(cfg.Reference.PhoneticThreshold))
	}
	if cfg.Reference.FuzzyThreshold > 0 {
		mopts = append(mopts, reference.WithFuzzyThreshold(cfg.Reference.FuzzyThreshold))
	}
	if cfg.Reference.MinSupport > 0 {
		mopts = append(mopts, reference.WithMinSupport(cfg.Reference.MinSupport))
	}

	return Settings{
		Align:   cfg.AlignParams(),
		Reshape: cfg.ReshapeParams(),
		Reference: reference.Options{
			Aliases:       cfg.Reference.Aliases,
			KnownSpeakers: cfg.Reference.KnownSpeakers,
			Matcher:       reference.NewSpeakerMatcher(mopts...),
		},
		Write:  subtitle.WriteOptions{SpeakerLabels: cfg.Output.SpeakerLabels},
		Format: format,
	}, nil
}

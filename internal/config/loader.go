package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrWong99/transcriptsync/internal/subtitle"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown keys are rejected. An empty document yields an all-zero config,
// which resolves to the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadBytes(data []byte) (*Config, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes %d must not be negative", cfg.Server.MaxBodyBytes))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Tuning
	if err := cfg.AlignParams().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("alignment: %w", err))
	}
	if err := cfg.ReshapeParams().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("reshape: %w", err))
	}
	ap := cfg.AlignParams()
	if ap.Anchor.MinConfidence < ap.FrontMatter.MinConfidence {
		slog.Warn("alignment.anchor.min_confidence is below the front-matter floor; weak anchors may misplace interpolated turns",
			"anchor", ap.Anchor.MinConfidence,
			"front_matter", ap.FrontMatter.MinConfidence,
		)
	}

	// Reference
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"reference.phonetic_threshold", cfg.Reference.PhoneticThreshold},
		{"reference.fuzzy_threshold", cfg.Reference.FuzzyThreshold},
	} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", f.name, f.v))
		}
	}
	if cfg.Reference.MinSupport < 0 {
		errs = append(errs, fmt.Errorf("reference.min_support %d must not be negative", cfg.Reference.MinSupport))
	}
	for k, v := range cfg.Reference.Aliases {
		if k == "" || v == "" {
			errs = append(errs, fmt.Errorf("reference.aliases: %q -> %q must not be empty", k, v))
		}
	}

	// Output
	if cfg.Output.Format != "" {
		if _, err := subtitle.ParseFormat(cfg.Output.Format); err != nil {
			errs = append(errs, fmt.Errorf("output.format %q is invalid; valid values: srt, vtt, json, md", cfg.Output.Format))
		}
	}

	if cfg.Batch.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("batch.concurrency %d must not be negative", cfg.Batch.Concurrency))
	}
	if cfg.Store.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("store.memory_limit %d must not be negative", cfg.Store.MemoryLimit))
	}

	return errors.Join(errs...)
}

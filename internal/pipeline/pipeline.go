// Package pipeline runs the full alignment flow for one transcript pair:
// reference ingestion, caption parsing, two-pass alignment, merging by
// speaker, splitting of long segments and rendering of the output.
//
// A [Pipeline] is safe for concurrent use. Its [Settings] can be swapped at
// any time with [Pipeline.SetSettings]; runs already in flight keep the
// settings they started with.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/transcriptsync/internal/align"
	"github.com/MrWong99/transcriptsync/internal/observe"
	"github.com/MrWong99/transcriptsync/internal/reference"
	"github.com/MrWong99/transcriptsync/internal/reshape"
	"github.com/MrWong99/transcriptsync/internal/subtitle"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// InputError reports that one of the inputs of a [Job] could not be parsed.
type InputError struct {
	// Input is "reference", "captions" or "format".
	Input string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("pipeline: invalid %s: %v", e.Input, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Job is one transcript pair to align.
type Job struct {
	// Name labels the run in logs, the store and Markdown output.
	Name string

	// Reference is the corrected, speaker-attributed transcript text.
	Reference string

	// Captions holds the raw caption file contents.
	Captions []byte

	// CaptionsName is the caption file name, used for format detection.
	CaptionsName string

	// CaptionsFormat overrides format detection when set.
	CaptionsFormat subtitle.Format

	// OutputFormat overrides [Settings.Format] when set.
	OutputFormat subtitle.Format
}

// Result is the outcome of one [Job].
type Result struct {
	Name       string
	StartIndex int

	// Aligned holds one segment per body turn, before reshaping.
	Aligned []types.Segment

	// Segments is the final, merged and split output.
	Segments []types.Segment

	Anchors []align.Anchor
	Stats   align.Stats

	// Splits is how many extra segments the duration cap produced.
	Splits int

	Format subtitle.Format
	Output []byte
}

// Settings is the hot-swappable tuning of a [Pipeline].
type Settings struct {
	Align     align.Params
	Reshape   reshape.Params
	Reference reference.Options
	Write     subtitle.WriteOptions

	// Format is the default output format.
	Format subtitle.Format
}

// DefaultSettings returns the documented defaults with SRT output.
func DefaultSettings() Settings {
	return Settings{
		Align:   align.DefaultParams(),
		Reshape: reshape.DefaultParams(),
		Format:  subtitle.FormatSRT,
	}
}

// Option is a functional option for [New].
type Option func(*Pipeline)

// WithMetrics records run metrics on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithSettings sets the initial settings.
func WithSettings(s Settings) Option {
	return func(p *Pipeline) {
		p.settings.Store(&s)
	}
}

// WithObserver attaches an extra [align.Observer] to every run, next to the
// debug log observer.
func WithObserver(o align.Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// Pipeline aligns transcript pairs.
type Pipeline struct {
	settings atomic.Pointer[Settings]
	metrics  *observe.Metrics
	observer align.Observer
	now      func() time.Time
}

// New returns a [Pipeline] using [DefaultSettings] unless overridden.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now}
	s := DefaultSettings()
	p.settings.Store(&s)
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Settings returns the settings new runs will use.
func (p *Pipeline) Settings() Settings {
	return *p.settings.Load()
}

// SetSettings validates s and installs it for subsequent runs.
func (p *Pipeline) SetSettings(s Settings) error {
	if err := s.Align.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := s.Reshape.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if s.Format == "" {
		s.Format = subtitle.FormatSRT
	}
	p.settings.Store(&s)
	return nil
}

// Run aligns one job. Parse failures are returned as *[InputError]; inputs
// that cannot be related at all wrap [align.ErrEmptyAlignment].
func (p *Pipeline) Run(ctx context.Context, job Job) (res *Result, err error) {
	settings := p.Settings()

	ctx, span := observe.StartSpan(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.String("job.name", job.Name)),
	)
	start := p.now()
	p.metrics.ActiveRuns.Add(ctx, 1)
	defer func() {
		p.metrics.ActiveRuns.Add(ctx, -1)
		status := observe.StatusOK
		if err != nil {
			status = observe.StatusError
		}
		p.metrics.RecordRun(ctx, status, p.now().Sub(start))
		observe.EndSpan(span, err)
	}()

	log := observe.Logger(ctx).With("job", job.Name)

	outFormat := settings.Format
	if job.OutputFormat != "" {
		outFormat = job.OutputFormat
	}
	switch outFormat {
	case subtitle.FormatSRT, subtitle.FormatVTT, subtitle.FormatJSON, subtitle.FormatMarkdown:
	default:
		return nil, &InputError{Input: "format", Err: fmt.Errorf("unknown output format %q", outFormat)}
	}

	t0 := p.now()
	turns, err := reference.Parse(strings.NewReader(job.Reference), settings.Reference)
	p.metrics.RecordParse(ctx, "reference", p.now().Sub(t0))
	if err != nil {
		return nil, &InputError{Input: "reference", Err: err}
	}

	capFormat := job.CaptionsFormat
	if capFormat == "" {
		capFormat = subtitle.DetectFormat(job.CaptionsName, job.Captions)
	}
	t0 = p.now()
	entries, err := subtitle.Parse(bytes.NewReader(job.Captions), capFormat)
	p.metrics.RecordParse(ctx, "captions", p.now().Sub(t0))
	if err != nil {
		return nil, &InputError{Input: "captions", Err: err}
	}

	span.SetAttributes(
		attribute.Int("reference.turns", len(turns)),
		attribute.Int("captions.entries", len(entries)),
	)

	var obs align.Observer = align.NewLogObserver(log)
	if p.observer != nil {
		obs = multiObserver{obs, p.observer}
	}
	aligner := align.New(align.WithParams(settings.Align), align.WithObserver(obs))
	aligned, err := aligner.Align(turns, entries)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	merged := reshape.MergeBySpeaker(aligned.Segments)
	final := reshape.SplitLong(merged, settings.Reshape)
	splits := len(final) - len(merged)

	p.metrics.RecordTurns(ctx, aligned.Stats.Anchored, aligned.Stats.Interpolated, aligned.Stats.FrontMatter)
	confs := make([]float64, len(aligned.Anchors))
	for i, a := range aligned.Anchors {
		confs[i] = a.Confidence
	}
	p.metrics.RecordAnchors(ctx, confs...)
	p.metrics.RecordSplits(ctx, splits)

	var out bytes.Buffer
	meta := subtitle.Metadata{
		Title:     job.Name,
		Source:    job.CaptionsName,
		Speakers:  subtitle.Speakers(final),
		Generated: p.now().UTC().Format(time.RFC3339),
	}
	if err := subtitle.Write(&out, outFormat, final, settings.Write, meta); err != nil {
		return nil, fmt.Errorf("pipeline: render %s: %w", outFormat, err)
	}

	log.Info("pipeline: alignment complete",
		"turns", aligned.Stats.Turns,
		"front_matter", aligned.Stats.FrontMatter,
		"anchored", aligned.Stats.Anchored,
		"interpolated", aligned.Stats.Interpolated,
		"segments", len(final),
	)

	return &Result{
		Name:       job.Name,
		StartIndex: aligned.StartIndex,
		Aligned:    aligned.Segments,
		Segments:   final,
		Anchors:    aligned.Anchors,
		Stats:      aligned.Stats,
		Splits:     splits,
		Format:     outFormat,
		Output:     out.Bytes(),
	}, nil
}

// IsInputError reports whether err was caused by unparsable input.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// multiObserver fans every event out to each observer in order.
type multiObserver []align.Observer

func (m multiObserver) TranscriptStart(index int) {
	for _, o := range m {
		o.TranscriptStart(index)
	}
}

func (m multiObserver) Searched(turnIndex, cursor int) {
	for _, o := range m {
		o.Searched(turnIndex, cursor)
	}
}

func (m multiObserver) Anchored(a align.Anchor) {
	for _, o := range m {
		o.Anchored(a)
	}
}

func (m multiObserver) Missed(turnIndex, cursor int) {
	for _, o := range m {
		o.Missed(turnIndex, cursor)
	}
}

func (m multiObserver) Interpolated(turnIndex int, seg types.Segment, mode align.InterpolationMode) {
	for _, o := range m {
		o.Interpolated(turnIndex, seg, mode)
	}
}

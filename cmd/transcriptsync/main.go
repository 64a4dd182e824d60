// Command transcriptsync aligns a corrected, speaker-attributed transcript
// with the timestamps of automatically generated captions.
//
// Single pair:
//
//	transcriptsync -reference interview.txt -captions auto.srt -o out.srt
//
// Every pair in a directory:
//
//	transcriptsync -batch ./interviews -concurrency 4
//
// HTTP service:
//
//	transcriptsync -serve -config config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MrWong99/transcriptsync/internal/app"
	"github.com/MrWong99/transcriptsync/internal/config"
	"github.com/MrWong99/transcriptsync/internal/pipeline"
	"github.com/MrWong99/transcriptsync/internal/subtitle"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	var (
		configPath    = flag.String("config", "", "path to the YAML configuration file (optional)")
		referencePath = flag.String("reference", "", "corrected reference transcript (plain text)")
		captionsPath  = flag.String("captions", "", "timed captions (.srt or .vtt)")
		outPath       = flag.String("o", "-", "output file, or - for stdout")
		format        = flag.String("format", "", "output format: srt, vtt, json or md (default from config, else srt)")
		speakerLabels = flag.Bool("speaker-labels", false, "prefix every caption with its speaker")
		name          = flag.String("name", "", "title for Markdown output (default: reference file name)")
		batchDir      = flag.String("batch", "", "align every name.txt with name.srt or name.vtt in this directory")
		concurrency   = flag.Int("concurrency", 0, "parallel alignments in batch mode (default from config, else one per CPU)")
		serve         = flag.Bool("serve", false, "run the HTTP service")
	)
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "transcriptsync: config file %q not found\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "transcriptsync: %v\n", err)
			}
			return 1
		}
		cfg = loaded
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *speakerLabels {
		cfg.Output.SpeakerLabels = true
	}
	if *concurrency > 0 {
		cfg.Batch.Concurrency = *concurrency
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	slog.SetDefault(newLogger(cfg.Server.LogLevel, &level))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		return runServer(ctx, cfg, *configPath, &level)
	case *batchDir != "":
		return runBatch(ctx, cfg, *batchDir)
	case *referencePath != "" && *captionsPath != "":
		return runSingle(ctx, cfg, *referencePath, *captionsPath, *outPath, *name)
	default:
		fmt.Fprintln(os.Stderr, "transcriptsync: need -reference and -captions, -batch, or -serve")
		flag.Usage()
		return 2
	}
}

// ── Modes ─────────────────────────────────────────────────────────────────────

func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	settings, err := pipeline.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.WithSettings(settings)), nil
}

func runSingle(ctx context.Context, cfg *config.Config, refPath, capPath, outPath, name string) int {
	p, err := newPipeline(cfg)
	if err != nil {
		slog.Error("invalid settings", "err", err)
		return 1
	}

	job, err := loadJob(refPath, capPath)
	if err != nil {
		slog.Error("failed to read inputs", "err", err)
		return 1
	}
	if name != "" {
		job.Name = name
	}

	res, err := p.Run(ctx, job)
	if err != nil {
		slog.Error("alignment failed", "err", err)
		return 1
	}

	if err := writeOutput(outPath, res.Output); err != nil {
		slog.Error("failed to write output", "err", err)
		return 1
	}
	slog.Info("aligned",
		"turns", res.Stats.Turns,
		"front_matter", res.Stats.FrontMatter,
		"anchored", res.Stats.Anchored,
		"interpolated", res.Stats.Interpolated,
		"segments", len(res.Segments),
		"output", outPath,
	)
	return 0
}

func runBatch(ctx context.Context, cfg *config.Config, dir string) int {
	p, err := newPipeline(cfg)
	if err != nil {
		slog.Error("invalid settings", "err", err)
		return 1
	}
	format := p.Settings().Format

	pairs, err := findPairs(dir)
	if err != nil {
		slog.Error("failed to scan batch directory", "dir", dir, "err", err)
		return 1
	}
	if len(pairs) == 0 {
		slog.Warn("no transcript pairs found", "dir", dir)
		return 0
	}

	jobs := make([]pipeline.Job, 0, len(pairs))
	for _, pr := range pairs {
		job, err := loadJob(pr.reference, pr.captions)
		if err != nil {
			slog.Error("failed to read inputs", "pair", pr.name, "err", err)
			return 1
		}
		jobs = append(jobs, job)
	}

	start := time.Now()
	failed := 0
	for i, r := range p.RunBatch(ctx, jobs, cfg.Batch.Concurrency) {
		if r.Err != nil {
			failed++
			slog.Error("alignment failed", "pair", pairs[i].name, "err", r.Err)
			continue
		}
		out := pairs[i].outputPath(format)
		if err := os.WriteFile(out, r.Result.Output, 0o644); err != nil {
			failed++
			slog.Error("failed to write output", "path", out, "err", err)
			continue
		}
		slog.Info("aligned", "pair", pairs[i].name, "output", out,
			"anchored", r.Result.Stats.Anchored, "interpolated", r.Result.Stats.Interpolated)
	}
	slog.Info("batch complete", "pairs", len(pairs), "failed", failed, "elapsed", time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return 1
	}
	return 0
}

func runServer(ctx context.Context, cfg *config.Config, configPath string, level *slog.LevelVar) int {
	printStartupSummary(cfg)

	opts := []app.Option{app.WithLevelVar(level)}
	if configPath != "" {
		opts = append(opts, app.WithConfigWatch(configPath))
	}
	application, err := app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down", "listen_addr", cfg.Server.ListenAddr)

	code := 0
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return code
}

// ── Inputs and outputs ────────────────────────────────────────────────────────

func loadJob(refPath, capPath string) (pipeline.Job, error) {
	ref, err := os.ReadFile(refPath)
	if err != nil {
		return pipeline.Job{}, err
	}
	captions, err := os.ReadFile(capPath)
	if err != nil {
		return pipeline.Job{}, err
	}
	return pipeline.Job{
		Name:         strings.TrimSuffix(filepath.Base(refPath), filepath.Ext(refPath)),
		Reference:    string(ref),
		Captions:     captions,
		CaptionsName: filepath.Base(capPath),
	}, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" || path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// pair is one reference transcript with its captions file.
type pair struct {
	name      string
	reference string
	captions  string
}

func (p pair) outputPath(f subtitle.Format) string {
	return filepath.Join(filepath.Dir(p.reference), p.name+".aligned."+f.Ext())
}

// findPairs lists every name.txt in dir that has a name.srt or name.vtt
// next to it, in name order. SRT wins when both exist.
func findPairs(dir string) ([]pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pairs []pair
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".txt")
		for _, ext := range []string{".srt", ".vtt"} {
			capPath := filepath.Join(dir, name+ext)
			if _, err := os.Stat(capPath); err == nil {
				pairs = append(pairs, pair{
					name:      name,
					reference: filepath.Join(dir, e.Name()),
					captions:  capPath,
				})
				break
			}
		}
	}
	return pairs, nil
}

// ── Logging ───────────────────────────────────────────────────────────────────

// newLogger creates a text logger on stderr whose level is held in lv so a
// config reload can change it.
func newLogger(level config.LogLevel, lv *slog.LevelVar) *slog.Logger {
	switch level {
	case config.LogDebug:
		lv.Set(slog.LevelDebug)
	case config.LogWarn:
		lv.Set(slog.LevelWarn)
	case config.LogError:
		lv.Set(slog.LevelError)
	default:
		lv.Set(slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

func printStartupSummary(cfg *config.Config) {
	store := "memory"
	if cfg.Store.PostgresDSN != "" {
		store = "postgres"
	}
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║     transcriptsync: startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Printf("║  TLS             : %-19t ║\n", cfg.Server.TLS != nil)
	fmt.Printf("║  Run store       : %-19s ║\n", store)
	fmt.Printf("║  Output format   : %-19s ║\n", cfg.OutputFormat())
	fmt.Printf("║  Max segment     : %-19s ║\n", time.Duration(cfg.ReshapeParams().MaxSegmentMs)*time.Millisecond)
	fmt.Println("╚═══════════════════════════════════════╝")
}

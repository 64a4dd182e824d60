// Package server exposes the alignment pipeline over HTTP.
//
// Routes:
//
//	POST /v1/alignments             align a transcript pair and store the run
//	GET  /v1/alignments             list recent runs
//	GET  /v1/alignments/{id}        fetch one run with its segments
//	GET  /v1/alignments/{id}/output fetch the rendered output of one run
//	GET  /healthz, GET /readyz      liveness and readiness
//	GET  /metrics                   Prometheus exposition
//
// Every route is wrapped by [observe.Middleware].
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrWong99/transcriptsync/internal/align"
	"github.com/MrWong99/transcriptsync/internal/health"
	"github.com/MrWong99/transcriptsync/internal/observe"
	"github.com/MrWong99/transcriptsync/internal/pipeline"
	"github.com/MrWong99/transcriptsync/internal/store"
	"github.com/MrWong99/transcriptsync/internal/subtitle"
)

const (
	defaultMaxBodyBytes = 32 << 20
	defaultListLimit    = 50
	maxListLimit        = 500
)

// Aligner runs one alignment job. *[pipeline.Pipeline] satisfies it.
type Aligner interface {
	Run(ctx context.Context, job pipeline.Job) (*pipeline.Result, error)
}

// Option is a functional option for [New].
type Option func(*Server)

// WithMaxBodyBytes caps the size of POST bodies. Non-positive values keep
// the default of 32 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithHealth serves /healthz and /readyz from h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics records HTTP metrics on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer serves /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// Server holds the HTTP handlers. It is safe for concurrent use.
type Server struct {
	aligner  Aligner
	store    store.Store
	health   *health.Handler
	metrics  *observe.Metrics
	gatherer prometheus.Gatherer
	maxBody  int64
	handler  http.Handler
}

// New builds the route table.
func New(a Aligner, st store.Store, opts ...Option) *Server {
	s := &Server{aligner: a, store: st, maxBody: defaultMaxBodyBytes}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/alignments", s.handleCreate)
	mux.HandleFunc("GET /v1/alignments", s.handleList)
	mux.HandleFunc("GET /v1/alignments/{id}", s.handleGet)
	mux.HandleFunc("GET /v1/alignments/{id}/output", s.handleOutput)
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.gatherer != nil {
		mux.Handle("GET /metrics", observe.MetricsHandler(s.gatherer))
	}
	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// createRequest is the body of POST /v1/alignments.
type createRequest struct {
	Name           string `json:"name"`
	ReferenceText  string `json:"reference_text"`
	Captions       string `json:"captions"`
	CaptionsFormat string `json:"captions_format"`
	OutputFormat   string `json:"output_format"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req createRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ReferenceText == "" || req.Captions == "" {
		writeError(w, http.StatusBadRequest, "reference_text and captions are required")
		return
	}

	job := pipeline.Job{
		Name:      req.Name,
		Reference: req.ReferenceText,
		Captions:  []byte(req.Captions),
	}
	if req.CaptionsFormat != "" {
		f, err := subtitle.ParseFormat(req.CaptionsFormat)
		if err != nil || (f != subtitle.FormatSRT && f != subtitle.FormatVTT) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("captions_format %q must be srt or vtt", req.CaptionsFormat))
			return
		}
		job.CaptionsFormat = f
	}
	if req.OutputFormat != "" {
		f, err := subtitle.ParseFormat(req.OutputFormat)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		job.OutputFormat = f
	}

	res, err := s.aligner.Run(r.Context(), job)
	switch {
	case err == nil:
	case pipeline.IsInputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, align.ErrEmptyAlignment):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		observe.Logger(r.Context()).Error("alignment failed", "err", err)
		writeError(w, http.StatusInternalServerError, "alignment failed")
		return
	}

	run, err := s.store.Save(r.Context(), store.Run{
		Name:       res.Name,
		StartIndex: res.StartIndex,
		Stats:      res.Stats,
		Format:     string(res.Format),
		Output:     string(res.Output),
		Segments:   res.Segments,
	})
	if err != nil {
		observe.Logger(r.Context()).Error("save run failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not store run")
		return
	}

	w.Header().Set("Location", "/v1/alignments/"+run.ID.String())
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("list runs failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", contentType(run.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(run.Output))
}

// lookup resolves the {id} path value, writing the error response itself
// when it fails.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (store.Run, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return store.Run{}, false
	}
	run, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return store.Run{}, false
	}
	if err != nil {
		observe.Logger(r.Context()).Error("get run failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "could not load run")
		return store.Run{}, false
	}
	return run, true
}

func contentType(format string) string {
	switch subtitle.Format(format) {
	case subtitle.FormatVTT:
		return "text/vtt; charset=utf-8"
	case subtitle.FormatJSON:
		return "application/json; charset=utf-8"
	case subtitle.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/x-subrip; charset=utf-8"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"TimingTerminal/internal/artifact"
	"TimingTerminal/internal/metrics"
	"TimingTerminal/internal/pipeline"
)

// StatusSource exposes the most recent run, if any.
type StatusSource interface {
	Last() *pipeline.Result
}

// Server publishes the chart artifact, Prometheus metrics and a health check.
type Server struct {
	Addr       string
	OutputPath string
	Metrics    *metrics.Metrics
	Status     StatusSource
	Log        zerolog.Logger
}

// New creates a Server. status may be nil when no pipeline runs in-process.
func New(addr, outputPath string, m *metrics.Metrics, status StatusSource, log zerolog.Logger) *Server {
	return &Server{Addr: addr, OutputPath: outputPath, Metrics: m, Status: status, Log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/chart-data.json", s.chartData).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(loggingMiddleware(s.Log))
	r.Use(recoveryMiddleware(s.Log))
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.Log.Info().Str("addr", s.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.Log.Info().Msg("http server stopped")
		return nil
	}
}

func (s *Server) chartData(w http.ResponseWriter, r *http.Request) {
	data, err := artifact.Read(s.OutputPath)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "chart data not generated yet"})
			return
		}
		s.Log.Error().Err(err).Str("path", s.OutputPath).Msg("read artifact")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot read chart data"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.Status != nil {
		if res := s.Status.Last(); res != nil {
			body["lastRun"] = res.GeneratedAt.UTC().Format(time.RFC3339)
			body["strategy"] = res.Strategy
			body["dataQuality"] = res.Quality
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func recoveryMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("panic recovered")
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

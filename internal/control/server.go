// Package control exposes the playback controller over a small HTTP API for
// headless use.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/metrics"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	interpretTimeout = 10 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// Player is the part of the playback controller the API drives.
type Player interface {
	Start(g string, random bool)
	Next()
	Prev()
	Pause()
	Resume()
	Stop()
	Status() playback.Status
}

// Interpreter turns free text and an optional tag into a genre.
type Interpreter interface {
	Interpret(ctx context.Context, input, override string) genre.Result
}

// StartResponse is returned by POST /start.
type StartResponse struct {
	Genre     string `json:"genre"`
	Category  string `json:"category"`
	Reasoning string `json:"reasoning,omitempty"`
}

type Server struct {
	player      Player
	interpreter Interpreter
	router      chi.Router
}

func NewServer(player Player, interpreter Interpreter) *Server {
	s := &Server{
		player:      player,
		interpreter: interpreter,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/status", s.handleStatus)
	r.Post("/start", s.handleStart)
	r.Post("/next", s.command(player.Next))
	r.Post("/prev", s.command(player.Prev))
	r.Post("/pause", s.command(player.Pause))
	r.Post("/resume", s.command(player.Resume))
	r.Post("/stop", s.command(player.Stop))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Control API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))

	ctx, cancel := context.WithTimeout(r.Context(), interpretTimeout)
	defer cancel()

	res := s.interpreter.Interpret(ctx, q, tag)
	if res.Genre == "" {
		res.Genre = genre.DefaultGenre
	}

	log.Debug().
		Str("input", q).
		Str("tag", tag).
		Str("genre", res.Genre).
		Str("category", res.Category).
		Msg("Starting session from control API")

	s.player.Start(res.Genre, res.UseRandomOrder)
	writeJSON(w, http.StatusAccepted, StartResponse{
		Genre:     res.Genre,
		Category:  res.Category,
		Reasoning: res.Reasoning,
	})
}

func (s *Server) command(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		writeJSON(w, http.StatusAccepted, s.player.Status())
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Control request")
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

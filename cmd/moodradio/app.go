package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/glebovdev/moodradio/internal/api"
	"github.com/glebovdev/moodradio/internal/cache"
	"github.com/glebovdev/moodradio/internal/config"
	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/metrics"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/player"
	"github.com/glebovdev/moodradio/internal/service"
	"github.com/glebovdev/moodradio/internal/store"
	"github.com/glebovdev/moodradio/internal/validate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app holds the wired pipeline shared by the TUI and the headless commands.
type app struct {
	cfg         *config.Config
	store       *store.Store
	directory   *api.DirectoryClient
	llm         *api.LLMClient
	stations    *service.StationService
	validator   *validate.Validator
	interpreter *genre.Interpreter
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if ephemeralFlag {
		cfg.Storage.Backend = store.BackendMemory
	}
	if metricsAddrFlag != "" {
		cfg.MetricsAddr = metricsAddrFlag
	}

	cacheDir, err := cache.GetCacheDir()
	if err != nil {
		log.Warn().Err(err).Msg("Could not resolve cache dir, using temp dir")
		cacheDir = filepath.Join(os.TempDir(), config.AppName)
	}

	kv, err := store.Open(ctx, cfg.StoreOptions(cacheDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open station store: %w", err)
	}
	st := store.New(kv)

	directory := api.NewDirectoryClient(cfg.Directory.Mirrors, cfg.Timeouts.Mirror)
	llm := api.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.Timeouts.LLM)
	if !llm.Available() {
		log.Info().Msg("No LLM API key configured, using keyword matching only")
	}

	stations := service.NewStationService(directory, st, llm)
	stations.SetPageSize(cfg.Directory.PageSize)
	stations.AddDenylist(cfg.Directory.Denylist...)

	log.Debug().
		Str("backend", cfg.Storage.Backend).
		Strs("mirrors", cfg.Directory.Mirrors).
		Str("cache", cacheDir).
		Msg("Pipeline configured")

	return &app{
		cfg:         cfg,
		store:       st,
		directory:   directory,
		llm:         llm,
		stations:    stations,
		validator:   validate.New(llm, cfg.Timeouts.Probe),
		interpreter: genre.NewInterpreter(genre.NewResolver(nil), llm, cfg.Lang),
	}, nil
}

// newController wires a playback controller to the audio runtime. Run must be
// started by the caller.
func (a *app) newController(rt playback.AudioRuntime) *playback.Controller {
	return playback.New(rt, a.store, a.stations, a.validator, a.cfg.PlaybackConfig())
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close station store")
	}
}

// serveMetrics exposes /metrics on the configured address until ctx is done.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}

	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info().Str("addr", a.cfg.MetricsAddr).Msg("Metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// setupTUILogging keeps the terminal clean: errors only to /dev/null, or a
// full debug log in the cache dir with --debug.
func setupTUILogging() {
	if !debugFlag {
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		logFile, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0644)
		if err == nil {
			log.Logger = log.Output(logFile)
		}
		return
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	cacheDir, err := cache.GetCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not get cache dir: %v\n", err)
		cacheDir = os.TempDir()
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log dir: %v\n", err)
	}
	logPath := filepath.Join(cacheDir, "debug.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log file: %v\n", err)
		logFile = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, TimeFormat: "15:04:05"})
	fmt.Printf("Debug log: %s\n", logPath)
	log.Info().Msgf("Starting %s v%s (debug mode)", config.AppName, config.AppVersion)
}

// setupConsoleLogging is used by headless commands.
func setupConsoleLogging() {
	level := zerolog.InfoLevel
	if debugFlag {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

// newPlayer returns the speaker-backed audio runtime.
func newPlayer() *player.Player {
	return player.NewPlayer()
}

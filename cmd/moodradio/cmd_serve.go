package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebovdev/moodradio/internal/control"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run headless with an HTTP control API",
	Long: `Play through the local audio device without the terminal UI and accept
commands over HTTP.

Endpoints:
  GET  /status
  POST /start?q=<mood>&tag=<genre>
  POST /next  /prev  /pause  /resume  /stop
  GET  /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8765", "Control API listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	setupConsoleLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	audio := newPlayer()
	ctrl := a.newController(audio)
	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Playback controller stopped")
		}
	}()

	if a.cfg.MetricsAddr != serveAddr {
		a.serveMetrics(ctx)
	}

	err = control.NewServer(ctrl, a.interpreter).ListenAndServe(ctx, serveAddr)

	ctrl.Close()
	<-ctrlDone
	audio.Stop()

	log.Info().Msg("Shut down")
	return err
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/glebovdev/moodradio/internal/config"
	"github.com/glebovdev/moodradio/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	debugFlag       bool
	ephemeralFlag   bool
	metricsAddrFlag string
	tagFlag         string
)

var rootCmd = &cobra.Command{
	Use:   config.AppName + " [mood...]",
	Short: config.AppTagline,
	Long:  config.AppDescription,
	Example: `  # Describe how you feel
  moodradio rainy evening, need something calm

  # Skip interpretation and play a genre tag directly
  moodradio --tag synthwave`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		fmt.Println(config.AppDescription)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "Keep learned stations in memory only")
	rootCmd.PersistentFlags().StringVar(&metricsAddrFlag, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.Flags().StringVar(&tagFlag, "tag", "", "Play this genre tag instead of interpreting a mood")

	rootCmd.AddCommand(versionCmd)

	defaultUsage := rootCmd.UsageFunc()
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		if err := defaultUsage(cmd); err != nil {
			return err
		}
		if configPath, err := config.GetConfigPath(); err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Fprintf(cmd.OutOrStderr(), "\nConfig file: %s\n", configPath)
			} else {
				fmt.Fprintf(cmd.OutOrStderr(), "\nConfig file will be created on first use.\n")
			}
		}
		return nil
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	setupTUILogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if configPath, err := config.GetConfigPath(); err == nil {
		log.Debug().Msgf("Config: %s", configPath)
	}

	audio := newPlayer()
	ctrl := a.newController(audio)
	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Playback controller stopped")
		}
	}()

	a.serveMetrics(ctx)

	radioUI := ui.NewUI(a.cfg, ctrl, audio, a.stations, a.interpreter, ui.Options{
		Mood: strings.Join(args, " "),
		Tag:  tagFlag,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		if _, ok := <-sigChan; ok {
			log.Info().Msg("Received shutdown signal, cleaning up...")
			radioUI.Shutdown()
		}
	}()

	log.Info().Msg("Starting UI...")

	// Run UI in a goroutine so we can handle signals properly
	uiDone := make(chan error, 1)
	go func() {
		uiDone <- radioUI.Run()
	}()

	uiErr := <-uiDone

	ctrl.Close()
	<-ctrlDone
	audio.Stop()

	if uiErr != nil {
		log.Error().Err(uiErr).Msg("Error running UI")
		return uiErr
	}

	log.Info().Msgf("%s stopped", config.AppName)
	return nil
}

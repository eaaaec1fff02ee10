package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/pdrpinto/roboroute/internal/log"
	"github.com/pdrpinto/roboroute/internal/metrics"
	"github.com/pdrpinto/roboroute/internal/pathstore"
	"github.com/pdrpinto/roboroute/internal/robot"
	"github.com/pdrpinto/roboroute/internal/server"
	"github.com/pdrpinto/roboroute/internal/speech"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		logger := log.Init(cmd.OutOrStdout(), cfg.Log.Level, cfg.Log.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := pathstore.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		deps := server.Deps{
			Store:  store,
			Robot:  robot.NewHTTPDispatcher(cfg.Robot.BaseURL(), cfg.Robot.Timeout.Duration),
			Logger: logger,
		}
		if cfg.Metrics.Enabled {
			provider := metrics.NewProvider()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					logger.Warn("metrics shutdown failed", slog.String("error", err.Error()))
				}
			}()
			otel.SetMeterProvider(provider.MeterProvider())
			deps.Metrics = provider.Recorder()
			deps.MetricsSource = provider
		}
		if cfg.Speech.CredentialsFile != "" {
			deps.Transcriber, err = newTranscriber(ctx, cfg.Speech.CredentialsFile, speech.Config{
				LanguageCode:    cfg.Speech.LanguageCode,
				SampleRateHertz: cfg.Speech.SampleRateHertz,
			})
			if err != nil {
				return err
			}
		} else {
			logger.Info("transcription disabled, no credentials file configured")
		}

		logger.Info("starting relay",
			slog.String("robot", cfg.Robot.BaseURL()),
			slog.String("store", cfg.Store.Driver),
			slog.String("heuristic", cfg.Search.Heuristic))
		return server.New(cfg, deps).Run(ctx)
	},
}

func newTranscriber(ctx context.Context, credentialsFile string, cfg speech.Config) (speech.Transcriber, error) {
	transcriber, err := speech.NewGoogleTranscriberFromFile(ctx, cfg, credentialsFile)
	if err != nil {
		return nil, err
	}
	return transcriber, nil
}

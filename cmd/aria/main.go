package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariavoice/aria/internal/capture"
	"github.com/ariavoice/aria/internal/client"
	"github.com/ariavoice/aria/internal/config"
	"github.com/ariavoice/aria/internal/history"
	"github.com/ariavoice/aria/internal/httpapi"
	"github.com/ariavoice/aria/internal/observability"
	"github.com/ariavoice/aria/internal/persona"
	"github.com/ariavoice/aria/internal/playback"
	"github.com/ariavoice/aria/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("history store init failed", zap.Error(err))
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		logger.Info("history store: in-memory (set DATABASE_URL to persist turns)")
	} else {
		logger.Info("history store: postgres")
	}

	var dialer transport.Dialer
	switch cfg.TransportMode {
	case "live":
		dialer = transport.NewRealtimeDialer(transport.RealtimeConfig{
			WSBaseURL: cfg.GeminiWSBaseURL,
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
		}, logger)
		logger.Info("transport: gemini live")
	case "mock":
		dialer = transport.NewMockDialer()
		logger.Info("transport: mock (no audio leaves this process)")
	}

	personas := persona.NewHolder()

	voiceClient := client.New(client.Options{
		Dialer:           dialer,
		Mic:              capture.NewSimMicrophone(),
		NewDevice:        func() (playback.Device, error) { return playback.NewWallClockDevice(), nil },
		Personas:         personas,
		History:          store,
		Metrics:          metrics,
		Logger:           logger,
		OutputSampleRate: cfg.OutputSampleRate,
	})
	defer voiceClient.Stop()

	api := httpapi.New(cfg, voiceClient, personas, store, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	voiceClient.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}

// Copilot server - watches the screen for ride offers and alerts on new ones
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/drivercopilot/platform/internal/analysis"
	"github.com/drivercopilot/platform/internal/capture"
	"github.com/drivercopilot/platform/internal/config"
	"github.com/drivercopilot/platform/internal/metrics"
	"github.com/drivercopilot/platform/internal/notify"
	"github.com/drivercopilot/platform/internal/server"
	"github.com/drivercopilot/platform/internal/session"
	"github.com/drivercopilot/platform/internal/settings"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	// Optional .env for local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the vision analysis service
	analyzer, err := analysis.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to create analysis client", "model", cfg.GeminiModel, "error", err)
		os.Exit(1)
	}

	// Thresholds persist across restarts
	store := settings.NewStore(cfg.SettingsDir)
	thresholds := store.Load()

	acquire := func() (session.Sampler, error) {
		src, err := capture.Acquire()
		if err != nil {
			return nil, err
		}
		return capture.NewSampler(src, cfg.MaxFrameWidth, cfg.JPEGQuality), nil
	}

	m := metrics.New()
	monitor := session.New(acquire, analyzer, notify.NewDesktop(), m, cfg.SampleInterval, thresholds)

	// Create HTTP/WebSocket server
	srv := server.New(monitor, store, m)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("copilot server starting", "http", cfg.HTTPAddr, "model", cfg.GeminiModel, "interval", cfg.SampleInterval)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	monitor.Stop()
	slog.Info("shutdown complete")
}

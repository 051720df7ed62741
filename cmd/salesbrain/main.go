// salesbrain serves the insurance sales mentoring app: structured chat
// analysis, follow-up mentor chat and live voice calls, behind a passphrase
// gate with a persisted analysis history.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesbrain-ai/salesbrain/internal/api"
	"github.com/salesbrain-ai/salesbrain/internal/config"
	"github.com/salesbrain-ai/salesbrain/internal/store"
	"github.com/salesbrain-ai/salesbrain/pkg/analysis"
	"github.com/salesbrain-ai/salesbrain/pkg/app"
	"github.com/salesbrain-ai/salesbrain/pkg/gemini"
	"github.com/salesbrain-ai/salesbrain/pkg/mentor"
	"github.com/salesbrain-ai/salesbrain/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		slog.Warn("No API key configured; model calls will fail until GEMINI_API_KEY is set")
	}

	repo, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	client := gemini.New(cfg.APIKey)
	analyzer := analysis.NewClient(client, cfg.AnalysisModel)
	asker := mentor.NewClient(client, cfg.MentorModel)

	controller := app.NewController(analyzer, asker, repo, cfg.Passphrase)
	voice := api.NewVoiceBridge(controller, cfg.APIKey, cfg.LiveModel, cfg.LiveVoice)
	server := api.NewServer(controller, voice, web.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/outliner/internal/api"
	"github.com/dgallion1/outliner/internal/config"
	"github.com/dgallion1/outliner/internal/generate"
	"github.com/dgallion1/outliner/internal/merge"
	"github.com/dgallion1/outliner/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	docstore := store.NewClient(cfg.DocstoreURL, cfg.DocstoreAPIKey)
	defer docstore.Close()

	stats := generate.NewStats(cfg.StatsWindow)
	claude := generate.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, stats)
	defer claude.Close()

	registry := merge.NewRegistry(cfg.SessionTTL)
	driver := merge.NewDriver(log, docstore, cfg.CoalesceInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Evict idle sessions in the background. Sessions with an active
	// generation are never evicted.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := registry.Cleanup(); n > 0 {
					log.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(registry, driver, claude, docstore, log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams stay open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("outliner listening", "port", cfg.Port, "model", cfg.AnthropicModel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("stopped")
}

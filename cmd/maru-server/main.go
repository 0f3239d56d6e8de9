package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"maru/internal/config"
	"maru/internal/engine"
	"maru/internal/httpapi"
	"maru/internal/panel"
	"maru/internal/rl"
	"maru/internal/store"
	"maru/internal/util"
)

func main() {
	// Missing .env is fine; overrides come from the environment either way.
	_ = godotenv.Load()

	cfgPath := "config/maru.yaml"
	if p := os.Getenv("MARU_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer sqlite.Close()
	parquet := store.NewParquetStore(cfg.Storage.DataDir)

	trainer := engine.NewTrainer(parquet, sqlite, parquet, logger)

	training := rl.TrainConfig{
		Episodes:     cfg.Training.Episodes,
		Alpha:        cfg.Training.Alpha,
		Gamma:        cfg.Training.Gamma,
		EpsilonStart: cfg.Training.EpsilonStart,
		EpsilonEnd:   cfg.Training.EpsilonEnd,
		EpsilonDecay: cfg.Training.EpsilonDecay,
		Seed:         cfg.Training.Seed,
	}
	params := panel.Params{
		DirectionThreshold: cfg.Features.DirectionThreshold,
		RateCutLow:         cfg.Features.RateCutLow,
		RateCutHigh:        cfg.Features.RateCutHigh,
	}

	srv := httpapi.NewServer(sqlite, sqlite, sqlite, parquet, trainer,
		params, training, cfg.Training.Horizon, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("maru server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"maru/internal/config"
	"maru/internal/ingest"
	"maru/internal/store"
	"maru/internal/util"
)

func main() {
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

	var ingestors []ingest.Ingestor
	if cfg.Ingest.TransactionsCSV != "" {
		ingestors = append(ingestors, ingest.NewTransactionIngestor(cfg.Ingest.TransactionsCSV, sqlite, logger))
	}
	if cfg.Ingest.BaseRateCSV != "" {
		ingestors = append(ingestors, ingest.NewRateIngestor(cfg.Ingest.BaseRateCSV, sqlite, logger))
	}
	if cfg.Ingest.PopulationCSV != "" {
		ingestors = append(ingestors, ingest.NewPopulationIngestor(cfg.Ingest.PopulationCSV, sqlite, logger))
	}
	if len(ingestors) == 0 {
		log.Fatal("no ingest sources configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, g := range ingestors {
		if err := g.Run(ctx); err != nil {
			log.Fatalf("%s: %v", g.Name(), err)
		}
	}
	logger.Info("ingest complete", "jobs", len(ingestors))
}

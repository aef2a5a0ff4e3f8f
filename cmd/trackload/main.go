package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"skywatch/internal/config"
	"skywatch/internal/storage/sqlite"
	"skywatch/internal/track"
	"skywatch/pkg/logger"
)

// trackload imports flight track JSON into the track store. The input
// file holds an array of flights in the same shape the API emits.
func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	inputPath := flag.String("input", "", "path to flight JSON file")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: trackload -input flights.json [-config config.toml]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatal("failed to read input", logger.Error(err))
	}

	var flights []*track.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		log.Fatal("failed to parse input", logger.Error(err))
	}

	store, err := sqlite.Open(cfg.Storage.Path, log)
	if err != nil {
		log.Fatal("failed to open track store", logger.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	imported, skipped := 0, 0
	for _, f := range flights {
		if !f.Valid() {
			skipped++
			log.Warn("skipping malformed flight", logger.String("flight_id", f.ID))
			continue
		}
		if err := store.StoreFlight(ctx, f); err != nil {
			log.Fatal("failed to store flight",
				logger.String("flight_id", f.ID), logger.Error(err))
		}
		imported++
	}

	log.Info("import complete",
		logger.Int("imported", imported),
		logger.Int("skipped", skipped))
}

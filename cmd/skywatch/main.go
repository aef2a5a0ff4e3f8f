package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skywatch/internal/api"
	"skywatch/internal/cache"
	"skywatch/internal/config"
	"skywatch/internal/engine"
	"skywatch/internal/storage/sqlite"
	"skywatch/internal/weather"
	"skywatch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting skywatch",
		logger.String("config", *configPath),
		logger.String("db", cfg.Storage.Path))

	store, err := sqlite.Open(cfg.Storage.Path, log)
	if err != nil {
		log.Fatal("failed to open track store", logger.Error(err))
	}
	defer store.Close()

	resultCache, err := cache.New(cfg.Cache, log)
	if err != nil {
		log.Fatal("failed to create result cache", logger.Error(err))
	}

	weatherSvc := weather.NewService(cfg.Weather, log)
	if weatherSvc == nil {
		log.Info("weather enrichment disabled")
	}

	eng := engine.New(cfg, store, resultCache, weatherSvc, log)
	server := api.NewServer(cfg, eng, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server error", logger.Error(err))
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("shutdown failed", logger.Error(err))
	}
	log.Info("stopped")
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"priceflow/config"
	"priceflow/internal/api"
	"priceflow/internal/export"
	"priceflow/internal/fetch"
	"priceflow/internal/inference"
	"priceflow/internal/model"
	"priceflow/internal/orchestrator"
	"priceflow/internal/series"
	"priceflow/internal/source"
	"priceflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Priceflow.Name,
		"version": cfg.Priceflow.Version,
		"token":   cfg.Priceflow.Token,
		"env":     config.AppEnvironment(),
	}).Info("starting priceflow")

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := fetch.NewFetcher(cfg.Fetcher.Timeout)
	manager := fetch.NewManager(
		fetcher,
		cfg.Fetcher.MaxWorkers,
		cfg.Fetcher.RateLimit.RequestsPerSecond,
		cfg.Fetcher.RateLimit.BurstSize,
	)

	bulk := source.NewBulkArchiveAdapter(cfg.Sources.BulkArchive, cfg.RawArchiveDir())
	snapshots := map[source.ID]source.SnapshotAdapter{
		source.SnapshotAPIA: source.NewCoinGeckoAdapter(cfg.Sources.SnapshotAPIA),
		source.SnapshotAPIB: source.NewCoinMarketCapAdapter(cfg.Sources.SnapshotAPIB, cfg.Priceflow.Token),
		source.SnapshotAPIC: source.NewPortalsAdapter(cfg.Sources.SnapshotAPIC, cfg.Priceflow.Token),
	}

	store := model.NewStore(func(id source.ID) string {
		return cfg.ArtifactPath(string(id))
	})
	trainer := model.NewTrainer(model.LeastSquares{})
	normalizer := series.NewNormalizer()

	var exporter *export.Exporter
	if cfg.Storage.S3.Enabled {
		exporter, err = export.NewExporter(cfg.Storage.S3)
		if err != nil {
			log.WithError(err).Error("failed to create series exporter")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping series exporter")
	}

	orch := orchestrator.New(ctx, cfg, manager, bulk, snapshots, normalizer, trainer, store, exporter)
	infer := inference.NewService(store)

	// Warm the models before serving traffic.
	orch.TriggerAll()

	server := api.NewServer(cfg, orch, infer, store)
	server.Start()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown failed")
	}

	orch.Close()
	cancel()

	log.Info("priceflow stopped")
}

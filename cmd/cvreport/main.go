// ABOUTME: Entry point for the container vulnerability report service.
// ABOUTME: Wires configuration, providers, the engine, the scheduler, and the HTTP server.

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pccs/cvreport/internal/config"
	"github.com/pccs/cvreport/internal/engine"
	"github.com/pccs/cvreport/internal/metrics"
	"github.com/pccs/cvreport/internal/providers"
	"github.com/pccs/cvreport/internal/publish"
	"github.com/pccs/cvreport/internal/report"
	"github.com/pccs/cvreport/internal/schedule"
	"github.com/pccs/cvreport/internal/server"
	"github.com/pccs/cvreport/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	var runDate string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to YAML configuration file")
	flag.StringVar(&runDate, "run", "", "Generate the report for this date (YYYY-MM-DD) and exit")
	flag.Parse()

	// A local .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize service")
	}

	if runDate != "" {
		result, err := app.engine.Run(ctx, runDate)
		if err != nil {
			logger.WithError(err).Fatal("Report run failed")
		}
		logger.WithFields(logrus.Fields{
			"date":    result.Date,
			"rows":    result.Rows,
			"skipped": result.Skipped,
		}).Info("Report run finished")
		return
	}

	if err := app.start(ctx); err != nil {
		logger.WithError(err).Fatal("Service failed")
	}
}

type app struct {
	cfg       *config.Config
	engine    *engine.Engine
	server    *server.Server
	scheduler *schedule.Scheduler
	logger    *logrus.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	logger.WithFields(logrus.Fields{
		"cluster":            cfg.Cluster.Name,
		"inventory_provider": cfg.Inventory.Provider,
		"scan_source":        cfg.Scan.Source,
		"port":               cfg.Server.Port,
	}).Info("Initializing cvreport")

	store, err := storage.New(cfg.Storage.RawDir, cfg.Storage.ReportDir, logger)
	if err != nil {
		return nil, err
	}

	provider, err := providers.CreateInventoryProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	source, err := providers.CreateScanSource(ctx, cfg, store, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := createPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	eng := engine.New(provider, source, store, engine.Options{
		ClusterName:  cfg.Cluster.Name,
		SkipExisting: cfg.Report.SkipExisting,
		Report:       report.Options{StrictDigest: cfg.Report.StrictDigest},
	}, recorder, publisher, logger)

	requireScanReport := cfg.Scan.Source == "file"
	srv := server.New(eng, store, recorder.Handler(), requireScanReport, logger)

	a := &app{
		cfg:    cfg,
		engine: eng,
		server: srv,
		logger: logger,
	}

	if cfg.Schedule.Cron != "" {
		a.scheduler, err = schedule.New(cfg.Schedule.Cron, eng, logger)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// createPublisher picks the configured publisher, preferring MinIO when an
// endpoint is set.
func createPublisher(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (publish.Publisher, error) {
	if cfg.Publish.Minio.Endpoint != "" {
		return publish.NewMinioPublisher(
			ctx,
			cfg.Publish.Minio.Endpoint,
			cfg.Publish.Minio.AccessKey,
			cfg.Publish.Minio.SecretKey,
			cfg.Publish.Minio.Bucket,
			cfg.Publish.Minio.UseSSL,
			logger,
		)
	}
	if cfg.Publish.Dir != "" {
		return publish.NewLocalDir(cfg.Publish.Dir, logger), nil
	}
	return nil, nil
}

func (a *app) start(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start()
		defer a.scheduler.Stop()
	}
	return a.server.Serve(ctx, a.cfg.Server.Port)
}

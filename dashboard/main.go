package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/api"
	"github.com/trino-compare/dashboard/benchmark"
	"github.com/trino-compare/dashboard/cluster"
	"github.com/trino-compare/dashboard/config"
	"github.com/trino-compare/dashboard/metrics"
	"github.com/trino-compare/dashboard/releasenotes"
	"github.com/trino-compare/dashboard/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to server YAML configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithField("level", *logLevel).Fatal("Invalid log level")
	}
	logrus.SetLevel(level)
	log := logrus.StandardLogger()

	cfg, err := config.LoadServerConfig(*configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load server configuration")
	}

	db, err := storage.NewDatabase(&cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("Invalid database configuration")
	}
	if err := db.Connect(); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	configStore := config.NewStore(cfg.ConfigPath, log)
	dashCfg, err := configStore.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load dashboard configuration")
	}

	// The progress callback closes over the server variable so cluster phase
	// transitions reach WebSocket clients once the server exists.
	var srv api.Server
	manager := cluster.NewManager(dashCfg.Docker, time.Duration(cfg.StartupWait), func(clusterName string, phase cluster.Phase, detail string) {
		if srv != nil {
			srv.Broadcast("cluster_progress", map[string]string{
				"cluster": clusterName,
				"phase":   string(phase),
				"detail":  detail,
			})
		}
	})

	sampler, err := metrics.NewSampler(time.Second)
	if err != nil {
		log.WithError(err).Warn("Process sampler unavailable, benchmark memory columns will stay zero")
		sampler = nil
	}

	benchRunner := benchmark.NewRunner(db, sampler)
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := benchRunner.EnsureQuerySet(seedCtx, cfg.QuerySetPath); err != nil {
		cancelSeed()
		log.WithError(err).Fatal("Failed to seed benchmark query set")
	}
	cancelSeed()

	scraper := releasenotes.NewScraper(time.Duration(cfg.ScrapeTimeout))
	comparator := releasenotes.NewComparator(scraper, db)

	srv = api.NewServer(cfg, configStore, db, manager, comparator, benchRunner, log)
	if err := srv.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to start API server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := srv.Stop(); err != nil {
		log.WithError(err).Error("Failed to stop API server")
	}
	manager.Close(shutdownCtx)
}

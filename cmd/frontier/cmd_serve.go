package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/frontier/internal/api"
	"github.com/seantiz/frontier/internal/config"
	"github.com/seantiz/frontier/internal/progress"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/scenario"
	"github.com/seantiz/frontier/internal/store"
	"github.com/seantiz/frontier/internal/sweep"
)

func newServeCommand() *cobra.Command {
	var (
		listenAddr string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Frontier API server",
		Long: `Start the Frontier API server.

Configuration is read from FRONTIER_* environment variables; flags
override the listen address and database path. Providers are loaded
from the providers file (FRONTIER_PROVIDERS_FILE, default providers.yaml)
and credentials from the environment variables it names.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides FRONTIER_LISTEN_ADDR)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides FRONTIER_DB_PATH)")

	return cmd
}

func serve(cfg config.Config) error {
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("frontier: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"providers_file", cfg.ProvidersFile,
	)

	providers, err := config.LoadProviders(cfg.ProvidersFile)
	if err != nil {
		return err
	}
	reg := provider.NewDefaultRegistry()
	reg.LoadProviders(providers, os.Getenv)
	for _, p := range reg.List() {
		if !p.HasCredential {
			logger.Warn("provider has no credential; sweeps using it will be rejected", "provider", p.Name)
		}
	}

	var source scenario.Source = scenario.GeneratedSource{}
	if cfg.ScenarioBank != "" {
		bank, err := scenario.LoadBank(cfg.ScenarioBank)
		if err != nil {
			return err
		}
		source = bank
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var sinks []progress.Sink
	if cfg.MQTTBroker != "" {
		clientID := fmt.Sprintf("frontier-%d", time.Now().UnixNano())
		sink, err := progress.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTTopic, clientID)
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
		logger.Info("mirroring sweep progress to MQTT", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	}

	publisher := progress.NewPublisher(logger, sinks...)
	defer publisher.Stop()

	cache := store.NewLeaderboardCache(db)
	sched := sweep.NewScheduler(sweep.Options{
		Models:              db,
		Providers:           reg,
		Caller:              provider.NewClient(reg, nil, cfg.CallTimeout),
		Loader:              scenario.NewLoader(source),
		Writer:              sweep.NewResultWriter(db, cache, logger),
		Publisher:           publisher,
		Logger:              logger,
		GlobalConcurrency:   cfg.GlobalConcurrency,
		ProviderConcurrency: cfg.ProviderConcurrency,
		Seed:                cfg.Seed,
	})

	srv := api.NewServer(cfg.ListenAddr, db, sched, reg, cache, logger)
	return srv.Run()
}

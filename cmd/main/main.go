package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"metrics-broker/src/config"
	"metrics-broker/src/logger"
	"metrics-broker/src/metrics"
	"metrics-broker/src/models"
	"metrics-broker/src/storage"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	// 4. Setup Components
	collector := metrics.NewCollector("metrics_broker")
	networkManager := setupNetwork(conf.MConfig)

	validator, err := setupValidator(conf.MConfig, networkManager)
	if err != nil {
		appLogger.Critical("Failed to init credential validator: %v", err)
	}

	var archiver *storage.Archiver
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		archiver = setupArchiver(conf.MConfig, db)
	}

	b := setupBroker(conf.MConfig, validator, collector, archiver)

	// 5. Bootstrap (warm start from storage)
	if db != nil && conf.Storage.WarmStart {
		warmStart(b, db, appLogger)
	}
	if archiver != nil {
		wg.Add(1)
		go archiver.Run(ctx, &wg)
	}

	if err := b.Start(ctx); err != nil {
		appLogger.Critical("Failed to start broker: %v", err)
	}

	// 6. Data sources
	multiSource, err := setupDataSources(conf.MConfig, appLogger, networkManager)
	if err != nil {
		os.Exit(1)
	}

	// 7. Start Servers
	srv, grpcServer := startServers(conf.MConfig, b, collector, multiSource, appLogger)

	// 8. Run Main Processing Loop
	updatesChan := make(chan models.MMetricValue, 500)
	var sourcesWg sync.WaitGroup
	if err := multiSource.Start(ctx, updatesChan, &sourcesWg); err != nil {
		appLogger.Critical("Failed to start data sources: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting Main Data Loop...")
	runDataLoop(updatesChan, quit, b, appLogger)

	// 9. Shutdown, outermost first
	appLogger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = multiSource.Stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := b.Shutdown(shutdownCtx); err != nil {
		appLogger.Warning("Broker shutdown: %v", err)
	}

	cancel()
	sourcesWg.Wait()
	wg.Wait() // archiver drains its queue on cancel
	appLogger.Info("Shutdown complete.")
}

package main

import (
	"time"

	"metrics-broker/src/auth"
	"metrics-broker/src/broker"
	datasource "metrics-broker/src/data_source"
	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/metrics"
	"metrics-broker/src/models"
	"metrics-broker/src/network"
	"metrics-broker/src/storage"
)

// archiveQueueSize bounds values waiting to be persisted
const archiveQueueSize = 10000

// -----------------------------------------------------------------------------

// setupDatabase opens the archive database. It returns nil when storage is disabled.
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	if !config.Storage.Enabled {
		appLogger.Info("Storage disabled, values are kept in memory only")
		return nil, nil
	}

	var db interfaces.IDatabase
	var err error

	switch config.Storage.DBType {
	case "postgres":
		pgLogger := logger.NewLogger(config, "PostgresDB")
		db, err = storage.NewPostgresDB(config, pgLogger)
	default:
		// Default to SQLite
		sqliteLogger := logger.NewLogger(config, "SQLiteDB")
		db, err = storage.NewAsyncSQLiteDB(config, sqliteLogger)
	}

	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	err = helpers.RetryWithBackoff(appLogger, "database migration", config.Network.MaxRetries, time.Second, db.Initialize)
	if err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

func setupArchiver(config *models.MConfig, db interfaces.IDatabase) *storage.Archiver {
	flush := time.Duration(config.Storage.FlushIntervalSeconds) * time.Second
	return storage.NewArchiver(db, archiveQueueSize, flush, logger.NewLogger(config, "Archiver"))
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(config, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

func setupValidator(config *models.MConfig, nm interfaces.INetworkManager) (interfaces.ICredentialValidator, error) {
	return auth.NewValidator(config, nm)
}

// -----------------------------------------------------------------------------

func setupBroker(config *models.MConfig, validator interfaces.ICredentialValidator, collector *metrics.Collector, archiver *storage.Archiver) *broker.Broker {
	deps := broker.Deps{
		Validator: validator,
		Metrics:   collector,
		Logger:    logger.NewLogger(config, "Broker"),
	}
	// a nil *Archiver must not become a non-nil Recorder
	if archiver != nil {
		deps.Archive = archiver
	}
	return broker.New(broker.OptionsFromConfig(config), deps)
}

// -----------------------------------------------------------------------------

// setupDataSources builds every configured source. An empty list is fine:
// producers can still publish over REST and gRPC.
func setupDataSources(config *models.MConfig, appLogger *logger.Logger, networkManager interfaces.INetworkManager) (*datasource.MultiSourceManager, error) {
	var sources []interfaces.IDataSource
	sourceLogger := logger.NewLogger(config, "DataSource")

	for _, srcCfg := range config.DataSource.Sources {
		s, err := datasource.NewSource(srcCfg, networkManager, sourceLogger)
		if err != nil {
			appLogger.Error("Failed to init source: %v", err)
			return nil, err
		}
		sources = append(sources, s)
		appLogger.Info("Added source: %s (%s) with %d metrics", s.Name(), s.Type(), len(s.MetricIDs()))
	}

	return datasource.NewMultiSourceManager(sources, logger.NewLogger(config, "MultiSourceManager")), nil
}

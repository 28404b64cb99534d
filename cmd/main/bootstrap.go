package main

import (
	"metrics-broker/src/broker"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
)

// warmStart refills the broker's buffers from the archive so snapshots and
// aggregations have history right after a restart
func warmStart(b *broker.Broker, db interfaces.IDatabase, appLogger *logger.Logger) {
	appLogger.Info("Loading recent values from storage...")

	history, err := db.LoadRecentMetricValues(b.Options().BufferSize)
	if err != nil {
		appLogger.Warning("Warm start failed: %v", err)
		return
	}

	loaded := b.LoadHistory(history)
	appLogger.Info("Warm start complete: %d values across %d metrics", loaded, len(history))
}

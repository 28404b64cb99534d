package main

import (
	"os"
	"time"

	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"
)

const statsLogInterval = time.Minute

// runDataLoop feeds source output into the broker until quit fires
func runDataLoop(updates <-chan models.MMetricValue, quit <-chan os.Signal, b interfaces.IBrokerControl, appLogger *logger.Logger) {
	ticker := time.NewTicker(statsLogInterval)
	defer ticker.Stop()

	received := 0
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				appLogger.Info("Data sources closed channel.")
				return
			}
			b.PublishMetricUpdate(v)
			received++

		case <-ticker.C:
			stats := b.GetServerStats()
			appLogger.Info("Last %v: %d source values, %d clients, %d subscriptions, %d frames sent, %d dropped",
				statsLogInterval, received, stats.ConnectedClients, stats.ActiveSubscriptions, stats.MessagesSent, stats.FramesDropped)
			received = 0

		case sig := <-quit:
			appLogger.Info("Received %v", sig)
			return
		}
	}
}

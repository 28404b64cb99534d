package interfaces

import "metrics-broker/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the metric archive.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveMetricValuesBulk inserts a batch of published metric values.
	SaveMetricValuesBulk(values []models.MMetricValue) error

	// -----------------------------------------------------------------------------

	// LoadRecentMetricValues returns up to perMetric of the newest values for
	// every archived metric, oldest first within each metric.
	LoadRecentMetricValues(perMetric int) (map[string][]models.MMetricValue, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

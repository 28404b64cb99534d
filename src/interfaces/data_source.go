package interfaces

import (
	"context"
	"sync"

	"metrics-broker/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for producers feeding metric values into the broker.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// Type returns the source kind, e.g. "synthetic"
	Type() string

	// -----------------------------------------------------------------------------

	// MetricIDs lists the metrics this source emits
	MetricIDs() []string

	// -----------------------------------------------------------------------------

	// Start begins producing values
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push values to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MMetricValue, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source. Cancelling the context passed to Start is enough.
	Stop() error

	// -----------------------------------------------------------------------------

	// IsRunning reports whether the production loop is active
	IsRunning() bool
}

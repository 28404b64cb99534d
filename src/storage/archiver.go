package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"
)

const (
	defaultArchiveBatch    = 500
	defaultCleanupInterval = time.Hour
)

// -----------------------------------------------------------------------------
// Archiver batches published metric values into the database off the
// publish path. Record never blocks; a full queue drops the value.
// -----------------------------------------------------------------------------

type Archiver struct {
	DB              interfaces.IDatabase
	Logger          *logger.Logger
	BatchSize       int
	FlushInterval   time.Duration
	CleanupInterval time.Duration
	MaxRetries      int

	queue      chan models.MMetricValue
	errHandler *helpers.ErrorHandler

	saved   atomic.Uint64
	dropped atomic.Uint64
}

// -----------------------------------------------------------------------------

func NewArchiver(db interfaces.IDatabase, queueSize int, flushInterval time.Duration, log *logger.Logger) *Archiver {
	if queueSize <= 0 {
		queueSize = defaultArchiveBatch * 4
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	return &Archiver{
		DB:              db,
		Logger:          log,
		BatchSize:       defaultArchiveBatch,
		FlushInterval:   flushInterval,
		CleanupInterval: defaultCleanupInterval,
		MaxRetries:      3,
		queue:           make(chan models.MMetricValue, queueSize),
		errHandler:      helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------

// Record queues a value for the next flush
func (a *Archiver) Record(value models.MMetricValue) bool {
	select {
	case a.queue <- value:
		return true
	default:
		a.dropped.Add(1)
		return false
	}
}

// -----------------------------------------------------------------------------

// Run flushes batches until ctx is cancelled, then drains what is queued.
func (a *Archiver) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	flushTicker := time.NewTicker(a.FlushInterval)
	defer flushTicker.Stop()
	cleanupTicker := time.NewTicker(a.CleanupInterval)
	defer cleanupTicker.Stop()

	batch := make([]models.MMetricValue, 0, a.BatchSize)

	for {
		select {
		case v := <-a.queue:
			batch = append(batch, v)
			if len(batch) >= a.BatchSize {
				batch = a.flush(batch)
			}

		case <-flushTicker.C:
			batch = a.flush(batch)

		case <-cleanupTicker.C:
			if err := a.DB.CleanupOldData(); err != nil {
				a.Logger.Error("Archive cleanup failed: %v", err)
			}

		case <-ctx.Done():
			for {
				select {
				case v := <-a.queue:
					batch = append(batch, v)
				default:
					a.flush(batch)
					a.Logger.Info("Archiver stopped (saved=%d dropped=%d)", a.saved.Load(), a.dropped.Load())
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (a *Archiver) flush(batch []models.MMetricValue) []models.MMetricValue {
	if len(batch) == 0 {
		return batch
	}

	err := a.errHandler.ExecuteWithRetry("database save", func() error {
		return a.DB.SaveMetricValuesBulk(batch)
	}, a.MaxRetries)
	if err != nil {
		a.dropped.Add(uint64(len(batch)))
	} else {
		a.saved.Add(uint64(len(batch)))
	}

	return batch[:0]
}

// -----------------------------------------------------------------------------

// Stats returns how many values were persisted and how many were lost
func (a *Archiver) Stats() (saved, dropped uint64) {
	return a.saved.Load(), a.dropped.Load()
}

package base

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"metrics-broker/src/models"
)

// -----------------------------------------------------------------------------
// Runner holds the start/stop bookkeeping shared by every source: a derived
// context per run so a single source can be stopped and restarted.
// -----------------------------------------------------------------------------

type Runner struct {
	name       string
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	generation uint64
	isRunning  atomic.Bool
}

func NewRunner(name string) *Runner {
	return &Runner{name: name}
}

// -----------------------------------------------------------------------------

// Run derives a context from parentCtx and runs loop in a goroutine tracked by wg
func (r *Runner) Run(parentCtx context.Context, wg *sync.WaitGroup, loop func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning.Load() {
		return fmt.Errorf("source %s is already running", r.name)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	r.cancelFunc = cancel
	r.generation++
	gen := r.generation
	r.isRunning.Store(true)

	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer r.finished(gen)
		loop(ctx)
	}()
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the loop to exit
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning.Load() {
		return fmt.Errorf("source %s is not running", r.name)
	}
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.isRunning.Store(false)
	return nil
}

// finished clears the running flag unless a newer run has started
func (r *Runner) finished(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation == gen {
		r.isRunning.Store(false)
	}
}

func (r *Runner) IsRunning() bool {
	return r.isRunning.Load()
}

// -----------------------------------------------------------------------------

// Push sends v unless ctx is done first
func Push(ctx context.Context, out chan<- models.MMetricValue, v models.MMetricValue) error {
	select {
	case out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

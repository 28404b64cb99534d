package synthetic

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"metrics-broker/src/data_source/base"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"
)

// SyntheticSource emits a random walk per metric for demos and load tests.
// Walks are reflected at zero.
type SyntheticSource struct {
	SourceConfig models.MSourceConfig
	Logger       *logger.Logger
	runner       *base.Runner

	mu     sync.Mutex
	values map[string]float64
	rng    *rand.Rand
}

// -----------------------------------------------------------------------------

func NewSyntheticSource(sourceCfg models.MSourceConfig, log *logger.Logger) *SyntheticSource {
	if sourceCfg.IntervalMs <= 0 {
		sourceCfg.IntervalMs = 1000
	}
	if sourceCfg.Volatility <= 0 {
		sourceCfg.Volatility = 1
	}

	values := make(map[string]float64, len(sourceCfg.Metrics))
	for _, id := range sourceCfg.Metrics {
		values[id] = sourceCfg.BaseValue
	}

	return &SyntheticSource{
		SourceConfig: sourceCfg,
		Logger:       log.Named(sourceCfg.Name),
		runner:       base.NewRunner(sourceCfg.Name),
		values:       values,
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

func (s *SyntheticSource) Name() string        { return s.SourceConfig.Name }
func (s *SyntheticSource) Type() string        { return "synthetic" }
func (s *SyntheticSource) MetricIDs() []string { return append([]string(nil), s.SourceConfig.Metrics...) }
func (s *SyntheticSource) IsRunning() bool     { return s.runner.IsRunning() }
func (s *SyntheticSource) Stop() error         { return s.runner.Stop() }

// -----------------------------------------------------------------------------

// Start begins the emission loop
func (s *SyntheticSource) Start(ctx context.Context, outputChan chan<- models.MMetricValue, wg *sync.WaitGroup) error {
	err := s.runner.Run(ctx, wg, func(ctx context.Context) {
		s.runLoop(ctx, outputChan)
	})
	if err == nil {
		s.Logger.Info("Started synthetic source with %d metrics every %dms", len(s.SourceConfig.Metrics), s.SourceConfig.IntervalMs)
	}
	return err
}

// -----------------------------------------------------------------------------

func (s *SyntheticSource) runLoop(ctx context.Context, outputChan chan<- models.MMetricValue) {
	ticker := time.NewTicker(time.Duration(s.SourceConfig.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, v := range s.Next(now) {
				if err := base.Push(ctx, outputChan, v); err != nil {
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Next advances every walk one step. Values never go negative.
func (s *SyntheticSource) Next(now time.Time) []models.MMetricValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.MMetricValue, 0, len(s.SourceConfig.Metrics))
	for _, id := range s.SourceConfig.Metrics {
		next := s.values[id] + s.rng.NormFloat64()*s.SourceConfig.Volatility
		if next < 0 {
			next = -next
		}
		s.values[id] = next

		out = append(out, models.MMetricValue{
			MetricID:  id,
			Value:     math.Round(next*1000) / 1000,
			Timestamp: now.UnixMilli(),
			Unit:      s.SourceConfig.Unit,
			Tags:      map[string]string{"source": s.SourceConfig.Name},
		})
	}
	return out
}

package httpjson

import (
	"context"
	"fmt"
	"sync"
	"time"

	"metrics-broker/src/data_source/base"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/tidwall/gjson"
)

// HTTPSource polls a JSON endpoint and extracts one value per metric
type HTTPSource struct {
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger
	runner       *base.Runner

	// last emitted document timestamp, used to skip unchanged polls
	lastTimestamp int64
}

// -----------------------------------------------------------------------------

func NewHTTPSource(sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *HTTPSource {
	if sourceCfg.IntervalMs <= 0 {
		sourceCfg.IntervalMs = 5000
	}
	return &HTTPSource{
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       log.Named(sourceCfg.Name),
		runner:       base.NewRunner(sourceCfg.Name),
	}
}

func (s *HTTPSource) Name() string        { return s.SourceConfig.Name }
func (s *HTTPSource) Type() string        { return "http" }
func (s *HTTPSource) MetricIDs() []string { return append([]string(nil), s.SourceConfig.Metrics...) }
func (s *HTTPSource) IsRunning() bool     { return s.runner.IsRunning() }
func (s *HTTPSource) Stop() error         { return s.runner.Stop() }

// -----------------------------------------------------------------------------

func (s *HTTPSource) Start(ctx context.Context, outputChan chan<- models.MMetricValue, wg *sync.WaitGroup) error {
	err := s.runner.Run(ctx, wg, func(ctx context.Context) {
		s.runLoop(ctx, outputChan)
	})
	if err == nil {
		s.Logger.Info("Polling %s every %dms", s.SourceConfig.URL, s.SourceConfig.IntervalMs)
	}
	return err
}

// -----------------------------------------------------------------------------

func (s *HTTPSource) runLoop(ctx context.Context, outputChan chan<- models.MMetricValue) {
	ticker := time.NewTicker(time.Duration(s.SourceConfig.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			values, err := s.Poll(ctx, now)
			if err != nil {
				s.Logger.Info("Error polling %s: %v", s.SourceConfig.URL, err)
				continue
			}
			for _, v := range values {
				if err := base.Push(ctx, outputChan, v); err != nil {
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Poll fetches the document once. It returns nothing when the document's
// timestamp has not moved since the previous poll.
func (s *HTTPSource) Poll(ctx context.Context, now time.Time) ([]models.MMetricValue, error) {
	body, err := s.Network.Get(ctx, s.SourceConfig.URL, nil)
	if err != nil {
		return nil, err
	}
	return s.Extract(body, now)
}

// -----------------------------------------------------------------------------

// Extract reads every configured metric out of body. Paths that are missing
// or not numeric are skipped.
func (s *HTTPSource) Extract(body []byte, now time.Time) ([]models.MMetricValue, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)

	ts := now.UnixMilli()
	if p := s.SourceConfig.TimestampPath; p != "" {
		if r := doc.Get(p); r.Exists() {
			ts = r.Int()
			if ts <= s.lastTimestamp {
				return nil, nil
			}
			s.lastTimestamp = ts
		}
	}

	out := make([]models.MMetricValue, 0, len(s.SourceConfig.Metrics))
	for _, id := range s.SourceConfig.Metrics {
		path := id
		if p, ok := s.SourceConfig.Paths[id]; ok && p != "" {
			path = p
		}

		r := doc.Get(path)
		if r.Type != gjson.Number {
			s.Logger.Debug("Metric %s: path %q is %s, skipping", id, path, r.Type)
			continue
		}
		out = append(out, models.MMetricValue{
			MetricID:  id,
			Value:     r.Float(),
			Timestamp: ts,
			Unit:      s.SourceConfig.Unit,
			Tags:      map[string]string{"source": s.SourceConfig.Name},
		})
	}
	return out, nil
}

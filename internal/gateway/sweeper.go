package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-pos-gateway/internal/observability"
	"crypto-pos-gateway/internal/storage"
)

// Default sweep policy: every 10 minutes, evict intents older than 1 hour.
const (
	DefaultSweepInterval = 10 * time.Minute
	DefaultRetention     = time.Hour
)

// Sweeper bounds the fast-path intent cache by evicting stale intents on a
// fixed schedule, regardless of status. Durable records, if any, are the
// external store's concern; after eviction a poll reports "not found".
type Sweeper struct {
	intents   storage.IntentStore
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// SweeperOptions contains configuration for creating a Sweeper.
type SweeperOptions struct {
	IntentStore storage.IntentStore

	// Interval between sweep passes. Default: 10m.
	Interval time.Duration
	// Retention is how long intents stay cached after creation. Default: 1h.
	Retention time.Duration

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewSweeper creates a new Sweeper.
func NewSweeper(opts SweeperOptions) *Sweeper {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	retention := opts.Retention
	if retention == 0 {
		retention = DefaultRetention
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		intents:   opts.IntentStore,
		interval:  interval,
		retention: retention,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       time.Now,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("retention", s.retention),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one eviction pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.retention)

	evicted, err := s.intents.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		return
	}

	if evicted > 0 {
		s.logger.Info("swept stale intents",
			zap.Int("evicted", evicted),
			zap.Time("cutoff", cutoff),
		)
	}
	if s.metrics != nil {
		s.metrics.SweepsTotal.Inc()
		s.metrics.IntentsEvicted.Add(float64(evicted))
	}
}

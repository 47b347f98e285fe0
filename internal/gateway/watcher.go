package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"crypto-pos-gateway/internal/storage"
)

// Watcher advances every pending intent on a shared ticker, independent of
// client polling. Confirmation is a store-level CAS, so a watcher pass and a
// concurrent client poll on the same intent cannot double-confirm.
type Watcher struct {
	gateway  *Gateway
	intents  storage.IntentStore
	interval time.Duration
	logger   *zap.Logger
}

// WatcherOptions contains configuration for creating a Watcher.
type WatcherOptions struct {
	Gateway     *Gateway
	IntentStore storage.IntentStore

	// Interval between passes over the pending set. Default: 2s.
	Interval time.Duration

	Logger *zap.Logger
}

// NewWatcher creates a new Watcher.
func NewWatcher(opts WatcherOptions) *Watcher {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		gateway:  opts.Gateway,
		intents:  opts.IntentStore,
		interval: interval,
		logger:   logger,
	}
}

// Run polls all pending intents on a ticker until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return ctx.Err()
		case <-ticker.C:
			w.Pass(ctx)
		}
	}
}

// Pass runs one poll over the current pending set.
func (w *Watcher) Pass(ctx context.Context) {
	pending, err := w.intents.ListPending(ctx)
	if err != nil {
		w.logger.Error("list pending intents", zap.Error(err))
		return
	}

	for _, intent := range pending {
		if ctx.Err() != nil {
			return
		}
		// An intent evicted between the list and the poll is not an error.
		if _, err := w.gateway.CheckPayment(ctx, intent.PaymentID); err != nil && !errors.Is(err, ErrPaymentNotFound) {
			w.logger.Error("watcher poll failed",
				zap.String("payment_id", intent.PaymentID),
				zap.Error(err),
			)
		}
	}
}

// Package gateway owns the payment lifecycle: intent creation, the polling
// confirmation watcher and the cleanup sweeper.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/explorer"
	"crypto-pos-gateway/internal/match"
	"crypto-pos-gateway/internal/observability"
	"crypto-pos-gateway/internal/paymentid"
	"crypto-pos-gateway/internal/storage"
)

// Default polling policy: 450 attempts at a 2 second client cadence gives a
// payment roughly 15 minutes to show up on chain.
const (
	DefaultMaxAttempts  = 450
	DefaultPollInterval = 2 * time.Second
)

// Gateway drives per-payment lifecycle: pending → confirmed | timeout.
type Gateway struct {
	coins        storage.CoinStore
	intents      storage.IntentStore
	explorer     explorer.Client
	maxAttempts  int
	pollInterval time.Duration
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// Options contains configuration for creating a Gateway.
type Options struct {
	CoinStore   storage.CoinStore
	IntentStore storage.IntentStore
	Explorer    explorer.Client

	// MaxAttempts is the unmatched-poll ceiling before timeout. Default: 450.
	MaxAttempts int
	// PollInterval is the nominal client polling cadence used for
	// remaining-time reporting. Default: 2s.
	PollInterval time.Duration

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// New creates a new Gateway.
func New(opts Options) *Gateway {
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		coins:        opts.CoinStore,
		intents:      opts.IntentStore,
		explorer:     opts.Explorer,
		maxAttempts:  maxAttempts,
		pollInterval: pollInterval,
		logger:       logger,
		metrics:      opts.Metrics,
		now:          time.Now,
	}
}

// CreateResult is the response to a payment creation request.
type CreateResult struct {
	PaymentID  string
	MethodCode string
	Address    string
	Amount     decimal.Decimal
	QRPayload  string
}

// CreatePayment validates the method and amount, snapshots the coin's
// receiving address into a fresh pending intent and stores it.
func (g *Gateway) CreatePayment(ctx context.Context, methodCode string, amount decimal.Decimal) (*CreateResult, error) {
	coin, err := g.coins.GetByMethodCode(ctx, methodCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidMethod
		}
		return nil, fmt.Errorf("look up method %q: %w", methodCode, err)
	}
	if !coin.Enabled {
		return nil, ErrInvalidMethod
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if coin.WalletAddress == "" {
		return nil, ErrUnconfigured
	}

	now := g.now().UTC()
	intent := &domain.PaymentIntent{
		PaymentID:  paymentid.New(now),
		CoinID:     coin.ID,
		MethodCode: methodCode,
		Amount:     amount,
		Address:    coin.WalletAddress,
		Status:     domain.StatusPending,
		CreatedAt:  now,
	}

	if err := g.intents.Insert(ctx, intent); err != nil {
		return nil, fmt.Errorf("store intent: %w", err)
	}

	g.logger.Info("payment created",
		zap.String("payment_id", intent.PaymentID),
		zap.String("method", methodCode),
		zap.String("amount", amount.String()),
	)
	if g.metrics != nil {
		g.metrics.PaymentsCreated.WithLabelValues(methodCode).Inc()
	}

	return &CreateResult{
		PaymentID:  intent.PaymentID,
		MethodCode: methodCode,
		Address:    intent.Address,
		Amount:     amount,
		QRPayload:  QRPayload(coin.Family, intent.Address, amount),
	}, nil
}

// StatusResult is the response to a payment status poll.
type StatusResult struct {
	PaymentID        string
	MethodCode       string
	Status           domain.PaymentStatus
	Confirmed        bool
	Amount           decimal.Decimal
	Address          string
	TxHash           string
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
	RemainingSeconds int
}

// CheckPayment advances the watcher for one poll. Terminal intents are
// returned without querying the explorer. For pending intents the explorer is
// queried, the matcher evaluated and the intent confirmed, timed out, or left
// pending. Transient explorer failures leave the intent and its attempt
// counter untouched: "explorer unreachable" never counts toward timeout.
func (g *Gateway) CheckPayment(ctx context.Context, paymentID string) (*StatusResult, error) {
	pollStart := g.now()

	intent, err := g.intents.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load intent %s: %w", paymentID, err)
	}

	if intent.Status.Terminal() {
		return g.statusResult(intent), nil
	}

	coin, err := g.coins.GetByID(ctx, intent.CoinID)
	if err != nil {
		return nil, fmt.Errorf("load coin %s: %w", intent.CoinID, err)
	}

	if g.metrics != nil {
		defer func() {
			g.metrics.PollLatency.WithLabelValues(string(coin.Family)).Observe(g.now().Sub(pollStart).Seconds())
		}()
	}

	queryStart := g.now()
	transfers, err := g.explorer.InboundTransfers(ctx, coin, intent.Address)
	if g.metrics != nil {
		g.metrics.ExplorerLatency.WithLabelValues(string(coin.Family)).Observe(g.now().Sub(queryStart).Seconds())
	}
	switch {
	case err == nil, errors.Is(err, explorer.ErrEmptyHistory):
		// No history is a normal zero-match round
	default:
		// Transient failure: no state change, no attempt counted; the user
		// just sees "still waiting" and the next poll retries.
		g.logger.Warn("explorer query failed, will retry next poll",
			zap.String("payment_id", paymentID),
			zap.String("family", string(coin.Family)),
			zap.Error(err),
		)
		g.countPoll(observability.PollResultTransient)
		if g.metrics != nil {
			g.metrics.ExplorerErrors.WithLabelValues(string(coin.Family)).Inc()
		}
		return g.statusResult(intent), nil
	}

	if res := match.Evaluate(intent, coin.Family, transfers); res.Confirmed {
		updated, err := g.intents.Confirm(ctx, paymentID, res.TxID, res.Amount, g.now().UTC())
		if err != nil {
			return nil, fmt.Errorf("confirm intent %s: %w", paymentID, err)
		}
		// Confirm is a CAS: a racing poll may have won, in which case the
		// stored hash and timestamp are theirs and we report them unchanged.
		g.logger.Info("payment confirmed",
			zap.String("payment_id", paymentID),
			zap.String("tx_hash", updated.TxHash),
			zap.String("received", updated.ReceivedAmount.String()),
		)
		g.countPoll(observability.PollResultConfirmed)
		if g.metrics != nil {
			g.metrics.PaymentsConfirmed.WithLabelValues(intent.MethodCode).Inc()
		}
		return g.statusResult(updated), nil
	}

	attempts, err := g.intents.IncrementAttempts(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("count attempt for %s: %w", paymentID, err)
	}
	intent.Attempts = attempts

	if attempts >= g.maxAttempts {
		updated, err := g.intents.MarkTimeout(ctx, paymentID)
		if err != nil {
			return nil, fmt.Errorf("time out intent %s: %w", paymentID, err)
		}
		g.logger.Info("payment timed out",
			zap.String("payment_id", paymentID),
			zap.Int("attempts", attempts),
		)
		g.countPoll(observability.PollResultTimeout)
		if g.metrics != nil {
			g.metrics.PaymentsTimedOut.WithLabelValues(intent.MethodCode).Inc()
		}
		return g.statusResult(updated), nil
	}

	g.countPoll(observability.PollResultPending)
	return g.statusResult(intent), nil
}

func (g *Gateway) statusResult(intent *domain.PaymentIntent) *StatusResult {
	remaining := 0
	if intent.Status == domain.StatusPending {
		remaining = (g.maxAttempts - intent.Attempts) * int(g.pollInterval/time.Second)
		if remaining < 0 {
			remaining = 0
		}
	}

	return &StatusResult{
		PaymentID:        intent.PaymentID,
		MethodCode:       intent.MethodCode,
		Status:           intent.Status,
		Confirmed:        intent.Confirmed,
		Amount:           intent.Amount,
		Address:          intent.Address,
		TxHash:           intent.TxHash,
		CreatedAt:        intent.CreatedAt,
		ConfirmedAt:      intent.ConfirmedAt,
		RemainingSeconds: remaining,
	}
}

func (g *Gateway) countPoll(result string) {
	if g.metrics != nil {
		g.metrics.PollsTotal.WithLabelValues(result).Inc()
	}
}

// Remaining formats the remaining wait as minutes and seconds for display.
func (r *StatusResult) Remaining() string {
	return fmt.Sprintf("%dm%02ds", r.RemainingSeconds/60, r.RemainingSeconds%60)
}

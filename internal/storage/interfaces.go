package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
)

// CoinStore provides access to coin configuration storage.
type CoinStore interface {
	// Insert adds a new coin. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, c *domain.Coin) error

	// Update replaces the configuration of an existing coin.
	// Returns ErrNotFound if the coin does not exist.
	Update(ctx context.Context, c *domain.Coin) error

	// GetByID retrieves a coin by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Coin, error)

	// GetByMethodCode retrieves a coin by its method code, enabled or not.
	// Returns ErrNotFound if no coin carries the code.
	GetByMethodCode(ctx context.Context, methodCode string) (*domain.Coin, error)

	// List retrieves all coins ordered by name.
	List(ctx context.Context) ([]*domain.Coin, error)

	// ListEnabled retrieves enabled coins ordered by name.
	ListEnabled(ctx context.Context) ([]*domain.Coin, error)

	// SetEnabled flips the enabled flag. Returns ErrNotFound if not exists.
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

// IntentStore provides access to payment intent storage.
//
// Confirm, MarkTimeout and IncrementAttempts are compare-and-swap operations
// guarded by "status is still pending": a racing second caller observes the
// already-terminal record unchanged instead of re-applying the transition.
type IntentStore interface {
	// Insert adds a new intent. Returns ErrDuplicateKey if payment_id exists.
	Insert(ctx context.Context, p *domain.PaymentIntent) error

	// GetByID retrieves an intent by payment id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, paymentID string) (*domain.PaymentIntent, error)

	// Confirm transitions pending → confirmed, stamping the matched transaction
	// hash, the received amount and the confirmation time. If the intent is
	// already terminal the stored record is returned unchanged.
	Confirm(ctx context.Context, paymentID, txHash string, received decimal.Decimal, at time.Time) (*domain.PaymentIntent, error)

	// MarkTimeout transitions pending → timeout. If the intent is already
	// terminal the stored record is returned unchanged.
	MarkTimeout(ctx context.Context, paymentID string) (*domain.PaymentIntent, error)

	// IncrementAttempts bumps the unmatched-poll counter while the intent is
	// pending and returns the stored count. Terminal intents are not counted
	// further; their last stored count is returned.
	IncrementAttempts(ctx context.Context, paymentID string) (int, error)

	// ListPending retrieves intents still awaiting resolution, oldest first.
	ListPending(ctx context.Context) ([]*domain.PaymentIntent, error)

	// DeleteOlderThan evicts intents created before the cutoff, regardless of
	// status, and returns the number of evicted records.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

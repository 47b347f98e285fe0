package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/storage"
)

// IntentStore implements storage.IntentStore using PostgreSQL.
//
// Status transitions are guarded in SQL with "AND status = 'pending'", so a
// racing confirm or timeout never overwrites a terminal record. Amounts travel
// as text in both directions to keep their exact decimal representation.
type IntentStore struct {
	pool *Pool
}

// NewIntentStore creates a new IntentStore.
func NewIntentStore(pool *Pool) *IntentStore {
	return &IntentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IntentStore = (*IntentStore)(nil)

const intentColumns = `
	payment_id, coin_id, method_code, amount::text, address, status,
	confirmed, tx_hash, received_amount::text, attempts, created_at, confirmed_at
`

// Insert adds a new intent. Returns ErrDuplicateKey if payment_id exists.
func (s *IntentStore) Insert(ctx context.Context, p *domain.PaymentIntent) error {
	query := `
		INSERT INTO payments (
			payment_id, coin_id, method_code, amount, address, status,
			confirmed, tx_hash, received_amount, attempts, created_at, confirmed_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9::numeric, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PaymentID,
		p.CoinID,
		p.MethodCode,
		p.Amount.String(),
		p.Address,
		string(p.Status),
		p.Confirmed,
		p.TxHash,
		p.ReceivedAmount.String(),
		p.Attempts,
		p.CreatedAt,
		p.ConfirmedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

// GetByID retrieves an intent by payment id. Returns ErrNotFound if not exists.
func (s *IntentStore) GetByID(ctx context.Context, paymentID string) (*domain.PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payments WHERE payment_id = $1`

	row := s.pool.QueryRow(ctx, query, paymentID)
	p, err := scanIntent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get intent by id: %w", err)
	}
	return p, nil
}

// Confirm transitions pending → confirmed, stamping the matched transaction
// hash, the received amount and the confirmation time. If the intent is
// already terminal the stored record is returned unchanged.
func (s *IntentStore) Confirm(ctx context.Context, paymentID, txHash string, received decimal.Decimal, at time.Time) (*domain.PaymentIntent, error) {
	query := `
		UPDATE payments SET
			status = $2, confirmed = TRUE, tx_hash = $3,
			received_amount = $4::numeric, confirmed_at = $5
		WHERE payment_id = $1 AND status = $6
		RETURNING ` + intentColumns

	row := s.pool.QueryRow(ctx, query,
		paymentID,
		string(domain.StatusConfirmed),
		txHash,
		received.String(),
		at,
		string(domain.StatusPending),
	)
	p, err := scanIntent(row)
	if err == nil {
		return p, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("confirm intent: %w", err)
	}

	// No pending row matched: either the id is unknown or the intent is
	// already terminal. GetByID distinguishes the two.
	return s.GetByID(ctx, paymentID)
}

// MarkTimeout transitions pending → timeout. If the intent is already
// terminal the stored record is returned unchanged.
func (s *IntentStore) MarkTimeout(ctx context.Context, paymentID string) (*domain.PaymentIntent, error) {
	query := `
		UPDATE payments SET status = $2
		WHERE payment_id = $1 AND status = $3
		RETURNING ` + intentColumns

	row := s.pool.QueryRow(ctx, query,
		paymentID,
		string(domain.StatusTimeout),
		string(domain.StatusPending),
	)
	p, err := scanIntent(row)
	if err == nil {
		return p, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("mark intent timeout: %w", err)
	}

	return s.GetByID(ctx, paymentID)
}

// IncrementAttempts bumps the unmatched-poll counter while the intent is
// pending and returns the stored count. Terminal intents are not counted
// further; their last stored count is returned.
func (s *IntentStore) IncrementAttempts(ctx context.Context, paymentID string) (int, error) {
	query := `
		UPDATE payments SET attempts = attempts + 1
		WHERE payment_id = $1 AND status = $2
		RETURNING attempts
	`

	var attempts int
	err := s.pool.QueryRow(ctx, query, paymentID, string(domain.StatusPending)).Scan(&attempts)
	if err == nil {
		return attempts, nil
	}
	if !isNotFoundError(err) {
		return 0, fmt.Errorf("increment intent attempts: %w", err)
	}

	p, err := s.GetByID(ctx, paymentID)
	if err != nil {
		return 0, err
	}
	return p.Attempts, nil
}

// ListPending retrieves intents still awaiting resolution, oldest first.
func (s *IntentStore) ListPending(ctx context.Context) ([]*domain.PaymentIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM payments
		WHERE status = $1
		ORDER BY created_at ASC, payment_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending intents: %w", err)
	}
	defer rows.Close()

	var pending []*domain.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intent row: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intent rows: %w", err)
	}
	return pending, nil
}

// DeleteOlderThan evicts intents created before the cutoff, regardless of
// status, and returns the number of evicted records.
func (s *IntentStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM payments WHERE created_at < $1`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale intents: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanIntent scans a single row into a PaymentIntent.
func scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var p domain.PaymentIntent
	var statusStr, amountStr, receivedStr string

	err := row.Scan(
		&p.PaymentID,
		&p.CoinID,
		&p.MethodCode,
		&amountStr,
		&p.Address,
		&statusStr,
		&p.Confirmed,
		&p.TxHash,
		&receivedStr,
		&p.Attempts,
		&p.CreatedAt,
		&p.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PaymentStatus(statusStr)
	p.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse intent amount %q: %w", amountStr, err)
	}
	p.ReceivedAmount, err = decimal.NewFromString(receivedStr)
	if err != nil {
		return nil, fmt.Errorf("parse intent received amount %q: %w", receivedStr, err)
	}
	return &p, nil
}

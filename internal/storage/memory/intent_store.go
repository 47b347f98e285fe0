package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/storage"
)

// IntentStore is an in-memory implementation of storage.IntentStore.
// It is the fast-path cache for active payments; the sweeper bounds its size.
type IntentStore struct {
	mu   sync.Mutex
	data map[string]*domain.PaymentIntent // keyed by payment_id
}

// NewIntentStore creates a new in-memory intent store.
func NewIntentStore() *IntentStore {
	return &IntentStore{
		data: make(map[string]*domain.PaymentIntent),
	}
}

// Insert adds a new intent. Returns ErrDuplicateKey if payment_id exists.
func (s *IntentStore) Insert(_ context.Context, p *domain.PaymentIntent) error {
	if p == nil || p.PaymentID == "" || p.CoinID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PaymentID]; exists {
		return storage.ErrDuplicateKey
	}

	intentCopy := *p
	s.data[p.PaymentID] = &intentCopy
	return nil
}

// GetByID retrieves an intent by payment id. Returns ErrNotFound if not exists.
func (s *IntentStore) GetByID(_ context.Context, paymentID string) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[paymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	intentCopy := *p
	return &intentCopy, nil
}

// Confirm transitions pending → confirmed under the store lock. A second
// caller racing on the same intent observes the already-set hash and
// timestamp unchanged.
func (s *IntentStore) Confirm(_ context.Context, paymentID, txHash string, received decimal.Decimal, at time.Time) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[paymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	if p.Status == domain.StatusPending {
		confirmedAt := at
		p.Status = domain.StatusConfirmed
		p.Confirmed = true
		p.TxHash = txHash
		p.ReceivedAmount = received
		p.ConfirmedAt = &confirmedAt
	}

	intentCopy := *p
	return &intentCopy, nil
}

// MarkTimeout transitions pending → timeout under the store lock.
func (s *IntentStore) MarkTimeout(_ context.Context, paymentID string) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[paymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	if p.Status == domain.StatusPending {
		p.Status = domain.StatusTimeout
	}

	intentCopy := *p
	return &intentCopy, nil
}

// IncrementAttempts bumps the unmatched-poll counter while pending.
func (s *IntentStore) IncrementAttempts(_ context.Context, paymentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[paymentID]
	if !exists {
		return 0, storage.ErrNotFound
	}

	if p.Status == domain.StatusPending {
		p.Attempts++
	}
	return p.Attempts, nil
}

// ListPending retrieves intents still awaiting resolution, oldest first.
func (s *IntentStore) ListPending(_ context.Context) ([]*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*domain.PaymentIntent
	for _, p := range s.data {
		if p.Status == domain.StatusPending {
			intentCopy := *p
			pending = append(pending, &intentCopy)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].PaymentID < pending[j].PaymentID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

// DeleteOlderThan evicts intents created before the cutoff, regardless of status.
func (s *IntentStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, p := range s.data {
		if p.CreatedAt.Before(cutoff) {
			delete(s.data, id)
			evicted++
		}
	}
	return evicted, nil
}

// Len returns the number of stored intents.
func (s *IntentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.IntentStore = (*IntentStore)(nil)

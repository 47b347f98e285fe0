package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/storage"
)

// CoinStore is an in-memory implementation of storage.CoinStore.
type CoinStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Coin // keyed by coin id
}

// NewCoinStore creates a new in-memory coin store.
func NewCoinStore() *CoinStore {
	return &CoinStore{
		data: make(map[string]*domain.Coin),
	}
}

// Insert adds a new coin. Returns ErrDuplicateKey if the id exists.
func (s *CoinStore) Insert(_ context.Context, c *domain.Coin) error {
	if c == nil || c.ID == "" || c.MethodCode == "" || !c.Family.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	coinCopy := *c
	if coinCopy.CreatedAt.IsZero() {
		coinCopy.CreatedAt = time.Now().UTC()
	}
	coinCopy.UpdatedAt = coinCopy.CreatedAt
	s.data[c.ID] = &coinCopy
	return nil
}

// Update replaces the configuration of an existing coin.
func (s *CoinStore) Update(_ context.Context, c *domain.Coin) error {
	if c == nil || c.ID == "" || !c.Family.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[c.ID]
	if !exists {
		return storage.ErrNotFound
	}

	coinCopy := *c
	coinCopy.CreatedAt = existing.CreatedAt
	coinCopy.UpdatedAt = time.Now().UTC()
	s.data[c.ID] = &coinCopy
	return nil
}

// GetByID retrieves a coin by its id. Returns ErrNotFound if not exists.
func (s *CoinStore) GetByID(_ context.Context, id string) (*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	coinCopy := *c
	return &coinCopy, nil
}

// GetByMethodCode retrieves a coin by its method code.
func (s *CoinStore) GetByMethodCode(_ context.Context, methodCode string) (*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data {
		if c.MethodCode == methodCode {
			coinCopy := *c
			return &coinCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// List retrieves all coins ordered by name.
func (s *CoinStore) List(_ context.Context) ([]*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Coin, 0, len(s.data))
	for _, c := range s.data {
		coinCopy := *c
		result = append(result, &coinCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// ListEnabled retrieves enabled coins ordered by name.
func (s *CoinStore) ListEnabled(_ context.Context) ([]*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Coin
	for _, c := range s.data {
		if c.Enabled {
			coinCopy := *c
			result = append(result, &coinCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// SetEnabled flips the enabled flag.
func (s *CoinStore) SetEnabled(_ context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	c.Enabled = enabled
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Verify interface compliance at compile time.
var _ storage.CoinStore = (*CoinStore)(nil)

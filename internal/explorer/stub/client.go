// Package stub provides an in-memory explorer.Client for testing.
package stub

import (
	"context"
	"sync"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/explorer"
)

// Client implements explorer.Client from fixed fixtures. Transfers and errors
// are keyed by address.
type Client struct {
	mu        sync.Mutex
	transfers map[string][]domain.InboundTransfer
	errs      map[string]error
	calls     int
}

// NewClient creates a new stub explorer client.
func NewClient() *Client {
	return &Client{
		transfers: make(map[string][]domain.InboundTransfer),
		errs:      make(map[string]error),
	}
}

// InboundTransfers returns the configured fixture for the address. Addresses
// with neither transfers nor an error configured report ErrEmptyHistory.
func (c *Client) InboundTransfers(_ context.Context, _ *domain.Coin, address string) ([]domain.InboundTransfer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	if err, ok := c.errs[address]; ok {
		return nil, err
	}

	transfers, ok := c.transfers[address]
	if !ok {
		return nil, explorer.ErrEmptyHistory
	}

	out := make([]domain.InboundTransfer, len(transfers))
	copy(out, transfers)
	return out, nil
}

// SetTransfers configures the transfers returned for an address.
func (c *Client) SetTransfers(address string, transfers []domain.InboundTransfer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errs, address)
	c.transfers[address] = transfers
}

// SetError configures the error returned for an address.
func (c *Client) SetError(address string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[address] = err
}

// Calls returns how many queries the stub has served.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Verify interface compliance at compile time.
var _ explorer.Client = (*Client)(nil)

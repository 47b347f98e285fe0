// Package explorer queries public blockchain explorer APIs and normalizes
// per-chain-family transaction history into inbound transfer records.
package explorer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"crypto-pos-gateway/internal/domain"
)

// DefaultTimeout bounds a single explorer HTTP call.
const DefaultTimeout = 10 * time.Second

// Client translates a (coin, address) pair into a most-recent-first sequence
// of inbound transfers.
type Client interface {
	// InboundTransfers returns transfers into address. An address with no
	// history yields ErrEmptyHistory; transport and malformed-response
	// failures yield a TransientError.
	InboundTransfers(ctx context.Context, coin *domain.Coin, address string) ([]domain.InboundTransfer, error)
}

// Dispatcher routes a query to the adapter for the coin's chain family.
type Dispatcher struct {
	utxo    Client
	account Client
}

// NewDispatcher creates a dispatcher over the UTXO and account-chain adapters.
func NewDispatcher(utxo, account Client) *Dispatcher {
	return &Dispatcher{utxo: utxo, account: account}
}

// InboundTransfers dispatches on the coin's explicit chain family tag.
func (d *Dispatcher) InboundTransfers(ctx context.Context, coin *domain.Coin, address string) ([]domain.InboundTransfer, error) {
	switch coin.Family {
	case domain.ChainUTXO:
		return d.utxo.InboundTransfers(ctx, coin, address)
	case domain.ChainToken, domain.ChainNativeAccount:
		return d.account.InboundTransfers(ctx, coin, address)
	default:
		return nil, fmt.Errorf("coin %s: unknown chain family %q", coin.ID, coin.Family)
	}
}

// Verify interface compliance at compile time.
var _ Client = (*Dispatcher)(nil)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

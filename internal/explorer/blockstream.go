package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
)

// DefaultTxLimit is how many recent transactions the UTXO adapter inspects.
const DefaultTxLimit = 10

// satoshi scale: UTXO explorers report output values in 1e-8 units.
const satoshiExponent = -8

// UTXOClient queries Blockstream-style REST explorers for Bitcoin-family
// coins: GET {base}/address/{address}/txs, newest first.
type UTXOClient struct {
	client  *http.Client
	txLimit int
}

// UTXOOption configures UTXOClient.
type UTXOOption func(*UTXOClient)

// WithTxLimit bounds how many recent transactions are inspected per poll.
func WithTxLimit(n int) UTXOOption {
	return func(c *UTXOClient) {
		c.txLimit = n
	}
}

// WithUTXOHTTPClient sets a custom http.Client.
func WithUTXOHTTPClient(client *http.Client) UTXOOption {
	return func(c *UTXOClient) {
		c.client = client
	}
}

// WithUTXOTimeout sets the HTTP timeout for explorer calls.
func WithUTXOTimeout(d time.Duration) UTXOOption {
	return func(c *UTXOClient) {
		c.client.Timeout = d
	}
}

// NewUTXOClient creates a new Blockstream-style explorer client.
func NewUTXOClient(opts ...UTXOOption) *UTXOClient {
	c := &UTXOClient{
		client:  newHTTPClient(DefaultTimeout),
		txLimit: DefaultTxLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type utxoTx struct {
	TxID   string `json:"txid"`
	Status struct {
		Confirmed bool  `json:"confirmed"`
		BlockTime int64 `json:"block_time"`
	} `json:"status"`
	Vout []utxoOut `json:"vout"`
}

type utxoOut struct {
	ScriptpubkeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

// InboundTransfers lists recent transactions for the address and, per
// transaction, sums the output values paid to the watched address.
func (c *UTXOClient) InboundTransfers(ctx context.Context, coin *domain.Coin, address string) ([]domain.InboundTransfer, error) {
	url := fmt.Sprintf("%s/address/%s/txs", strings.TrimRight(coin.ExplorerURL, "/"), address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "utxo address txs", Err: err}
	}
	defer resp.Body.Close()

	// Blockstream answers 404 for addresses it has never seen.
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrEmptyHistory
	}
	if resp.StatusCode != http.StatusOK {
		return nil, transientf("utxo address txs", "unexpected status %d", resp.StatusCode)
	}

	var txs []utxoTx
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return nil, transientf("utxo address txs", "decode response: %v", err)
	}
	if len(txs) == 0 {
		return nil, ErrEmptyHistory
	}

	if len(txs) > c.txLimit {
		txs = txs[:c.txLimit]
	}

	transfers := make([]domain.InboundTransfer, 0, len(txs))
	for _, tx := range txs {
		var sats int64
		for _, out := range tx.Vout {
			if out.ScriptpubkeyAddress == address {
				sats += out.Value
			}
		}
		if sats == 0 {
			// Outbound or unrelated transaction
			continue
		}

		var ts time.Time
		if tx.Status.BlockTime > 0 {
			ts = time.Unix(tx.Status.BlockTime, 0).UTC()
		}

		transfers = append(transfers, domain.InboundTransfer{
			TxID:      tx.TxID,
			Timestamp: ts,
			To:        address,
			Amount:    decimal.New(sats, satoshiExponent),
			Symbol:    coin.Symbol,
		})
	}

	return transfers, nil
}

// Verify interface compliance at compile time.
var _ Client = (*UTXOClient)(nil)

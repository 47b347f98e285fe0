package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
)

// AccountClient queries etherscan-style explorers for account chains. It
// serves two families: token transfers (module=account&action=tokentx) and
// native-asset transfers (module=account&action=txlist).
type AccountClient struct {
	client *http.Client
}

// AccountOption configures AccountClient.
type AccountOption func(*AccountClient)

// WithAccountHTTPClient sets a custom http.Client.
func WithAccountHTTPClient(client *http.Client) AccountOption {
	return func(c *AccountClient) {
		c.client = client
	}
}

// WithAccountTimeout sets the HTTP timeout for explorer calls.
func WithAccountTimeout(d time.Duration) AccountOption {
	return func(c *AccountClient) {
		c.client.Timeout = d
	}
}

// NewAccountClient creates a new etherscan-style explorer client.
func NewAccountClient(opts ...AccountOption) *AccountClient {
	c := &AccountClient{
		client: newHTTPClient(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InboundTransfers dispatches on the coin's family: contract token events or
// native transaction list.
func (c *AccountClient) InboundTransfers(ctx context.Context, coin *domain.Coin, address string) ([]domain.InboundTransfer, error) {
	switch coin.Family {
	case domain.ChainToken:
		return c.tokenTransfers(ctx, coin, address)
	case domain.ChainNativeAccount:
		return c.nativeTransfers(ctx, coin, address)
	default:
		return nil, fmt.Errorf("coin %s: account client cannot serve family %q", coin.ID, coin.Family)
	}
}

// accountResponse is the etherscan envelope. Result is raw because the API
// returns a string message instead of a list on some error responses.
type accountResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type accountTx struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
}

func (c *AccountClient) tokenTransfers(ctx context.Context, coin *domain.Coin, address string) ([]domain.InboundTransfer, error) {
	params := url.Values{
		"module":          {"account"},
		"action":          {"tokentx"},
		"contractaddress": {coin.ContractAddress},
		"address":         {address},
		"startblock":      {"0"},
		"endblock":        {"99999999"},
		"sort":            {"desc"},
	}

	txs, err := c.query(ctx, coin, "tokentx", params)
	if err != nil {
		return nil, err
	}

	var transfers []domain.InboundTransfer
	for _, tx := range txs {
		if !strings.EqualFold(tx.To, address) {
			continue
		}
		// Match on symbol or contract; explorers have reported either
		// inconsistently for bridged assets.
		if tx.TokenSymbol != coin.Symbol && !strings.EqualFold(tx.ContractAddress, coin.ContractAddress) {
			continue
		}

		transfer, ok := tx.toTransfer(coin.Decimals)
		if !ok {
			continue
		}
		transfers = append(transfers, transfer)
	}

	return transfers, nil
}

func (c *AccountClient) nativeTransfers(ctx context.Context, coin *domain.Coin, address string) ([]domain.InboundTransfer, error) {
	params := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"sort":       {"desc"},
	}

	txs, err := c.query(ctx, coin, "txlist", params)
	if err != nil {
		return nil, err
	}

	var transfers []domain.InboundTransfer
	for _, tx := range txs {
		if !strings.EqualFold(tx.To, address) || tx.Value == "0" || tx.Value == "" {
			continue
		}

		transfer, ok := tx.toTransfer(coin.Decimals)
		if !ok {
			continue
		}
		transfer.Symbol = coin.Symbol
		transfers = append(transfers, transfer)
	}

	return transfers, nil
}

// toTransfer converts a raw integer-unit row into a human-unit transfer.
// Rows with unparseable values are dropped rather than failing the poll.
func (tx accountTx) toTransfer(decimals int32) (domain.InboundTransfer, bool) {
	raw, err := decimal.NewFromString(tx.Value)
	if err != nil {
		return domain.InboundTransfer{}, false
	}
	seconds, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
	if err != nil {
		return domain.InboundTransfer{}, false
	}

	return domain.InboundTransfer{
		TxID:      tx.Hash,
		Timestamp: time.Unix(seconds, 0).UTC(),
		To:        tx.To,
		Amount:    raw.Shift(-decimals),
		Contract:  tx.ContractAddress,
		Symbol:    tx.TokenSymbol,
	}, true
}

func (c *AccountClient) query(ctx context.Context, coin *domain.Coin, op string, params url.Values) ([]accountTx, error) {
	if coin.ExplorerAPIKey != "" {
		params.Set("apikey", coin.ExplorerAPIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coin.ExplorerURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrEmptyHistory
	}
	if resp.StatusCode != http.StatusOK {
		return nil, transientf(op, "unexpected status %d", resp.StatusCode)
	}

	var envelope accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, transientf(op, "decode response: %v", err)
	}

	if envelope.Status != "1" {
		// status "0" with "No transactions found" is a normal empty result;
		// anything else (rate limit, bad key) is retryable.
		if strings.Contains(envelope.Message, "No transactions found") {
			return nil, ErrEmptyHistory
		}
		return nil, transientf(op, "explorer status %q: %s", envelope.Status, envelope.Message)
	}

	var txs []accountTx
	if err := json.Unmarshal(envelope.Result, &txs); err != nil {
		return nil, transientf(op, "decode result: %v", err)
	}
	if len(txs) == 0 {
		return nil, ErrEmptyHistory
	}

	return txs, nil
}

// Verify interface compliance at compile time.
var _ Client = (*AccountClient)(nil)

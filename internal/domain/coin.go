package domain

import "time"

// ChainFamily classifies how inbound value is queried for a coin.
type ChainFamily string

const (
	// ChainUTXO is the Bitcoin-style family: value arrives as transaction
	// outputs and an explorer lists whole transactions per address.
	ChainUTXO ChainFamily = "utxo"

	// ChainToken is a contract-based token on an account chain.
	ChainToken ChainFamily = "token"

	// ChainNativeAccount is the native asset of an account chain.
	ChainNativeAccount ChainFamily = "native"
)

// Valid reports whether f is a known chain family.
func (f ChainFamily) Valid() bool {
	switch f {
	case ChainUTXO, ChainToken, ChainNativeAccount:
		return true
	}
	return false
}

// Coin is the static configuration for a supported asset.
// Corresponds to the coins table in PostgreSQL. A coin is immutable for the
// lifetime of a payment: the watcher only ever reads it, admin endpoints write it.
type Coin struct {
	ID              string      // PRIMARY KEY, e.g. "btc", "usdt-avax"
	Name            string      // display name
	Symbol          string      // ticker symbol, e.g. "BTC", "USDT"
	Enabled         bool        // disabled coins cannot start payments
	Network         string      // "mainnet" | "testnet"
	Family          ChainFamily // decided once at configuration time
	WalletAddress   string      // receiving address
	ExplorerURL     string      // explorer API base URL
	ExplorerAPIKey  string      // optional explorer API key
	ContractAddress string      // token contract, empty for non-token families
	Decimals        int32       // decimal places of the asset
	Confirmations   int         // required confirmation count
	MethodCode      string      // human method code used by the POS client
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Network values.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

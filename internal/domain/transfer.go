package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InboundTransfer is one observed on-chain movement of value into a watched
// address, already normalized to human units. Transfers are transient adapter
// output and are recomputed on every poll, never persisted.
type InboundTransfer struct {
	TxID      string
	Timestamp time.Time // block inclusion time; zero when not yet included
	To        string
	Amount    decimal.Decimal // human units, scaled by the coin's decimals
	Contract  string          // asset contract for token transfers, else empty
	Symbol    string          // asset symbol as reported by the explorer
}

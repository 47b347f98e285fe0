package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
)

// QRPayload builds the string a POS client renders as a QR code. UTXO chains
// get a BIP 21 style URI carrying the amount; wallets on account chains scan
// a bare address.
func QRPayload(family domain.ChainFamily, address string, amount decimal.Decimal) string {
	if family == domain.ChainUTXO {
		return fmt.Sprintf("bitcoin:%s?amount=%s", address, amount.String())
	}
	return address
}

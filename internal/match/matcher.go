// Package match decides whether observed inbound transfers satisfy a payment
// intent under amount-tolerance and recency rules.
package match

import (
	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
)

// Fixed absolute underpayment tolerances per chain family. Not proportional
// to the amount: they absorb fee rounding, nothing more.
var (
	utxoTolerance    = decimal.New(1, -4) // 0.0001 BTC
	accountTolerance = decimal.New(1, -2) // 0.01 token/native units
)

// Tolerance returns the absolute underpayment allowance for a chain family.
func Tolerance(family domain.ChainFamily) decimal.Decimal {
	if family == domain.ChainUTXO {
		return utxoTolerance
	}
	return accountTolerance
}

// Result is the outcome of evaluating transfers against an intent.
type Result struct {
	Confirmed bool
	TxID      string
	Amount    decimal.Decimal
}

// Evaluate scans transfers in the order received and returns the first one
// that satisfies the intent. A transfer matches when it is not older than the
// intent (inclusive at the creation instant) and its amount is within
// tolerance of the expected amount or exceeds it. Adapters deliver transfers
// most-recent-first, so the most recent qualifying transfer wins.
func Evaluate(intent *domain.PaymentIntent, family domain.ChainFamily, transfers []domain.InboundTransfer) Result {
	tolerance := Tolerance(family)

	for _, t := range transfers {
		// Transfers dated before the intent existed never match; this keeps
		// prior traffic to a reused address from confirming a new payment.
		if t.Timestamp.Before(intent.CreatedAt) {
			continue
		}

		received := t.Amount
		withinTolerance := received.Sub(intent.Amount).Abs().LessThanOrEqual(tolerance)
		overpaid := received.GreaterThanOrEqual(intent.Amount)
		if withinTolerance || overpaid {
			return Result{Confirmed: true, TxID: t.TxID, Amount: received}
		}
	}

	return Result{}
}

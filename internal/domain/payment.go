package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment intent.
// Transitions are monotonic: pending → confirmed | timeout, nothing reverses.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusConfirmed PaymentStatus = "confirmed"
	StatusTimeout   PaymentStatus = "timeout"
)

// Terminal reports whether no further transitions are possible.
func (s PaymentStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusTimeout
}

// PaymentIntent is a pending or resolved payment request.
// Corresponds to the payments table in PostgreSQL.
//
// The receiving address is snapshotted from the coin at creation time; later
// coin edits never retarget an in-flight intent.
type PaymentIntent struct {
	PaymentID      string // PRIMARY KEY, time prefix + random suffix
	CoinID         string // FK to coins
	MethodCode     string // method code the intent was created with
	Amount         decimal.Decimal
	Address        string
	Status         PaymentStatus
	Confirmed      bool
	TxHash         string          // matched transaction, set on confirmation
	ReceivedAmount decimal.Decimal // matched amount, set on confirmation
	Attempts       int             // unmatched polls so far
	CreatedAt      time.Time
	ConfirmedAt    *time.Time
}

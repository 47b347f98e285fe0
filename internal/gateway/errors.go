package gateway

import "errors"

// User-facing errors returned synchronously from gateway operations.
// Poll-time transient explorer failures are never surfaced here; the caller
// only ever sees "still pending".
var (
	// ErrInvalidMethod means the method code is unknown or the coin is disabled.
	ErrInvalidMethod = errors.New("invalid payment method")

	// ErrInvalidAmount means the requested amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnconfigured means the coin has no receiving address configured.
	ErrUnconfigured = errors.New("payment method has no wallet address configured")

	// ErrPaymentNotFound means the payment id is unknown or already evicted.
	ErrPaymentNotFound = errors.New("payment not found")
)

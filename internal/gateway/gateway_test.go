package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/explorer"
	"crypto-pos-gateway/internal/explorer/stub"
	"crypto-pos-gateway/internal/storage/memory"
)

const (
	btcAddress  = "bc1qwatched"
	avaxAddress = "0x0029B302c6a0858b5648302dA5F4b24b67fBb364"
)

type testEnv struct {
	gateway  *Gateway
	coins    *memory.CoinStore
	intents  *memory.IntentStore
	explorer *stub.Client
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	ctx := context.Background()

	coins := memory.NewCoinStore()
	intents := memory.NewIntentStore()
	exp := stub.NewClient()

	seed := []*domain.Coin{
		{
			ID: "btc", Name: "Bitcoin", Symbol: "BTC", Enabled: true,
			Network: domain.NetworkMainnet, Family: domain.ChainUTXO,
			WalletAddress: btcAddress, ExplorerURL: "https://blockstream.info/api",
			Decimals: 8, Confirmations: 1, MethodCode: "btc",
		},
		{
			ID: "usdt-avax", Name: "USDT", Symbol: "USDT", Enabled: true,
			Network: domain.NetworkMainnet, Family: domain.ChainToken,
			WalletAddress: avaxAddress, ExplorerURL: "https://api.snowtrace.io/api",
			ContractAddress: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7",
			Decimals:        6, Confirmations: 1, MethodCode: "usdt-avax",
		},
		{
			ID: "doge", Name: "Dogecoin", Symbol: "DOGE", Enabled: false,
			Network: domain.NetworkMainnet, Family: domain.ChainUTXO,
			WalletAddress: "Ddisabled", ExplorerURL: "https://example.invalid",
			Decimals: 8, Confirmations: 1, MethodCode: "doge",
		},
		{
			ID: "ltc", Name: "Litecoin", Symbol: "LTC", Enabled: true,
			Network: domain.NetworkMainnet, Family: domain.ChainUTXO,
			WalletAddress: "", ExplorerURL: "https://example.invalid",
			Decimals: 8, Confirmations: 1, MethodCode: "ltc",
		},
	}
	for _, c := range seed {
		if err := coins.Insert(ctx, c); err != nil {
			t.Fatalf("seed coin %s: %v", c.ID, err)
		}
	}

	opts.CoinStore = coins
	opts.IntentStore = intents
	opts.Explorer = exp

	return &testEnv{
		gateway:  New(opts),
		coins:    coins,
		intents:  intents,
		explorer: exp,
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestCreatePayment(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if created.Address != btcAddress {
		t.Errorf("Address: got %s, want %s", created.Address, btcAddress)
	}
	if want := "bitcoin:" + btcAddress + "?amount=0.01"; created.QRPayload != want {
		t.Errorf("QRPayload: got %s, want %s", created.QRPayload, want)
	}

	stored, err := env.intents.GetByID(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("stored intent missing: %v", err)
	}
	if stored.Status != domain.StatusPending {
		t.Errorf("Status: got %s, want pending", stored.Status)
	}
	if stored.CoinID != "btc" {
		t.Errorf("CoinID: got %s", stored.CoinID)
	}
}

func TestCreatePayment_TokenQRIsBareAddress(t *testing.T) {
	env := newTestEnv(t, Options{})

	created, err := env.gateway.CreatePayment(context.Background(), "usdt-avax", dec(t, "50"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if created.QRPayload != avaxAddress {
		t.Errorf("QRPayload: got %s, want bare address", created.QRPayload)
	}
}

func TestCreatePayment_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		method  string
		amount  string
		wantErr error
	}{
		{"unknown method", "xmr", "1", ErrInvalidMethod},
		{"disabled coin", "doge", "1", ErrInvalidMethod},
		{"zero amount", "btc", "0", ErrInvalidAmount},
		{"negative amount", "btc", "-0.5", ErrInvalidAmount},
		{"no wallet address", "ltc", "1", ErrUnconfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gateway.CreatePayment(ctx, tt.method, dec(t, tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckPayment_NotFound(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.gateway.CheckPayment(context.Background(), "payment_unknown")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("got %v, want ErrPaymentNotFound", err)
	}
}

func TestCheckPayment_ConfirmsMatchingTransfer(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	// In-tolerance underpayment shortly after creation
	env.explorer.SetTransfers(btcAddress, []domain.InboundTransfer{{
		TxID:      "tx_match",
		Timestamp: time.Now().UTC().Add(5 * time.Second),
		To:        btcAddress,
		Amount:    dec(t, "0.00995"),
	}})

	status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("CheckPayment failed: %v", err)
	}
	if !status.Confirmed || status.Status != domain.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", status.Status)
	}
	if status.TxHash != "tx_match" {
		t.Errorf("TxHash: got %s", status.TxHash)
	}
	if status.ConfirmedAt == nil {
		t.Errorf("ConfirmedAt not stamped")
	}

	// Terminal states do not re-trigger explorer calls
	callsBefore := env.explorer.Calls()
	again, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("second CheckPayment failed: %v", err)
	}
	if env.explorer.Calls() != callsBefore {
		t.Errorf("terminal poll queried the explorer")
	}
	if again.TxHash != "tx_match" || !again.ConfirmedAt.Equal(*status.ConfirmedAt) {
		t.Errorf("terminal poll changed stored confirmation")
	}
}

func TestCheckPayment_IgnoresTransfersBeforeCreation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	// Full amount, but dated a minute before the intent existed
	env.explorer.SetTransfers(btcAddress, []domain.InboundTransfer{{
		TxID:      "tx_stale",
		Timestamp: time.Now().UTC().Add(-time.Minute),
		To:        btcAddress,
		Amount:    dec(t, "0.01"),
	}})

	status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("CheckPayment failed: %v", err)
	}
	if status.Confirmed {
		t.Errorf("stale transfer confirmed the intent")
	}
	if status.Status != domain.StatusPending {
		t.Errorf("Status: got %s, want pending", status.Status)
	}
}

func TestCheckPayment_TimeoutAtAttemptCeiling(t *testing.T) {
	const maxAttempts = 450
	env := newTestEnv(t, Options{MaxAttempts: maxAttempts, PollInterval: 2 * time.Second})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	for i := 1; i < maxAttempts; i++ {
		status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
		if err != nil {
			t.Fatalf("poll %d failed: %v", i, err)
		}
		if status.Status != domain.StatusPending {
			t.Fatalf("poll %d: status %s, want pending", i, status.Status)
		}
	}

	// The 450th unmatched poll crosses the ceiling
	status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("final poll failed: %v", err)
	}
	if status.Status != domain.StatusTimeout {
		t.Errorf("final poll: status %s, want timeout", status.Status)
	}
	if status.RemainingSeconds != 0 {
		t.Errorf("RemainingSeconds: got %d, want 0", status.RemainingSeconds)
	}

	// Timeout is terminal; a late matching transfer changes nothing
	env.explorer.SetTransfers(btcAddress, []domain.InboundTransfer{{
		TxID:      "tx_late",
		Timestamp: time.Now().UTC(),
		To:        btcAddress,
		Amount:    dec(t, "0.01"),
	}})
	after, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("post-timeout poll failed: %v", err)
	}
	if after.Status != domain.StatusTimeout || after.Confirmed {
		t.Errorf("terminal timeout reversed: %+v", after)
	}
}

func TestCheckPayment_RemainingTimeReporting(t *testing.T) {
	env := newTestEnv(t, Options{MaxAttempts: 450, PollInterval: 2 * time.Second})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("CheckPayment failed: %v", err)
	}
	// One attempt used: 449 * 2s = 898s left
	if status.RemainingSeconds != 898 {
		t.Errorf("RemainingSeconds: got %d, want 898", status.RemainingSeconds)
	}
	if got, want := status.Remaining(), "14m58s"; got != want {
		t.Errorf("Remaining: got %s, want %s", got, want)
	}
}

func TestCheckPayment_TransientFailureDoesNotCountTowardTimeout(t *testing.T) {
	env := newTestEnv(t, Options{MaxAttempts: 3})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	env.explorer.SetError(btcAddress, &explorer.TransientError{Op: "utxo address txs", Err: errors.New("dial timeout")})

	// Far more failed polls than the ceiling; none of them count
	for i := 0; i < 10; i++ {
		status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
		if err != nil {
			t.Fatalf("poll %d surfaced transient failure: %v", i, err)
		}
		if status.Status != domain.StatusPending {
			t.Fatalf("poll %d: status %s, want pending", i, status.Status)
		}
	}

	stored, err := env.intents.GetByID(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Attempts != 0 {
		t.Errorf("transient failures advanced the attempt counter to %d", stored.Attempts)
	}

	// Once the explorer recovers, matching proceeds normally
	env.explorer.SetTransfers(btcAddress, []domain.InboundTransfer{{
		TxID:      "tx_recovered",
		Timestamp: time.Now().UTC(),
		To:        btcAddress,
		Amount:    dec(t, "0.01"),
	}})
	status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
	if err != nil {
		t.Fatalf("recovered poll failed: %v", err)
	}
	if !status.Confirmed {
		t.Errorf("recovered poll did not confirm")
	}
}

func TestCheckPayment_ConcurrentPollsConfirmOnce(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "usdt-avax", dec(t, "50"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	env.explorer.SetTransfers(avaxAddress, []domain.InboundTransfer{{
		TxID:      "tx_usdc",
		Timestamp: time.Now().UTC(),
		To:        avaxAddress,
		Amount:    dec(t, "50"),
	}})

	const callers = 8
	results := make([]*StatusResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, err := env.gateway.CheckPayment(ctx, created.PaymentID)
			if err != nil {
				t.Errorf("concurrent poll failed: %v", err)
				return
			}
			results[i] = status
		}(i)
	}
	wg.Wait()

	var confirmedAt *time.Time
	for _, status := range results {
		if status == nil {
			continue
		}
		if !status.Confirmed {
			t.Fatalf("caller observed unconfirmed result")
		}
		if status.TxHash != "tx_usdc" {
			t.Fatalf("TxHash: got %s", status.TxHash)
		}
		if confirmedAt == nil {
			confirmedAt = status.ConfirmedAt
		} else if !status.ConfirmedAt.Equal(*confirmedAt) {
			t.Fatalf("two confirmation timestamps stored")
		}
	}
}

func TestCheckPayment_AfterEvictionReportsNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	created, err := env.gateway.CreatePayment(ctx, "btc", dec(t, "0.01"))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	// Sweep with a future cutoff evicts everything
	if _, err := env.intents.DeleteOlderThan(ctx, time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}

	if _, err := env.gateway.CheckPayment(ctx, created.PaymentID); !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("got %v, want ErrPaymentNotFound", err)
	}
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/storage"
)

func testCoin(id string) *domain.Coin {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Coin{
		ID:            id,
		Name:          "Testcoin " + id,
		Symbol:        "TST",
		Enabled:       true,
		Network:       domain.NetworkMainnet,
		Family:        domain.ChainUTXO,
		WalletAddress: "addr-" + id,
		ExplorerURL:   "https://explorer.example/api",
		Decimals:      8,
		Confirmations: 1,
		MethodCode:    "method-" + id,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCoinStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewCoinStore(pool)

	coin := testCoin("tst1")
	coin.Family = domain.ChainToken
	coin.ContractAddress = "0xcontract"
	coin.ExplorerAPIKey = "key123"
	require.NoError(t, store.Insert(ctx, coin))

	got, err := store.GetByID(ctx, "tst1")
	require.NoError(t, err)
	assert.Equal(t, coin.Name, got.Name)
	assert.Equal(t, domain.ChainToken, got.Family)
	assert.Equal(t, "0xcontract", got.ContractAddress)
	assert.Equal(t, "key123", got.ExplorerAPIKey)
	assert.Equal(t, int32(8), got.Decimals)
	assert.True(t, got.Enabled)

	byMethod, err := store.GetByMethodCode(ctx, "method-tst1")
	require.NoError(t, err)
	assert.Equal(t, "tst1", byMethod.ID)

	err = store.Insert(ctx, testCoin("tst1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByMethodCode(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCoinStore_InsertRejectsInvalidFamily(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewCoinStore(pool)

	coin := testCoin("bogus")
	coin.Family = "account-based"
	err := store.Insert(context.Background(), coin)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCoinStore_Update(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewCoinStore(pool)

	coin := testCoin("upd1")
	require.NoError(t, store.Insert(ctx, coin))

	coin.Name = "Renamed"
	coin.WalletAddress = "addr-new"
	coin.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Update(ctx, coin))

	got, err := store.GetByID(ctx, "upd1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "addr-new", got.WalletAddress)

	missing := testCoin("upd-missing")
	err = store.Update(ctx, missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCoinStore_ListAndEnabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewCoinStore(pool)

	// The seed migration ships its catalog disabled, so ListEnabled starts
	// empty and only reflects what the test turns on.
	enabled, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	a := testCoin("lst-a")
	a.Name = "Zebra Coin"
	b := testCoin("lst-b")
	b.Name = "Aardvark Coin"
	b.Enabled = false
	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, b))

	all, err := store.List(ctx)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Name, all[i].Name, "coins not ordered by name")
	}

	enabled, err = store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "lst-a", enabled[0].ID)
}

func TestCoinStore_SetEnabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewCoinStore(pool)

	require.NoError(t, store.Insert(ctx, testCoin("flip")))

	require.NoError(t, store.SetEnabled(ctx, "flip", false))
	got, err := store.GetByID(ctx, "flip")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, store.SetEnabled(ctx, "flip", true))
	got, err = store.GetByID(ctx, "flip")
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	err = store.SetEnabled(ctx, "missing", true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCoinStore_SeededCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := NewCoinStore(pool)

	btc, err := store.GetByMethodCode(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainUTXO, btc.Family)
	assert.False(t, btc.Enabled)
	assert.Empty(t, btc.WalletAddress)

	usdt, err := store.GetByID(ctx, "usdt-avax")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainToken, usdt.Family)
	assert.NotEmpty(t, usdt.ContractAddress)
	assert.Equal(t, int32(6), usdt.Decimals)

	avax, err := store.GetByID(ctx, "avax")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainNativeAccount, avax.Family)
	assert.Equal(t, int32(18), avax.Decimals)
}

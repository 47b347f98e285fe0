package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/storage"
)

// CoinStore implements storage.CoinStore using PostgreSQL.
type CoinStore struct {
	pool *Pool
}

// NewCoinStore creates a new CoinStore.
func NewCoinStore(pool *Pool) *CoinStore {
	return &CoinStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CoinStore = (*CoinStore)(nil)

const coinColumns = `
	id, name, symbol, enabled, network, family, wallet_address,
	explorer_url, explorer_api_key, contract_address, decimals,
	confirmations, method_code, created_at, updated_at
`

// Insert adds a new coin. Returns ErrDuplicateKey if the id exists.
func (s *CoinStore) Insert(ctx context.Context, c *domain.Coin) error {
	if !c.Family.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO coins (
			id, name, symbol, enabled, network, family, wallet_address,
			explorer_url, explorer_api_key, contract_address, decimals,
			confirmations, method_code, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Symbol,
		c.Enabled,
		c.Network,
		string(c.Family),
		c.WalletAddress,
		c.ExplorerURL,
		c.ExplorerAPIKey,
		c.ContractAddress,
		c.Decimals,
		c.Confirmations,
		c.MethodCode,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert coin: %w", err)
	}
	return nil
}

// Update replaces the configuration of an existing coin.
// Returns ErrNotFound if the coin does not exist.
func (s *CoinStore) Update(ctx context.Context, c *domain.Coin) error {
	if !c.Family.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE coins SET
			name = $2, symbol = $3, enabled = $4, network = $5, family = $6,
			wallet_address = $7, explorer_url = $8, explorer_api_key = $9,
			contract_address = $10, decimals = $11, confirmations = $12,
			method_code = $13, updated_at = $14
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Symbol,
		c.Enabled,
		c.Network,
		string(c.Family),
		c.WalletAddress,
		c.ExplorerURL,
		c.ExplorerAPIKey,
		c.ContractAddress,
		c.Decimals,
		c.Confirmations,
		c.MethodCode,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update coin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a coin by its id. Returns ErrNotFound if not exists.
func (s *CoinStore) GetByID(ctx context.Context, id string) (*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	c, err := scanCoin(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin by id: %w", err)
	}
	return c, nil
}

// GetByMethodCode retrieves a coin by its method code, enabled or not.
// Returns ErrNotFound if no coin carries the code.
func (s *CoinStore) GetByMethodCode(ctx context.Context, methodCode string) (*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins WHERE method_code = $1`

	row := s.pool.QueryRow(ctx, query, methodCode)
	c, err := scanCoin(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin by method code: %w", err)
	}
	return c, nil
}

// List retrieves all coins ordered by name.
func (s *CoinStore) List(ctx context.Context) ([]*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins ORDER BY name ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	defer rows.Close()

	return scanCoins(rows)
}

// ListEnabled retrieves enabled coins ordered by name.
func (s *CoinStore) ListEnabled(ctx context.Context) ([]*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins WHERE enabled ORDER BY name ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list enabled coins: %w", err)
	}
	defer rows.Close()

	return scanCoins(rows)
}

// SetEnabled flips the enabled flag. Returns ErrNotFound if not exists.
func (s *CoinStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE coins SET enabled = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("set coin enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanCoin scans a single row into a Coin.
func scanCoin(row pgx.Row) (*domain.Coin, error) {
	var c domain.Coin
	var familyStr string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Symbol,
		&c.Enabled,
		&c.Network,
		&familyStr,
		&c.WalletAddress,
		&c.ExplorerURL,
		&c.ExplorerAPIKey,
		&c.ContractAddress,
		&c.Decimals,
		&c.Confirmations,
		&c.MethodCode,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Family = domain.ChainFamily(familyStr)
	return &c, nil
}

// scanCoins scans multiple rows into a slice of Coin.
func scanCoins(rows pgx.Rows) ([]*domain.Coin, error) {
	var coins []*domain.Coin

	for rows.Next() {
		c, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coin row: %w", err)
		}
		coins = append(coins, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin rows: %w", err)
	}

	return coins, nil
}

package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository persists accounts and their default-role configuration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAccount inserts one chart-of-accounts node. Codes are unique per
// organization; a duplicate reports a state conflict.
func (r *Repository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO accounts (org_id, code, name, category)
VALUES ($1, $2, $3, $4) RETURNING id, is_active, created_at, updated_at`,
		account.OrgID, account.Code, account.Name, account.Category).
		Scan(&account.ID, &account.IsActive, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, fmt.Errorf("accounts: %w: code %q already exists", shared.ErrStateConflict, account.Code)
		}
		return Account{}, err
	}
	account.Balance = decimal.Zero
	return account, nil
}

// UpsertConfiguration maps one role to one account, replacing any previous
// mapping for that role.
func (r *Repository) UpsertConfiguration(ctx context.Context, orgID int64, configType ConfigType, accountID int64) (Configuration, error) {
	var c Configuration
	err := r.pool.QueryRow(ctx, `INSERT INTO account_configurations (org_id, config_type, account_id)
VALUES ($1, $2, $3)
ON CONFLICT (org_id, config_type) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()
RETURNING id, org_id, config_type, account_id, created_at, updated_at`, orgID, configType, accountID).
		Scan(&c.ID, &c.OrgID, &c.ConfigType, &c.AccountID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Configuration{}, fmt.Errorf("accounts: %w: account %d", shared.ErrNotFound, accountID)
		}
		return Configuration{}, err
	}
	return c, nil
}

// ListConfigurations returns all role mappings for the organization.
func (r *Repository) ListConfigurations(ctx context.Context, orgID int64) ([]Configuration, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, config_type, account_id, created_at, updated_at
FROM account_configurations WHERE org_id=$1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var configs []Configuration
	for rows.Next() {
		var c Configuration
		if err := rows.Scan(&c.ID, &c.OrgID, &c.ConfigType, &c.AccountID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// GetAccount loads one account scoped to the organization.
func (r *Repository) GetAccount(ctx context.Context, orgID, accountID int64) (Account, error) {
	var (
		a       Account
		balance string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, org_id, code, name, category, balance::text, is_active, created_at, updated_at
FROM accounts WHERE org_id=$1 AND id=$2`, orgID, accountID).
		Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Category, &balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// ListAccounts returns the organization's chart of accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, code, name, category, balance::text, is_active, created_at, updated_at
FROM accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var (
			a       Account
			balance string
		)
		if err := rows.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Category, &balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

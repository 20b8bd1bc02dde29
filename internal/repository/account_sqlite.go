package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storecopy-api/internal/model"
	"storecopy-api/internal/plans"
)

// SQLiteAccountRepository implements AccountRepository using SQLite.
// The store's single-writer connection serializes balance mutations; the
// reservation itself is a conditional update, so it can never observe a
// stale balance.
type SQLiteAccountRepository struct {
	db             *sql.DB
	defaultBalance int64
}

// NewSQLiteAccountRepository creates a new SQLite account repository.
// defaultBalance is granted to every shop on first access.
func NewSQLiteAccountRepository(db *sql.DB, defaultBalance int64) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db, defaultBalance: defaultBalance}
}

// GetOrCreate returns the shop's account, creating it on first access.
func (r *SQLiteAccountRepository) GetOrCreate(ctx context.Context, shopDomain string) (*model.Account, error) {
	if shopDomain == "" {
		return nil, fmt.Errorf("missing shop domain for credit lookup")
	}

	if account, err := r.find(ctx, shopDomain); err != nil {
		return nil, err
	} else if account != nil {
		return account, nil
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (shop_domain, credits_balance, current_plan, subscription_id, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, ?)
		ON CONFLICT(shop_domain) DO NOTHING`,
		shopDomain, r.defaultBalance, plans.DefaultPlan, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	account, err := r.find(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account missing after create for %s", shopDomain)
	}
	return account, nil
}

// Reserve atomically decrements the balance, failing when it would go negative.
func (r *SQLiteAccountRepository) Reserve(ctx context.Context, shopDomain string, amount int64) (int64, error) {
	account, err := r.GetOrCreate(ctx, shopDomain)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return account.CreditsBalance, nil
	}

	// Conditional update: either the balance covers the amount and the whole
	// decrement applies, or nothing happens.
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET credits_balance = credits_balance - ?, updated_at = ?
		WHERE shop_domain = ? AND credits_balance >= ?`,
		amount, time.Now().UTC(), shopDomain, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrInsufficientCredits
	}

	var balance int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT credits_balance FROM accounts WHERE shop_domain = ?`, shopDomain).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read balance after reserve: %w", err)
	}
	return balance, nil
}

// Refund returns credits to the shop. No-op for amount <= 0.
func (r *SQLiteAccountRepository) Refund(ctx context.Context, shopDomain string, amount int64) (*model.Account, error) {
	if amount <= 0 {
		return nil, nil
	}
	if _, err := r.GetOrCreate(ctx, shopDomain); err != nil {
		return nil, err
	}
	if err := r.increment(ctx, shopDomain, amount); err != nil {
		return nil, fmt.Errorf("failed to refund credits: %w", err)
	}
	return r.find(ctx, shopDomain)
}

// Add grants credits to the shop. Fails for amount <= 0.
func (r *SQLiteAccountRepository) Add(ctx context.Context, shopDomain string, amount int64) (*model.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := r.GetOrCreate(ctx, shopDomain); err != nil {
		return nil, err
	}
	if err := r.increment(ctx, shopDomain, amount); err != nil {
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}
	return r.find(ctx, shopDomain)
}

// ApplySubscription sets the plan and grants credits once per subscription id.
func (r *SQLiteAccountRepository) ApplySubscription(ctx context.Context, shopDomain, planID, subscriptionID string, creditsToGrant int64) (*model.Account, bool, error) {
	if _, err := r.GetOrCreate(ctx, shopDomain); err != nil {
		return nil, false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx,
		`SELECT subscription_id FROM accounts WHERE shop_domain = ?`, shopDomain).Scan(&current); err != nil {
		return nil, false, fmt.Errorf("failed to read subscription: %w", err)
	}

	granted := current != subscriptionID && creditsToGrant > 0
	grant := int64(0)
	if granted {
		grant = creditsToGrant
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET current_plan = ?, subscription_id = ?, credits_balance = credits_balance + ?, updated_at = ?
		WHERE shop_domain = ?`,
		planID, subscriptionID, grant, time.Now().UTC(), shopDomain)
	if err != nil {
		return nil, false, fmt.Errorf("failed to apply subscription: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit subscription: %w", err)
	}

	account, err := r.find(ctx, shopDomain)
	if err != nil {
		return nil, false, err
	}
	return account, granted, nil
}

func (r *SQLiteAccountRepository) increment(ctx context.Context, shopDomain string, amount int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET credits_balance = credits_balance + ?, updated_at = ? WHERE shop_domain = ?`,
		amount, time.Now().UTC(), shopDomain)
	return err
}

func (r *SQLiteAccountRepository) find(ctx context.Context, shopDomain string) (*model.Account, error) {
	var account model.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, shop_domain, credits_balance, current_plan, subscription_id, created_at, updated_at
		FROM accounts WHERE shop_domain = ?`, shopDomain).Scan(
		&account.ID, &account.ShopDomain, &account.CreditsBalance,
		&account.CurrentPlan, &account.SubscriptionID, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// Ensure SQLiteAccountRepository implements AccountRepository
var _ AccountRepository = (*SQLiteAccountRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storecopy-api/internal/model"
)

// MySQLPurchaseRepository implements PurchaseRepository using MySQL.
type MySQLPurchaseRepository struct {
	db *sql.DB
}

// NewMySQLPurchaseRepository creates a new MySQL purchase repository.
func NewMySQLPurchaseRepository(db *sql.DB) *MySQLPurchaseRepository {
	return &MySQLPurchaseRepository{db: db}
}

const mysqlPurchaseColumns = `charge_id, shop_domain, credits_added, price_usd, type, status, created_at, updated_at`

// UpsertPending creates or refreshes a pending purchase record.
func (r *MySQLPurchaseRepository) UpsertPending(ctx context.Context, purchase *model.CreditPurchase) error {
	if purchase.ChargeID == "" {
		return fmt.Errorf("missing charge id for purchase record")
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_purchases (charge_id, shop_domain, credits_added, price_usd, type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)
		ON DUPLICATE KEY UPDATE
			shop_domain = VALUES(shop_domain),
			credits_added = VALUES(credits_added),
			price_usd = VALUES(price_usd),
			type = VALUES(type),
			status = 'pending',
			updated_at = VALUES(updated_at)`,
		purchase.ChargeID, purchase.ShopDomain, purchase.CreditsAdded,
		purchase.PriceUSD, string(purchase.Type), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert purchase: %w", err)
	}
	return nil
}

// Finalize transitions a purchase out of pending exactly once per charge id.
func (r *MySQLPurchaseRepository) Finalize(ctx context.Context, chargeID string, status model.PurchaseStatus) (*model.CreditPurchase, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credit_purchases
		SET status = ?, updated_at = ?
		WHERE charge_id = ? AND status = 'pending'`,
		string(status), time.Now().UTC(), chargeID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to finalize purchase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	purchase, err := r.FindByChargeID(ctx, chargeID)
	if err != nil {
		return nil, false, err
	}
	return purchase, affected > 0, nil
}

// FindByChargeID returns the purchase record.
func (r *MySQLPurchaseRepository) FindByChargeID(ctx context.Context, chargeID string) (*model.CreditPurchase, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mysqlPurchaseColumns+`
		FROM credit_purchases WHERE charge_id = ?`, chargeID)

	purchase, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find purchase: %w", err)
	}
	return purchase, nil
}

// ListPending returns the shop's pending purchases, oldest first.
func (r *MySQLPurchaseRepository) ListPending(ctx context.Context, shopDomain string) ([]*model.CreditPurchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mysqlPurchaseColumns+`
		FROM credit_purchases
		WHERE shop_domain = ? AND status = 'pending'
		ORDER BY created_at ASC`, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*model.CreditPurchase
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, purchase)
	}
	return purchases, rows.Err()
}

// Ensure MySQLPurchaseRepository implements PurchaseRepository
var _ PurchaseRepository = (*MySQLPurchaseRepository)(nil)

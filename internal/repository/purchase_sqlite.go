package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storecopy-api/internal/model"
)

// SQLitePurchaseRepository implements PurchaseRepository using SQLite.
type SQLitePurchaseRepository struct {
	db *sql.DB
}

// NewSQLitePurchaseRepository creates a new SQLite purchase repository.
func NewSQLitePurchaseRepository(db *sql.DB) *SQLitePurchaseRepository {
	return &SQLitePurchaseRepository{db: db}
}

const sqlitePurchaseColumns = `charge_id, shop_domain, credits_added, price_usd, type, status, created_at, updated_at`

// UpsertPending creates or refreshes a pending purchase record.
func (r *SQLitePurchaseRepository) UpsertPending(ctx context.Context, purchase *model.CreditPurchase) error {
	if purchase.ChargeID == "" {
		return fmt.Errorf("missing charge id for purchase record")
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_purchases (charge_id, shop_domain, credits_added, price_usd, type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)
		ON CONFLICT(charge_id) DO UPDATE SET
			shop_domain = excluded.shop_domain,
			credits_added = excluded.credits_added,
			price_usd = excluded.price_usd,
			type = excluded.type,
			status = 'pending',
			updated_at = excluded.updated_at`,
		purchase.ChargeID, purchase.ShopDomain, purchase.CreditsAdded,
		purchase.PriceUSD, string(purchase.Type), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert purchase: %w", err)
	}
	return nil
}

// Finalize transitions a purchase out of pending exactly once per charge id.
func (r *SQLitePurchaseRepository) Finalize(ctx context.Context, chargeID string, status model.PurchaseStatus) (*model.CreditPurchase, bool, error) {
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
func (r *SQLitePurchaseRepository) FindByChargeID(ctx context.Context, chargeID string) (*model.CreditPurchase, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sqlitePurchaseColumns+`
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
func (r *SQLitePurchaseRepository) ListPending(ctx context.Context, shopDomain string) ([]*model.CreditPurchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sqlitePurchaseColumns+`
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

func scanPurchase(row rowScanner) (*model.CreditPurchase, error) {
	var purchase model.CreditPurchase
	var purchaseType, status string
	var price sql.NullFloat64
	if err := row.Scan(
		&purchase.ChargeID, &purchase.ShopDomain, &purchase.CreditsAdded,
		&price, &purchaseType, &status, &purchase.CreatedAt, &purchase.UpdatedAt); err != nil {
		return nil, err
	}
	if price.Valid {
		purchase.PriceUSD = price.Float64
	}
	purchase.Type = model.PurchaseType(purchaseType)
	purchase.Status = model.PurchaseStatus(status)
	return &purchase, nil
}

// Ensure SQLitePurchaseRepository implements PurchaseRepository
var _ PurchaseRepository = (*SQLitePurchaseRepository)(nil)

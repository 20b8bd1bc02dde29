package repository

import (
	"context"
	"errors"

	"storecopy-api/internal/model"
)

// Sentinel errors shared by all backends.
var (
	// ErrInsufficientCredits means a reservation would drive the balance negative.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount means a credit grant was requested with amount <= 0.
	ErrInvalidAmount = errors.New("credit amount must be positive")

	// ErrNotFound means the requested row does not exist (or is owned by
	// another shop).
	ErrNotFound = errors.New("record not found")
)

// AccountRepository is the credit ledger. It is the only component allowed to
// mutate a shop's balance.
type AccountRepository interface {
	// GetOrCreate returns the shop's account, creating it with the default
	// balance on first access.
	GetOrCreate(ctx context.Context, shopDomain string) (*model.Account, error)

	// Reserve atomically decrements the balance by amount and returns the new
	// balance. Fails with ErrInsufficientCredits without side effects when the
	// balance is too low. amount <= 0 is a no-op returning the current balance.
	Reserve(ctx context.Context, shopDomain string, amount int64) (int64, error)

	// Refund increments the balance by amount. amount <= 0 is a no-op
	// returning nil.
	Refund(ctx context.Context, shopDomain string, amount int64) (*model.Account, error)

	// Add increments the balance by amount. Fails with ErrInvalidAmount when
	// amount <= 0.
	Add(ctx context.Context, shopDomain string, amount int64) (*model.Account, error)

	// ApplySubscription sets the shop's plan and, if subscriptionID was not
	// already applied, grants credits. Returns whether credits were granted.
	ApplySubscription(ctx context.Context, shopDomain, planID, subscriptionID string, credits int64) (*model.Account, bool, error)
}

// JobRepository is the durable bulk-job store.
type JobRepository interface {
	// Create inserts a job in queued status.
	Create(ctx context.Context, job *model.BulkJob) error

	// ClaimNextQueued atomically claims the oldest queued job across all
	// shops, flipping it to running. Returns (nil, nil) when the queue is
	// empty. The claim is a single conditional update so concurrent workers
	// cannot both win the same job.
	ClaimNextQueued(ctx context.Context) (*model.BulkJob, error)

	// SetProgress records processed work items, capped at the job's total.
	SetProgress(ctx context.Context, jobID string, processed int) error

	// MarkCompleted transitions a running job to completed and sets
	// processedItems = totalItems.
	MarkCompleted(ctx context.Context, jobID string) error

	// MarkFailed transitions a non-terminal job to failed with a message.
	MarkFailed(ctx context.Context, jobID, message string) error

	// ListByShop returns the shop's most recent jobs, newest first.
	ListByShop(ctx context.Context, shopDomain string, limit int) ([]*model.BulkJob, error)

	// FindByID returns the job only if it belongs to shopDomain.
	FindByID(ctx context.Context, shopDomain, jobID string) (*model.BulkJob, error)
}

// PurchaseRepository stores credit purchase records keyed by the external
// charge id.
type PurchaseRepository interface {
	// UpsertPending creates or refreshes a pending purchase record.
	UpsertPending(ctx context.Context, purchase *model.CreditPurchase) error

	// Finalize transitions a purchase out of pending. The bool result reports
	// whether this call performed the transition; re-delivery of the same
	// charge returns false so credits are granted exactly once.
	Finalize(ctx context.Context, chargeID string, status model.PurchaseStatus) (*model.CreditPurchase, bool, error)

	// FindByChargeID returns the purchase record.
	FindByChargeID(ctx context.Context, chargeID string) (*model.CreditPurchase, error)

	// ListPending returns the shop's pending purchases, oldest first.
	ListPending(ctx context.Context, shopDomain string) ([]*model.CreditPurchase, error)
}

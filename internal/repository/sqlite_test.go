package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storecopy-api/internal/model"
)

func openTestStore(t *testing.T) (*SQLiteAccountRepository, *SQLiteJobRepository, *SQLitePurchaseRepository) {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteAccountRepository(db, 100), NewSQLiteJobRepository(db), NewSQLitePurchaseRepository(db)
}

func TestAccountGetOrCreate(t *testing.T) {
	accounts, _, _ := openTestStore(t)
	ctx := context.Background()

	account, err := accounts.GetOrCreate(ctx, "shop-a.myshopify.com")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if account.CreditsBalance != 100 {
		t.Errorf("default balance = %d, want 100", account.CreditsBalance)
	}
	if account.CurrentPlan != "FREE" {
		t.Errorf("default plan = %q, want FREE", account.CurrentPlan)
	}

	again, err := accounts.GetOrCreate(ctx, "shop-a.myshopify.com")
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if again.ID != account.ID {
		t.Errorf("GetOrCreate created a second row: %d vs %d", again.ID, account.ID)
	}
}

func TestReserveAndRefund(t *testing.T) {
	accounts, _, _ := openTestStore(t)
	ctx := context.Background()
	shop := "shop-b.myshopify.com"

	balance, err := accounts.Reserve(ctx, shop, 30)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if balance != 70 {
		t.Errorf("balance after reserve = %d, want 70", balance)
	}

	// Overdraw fails atomically with no side effect.
	if _, err := accounts.Reserve(ctx, shop, 71); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("overdraw error = %v, want ErrInsufficientCredits", err)
	}
	account, _ := accounts.GetOrCreate(ctx, shop)
	if account.CreditsBalance != 70 {
		t.Errorf("balance after failed reserve = %d, want 70", account.CreditsBalance)
	}

	// Zero and negative amounts are no-ops returning the current balance.
	if balance, err = accounts.Reserve(ctx, shop, 0); err != nil || balance != 70 {
		t.Errorf("Reserve(0) = (%d, %v), want (70, nil)", balance, err)
	}
	if balance, err = accounts.Reserve(ctx, shop, -5); err != nil || balance != 70 {
		t.Errorf("Reserve(-5) = (%d, %v), want (70, nil)", balance, err)
	}

	refunded, err := accounts.Refund(ctx, shop, 30)
	if err != nil {
		t.Fatalf("Refund failed: %v", err)
	}
	if refunded.CreditsBalance != 100 {
		t.Errorf("balance after refund = %d, want 100", refunded.CreditsBalance)
	}
	if noop, err := accounts.Refund(ctx, shop, 0); err != nil || noop != nil {
		t.Errorf("Refund(0) = (%v, %v), want (nil, nil)", noop, err)
	}
}

func TestAddRejectsNonPositive(t *testing.T) {
	accounts, _, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := accounts.Add(ctx, "shop-c.myshopify.com", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Add(0) error = %v, want ErrInvalidAmount", err)
	}
	account, err := accounts.Add(ctx, "shop-c.myshopify.com", 500)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if account.CreditsBalance != 600 {
		t.Errorf("balance after add = %d, want 600", account.CreditsBalance)
	}
}

func TestConcurrentReservationsNeverOverdraw(t *testing.T) {
	accounts, _, _ := openTestStore(t)
	ctx := context.Background()
	shop := "shop-race.myshopify.com"

	if _, err := accounts.GetOrCreate(ctx, shop); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	const workers = 20
	const amount = 10 // 20 * 10 = 200 requested against a balance of 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := int64(0)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := accounts.Reserve(ctx, shop, amount); err == nil {
				mu.Lock()
				reserved += amount
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if reserved > 100 {
		t.Errorf("sum of successful reservations = %d, exceeds initial balance 100", reserved)
	}
	account, _ := accounts.GetOrCreate(ctx, shop)
	if account.CreditsBalance < 0 {
		t.Errorf("balance went negative: %d", account.CreditsBalance)
	}
	if account.CreditsBalance+reserved != 100 {
		t.Errorf("balance %d + reserved %d != 100", account.CreditsBalance, reserved)
	}
}

func TestApplySubscriptionIdempotent(t *testing.T) {
	accounts, _, _ := openTestStore(t)
	ctx := context.Background()
	shop := "shop-d.myshopify.com"

	account, granted, err := accounts.ApplySubscription(ctx, shop, "GROWTH", "sub_1", 13000)
	if err != nil {
		t.Fatalf("ApplySubscription failed: %v", err)
	}
	if !granted {
		t.Error("first application should grant credits")
	}
	if account.CreditsBalance != 100+13000 {
		t.Errorf("balance = %d, want %d", account.CreditsBalance, 100+13000)
	}
	if account.CurrentPlan != "GROWTH" {
		t.Errorf("plan = %q, want GROWTH", account.CurrentPlan)
	}

	account, granted, err = accounts.ApplySubscription(ctx, shop, "GROWTH", "sub_1", 13000)
	if err != nil {
		t.Fatalf("second ApplySubscription failed: %v", err)
	}
	if granted {
		t.Error("re-delivery of the same subscription must not grant again")
	}
	if account.CreditsBalance != 100+13000 {
		t.Errorf("balance after re-delivery = %d, want %d", account.CreditsBalance, 100+13000)
	}
}

func newQueuedJob(shop, id string, createdAt time.Time) *model.BulkJob {
	return &model.BulkJob{
		ID:         id,
		ShopDomain: shop,
		Type:       model.JobTypeProducts,
		Status:     model.JobStatusQueued,
		Config: model.JobConfig{
			Task:       model.TaskProductCopy,
			ProductIDs: []string{"gid://shopify/Product/1"},
			Settings:   model.JobSettings{Fields: []string{"title"}},
			CreditCost: 1,
		},
		TotalItems: 1,
		CreatedAt:  createdAt,
	}
}

func TestClaimNextQueuedIsFIFOAcrossShops(t *testing.T) {
	_, jobs, _ := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, spec := range []struct{ shop, id string }{
		{"shop-1.myshopify.com", "job-oldest"},
		{"shop-2.myshopify.com", "job-middle"},
		{"shop-1.myshopify.com", "job-newest"},
	} {
		if err := jobs.Create(ctx, newQueuedJob(spec.shop, spec.id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Create(%s) failed: %v", spec.id, err)
		}
	}

	for _, want := range []string{"job-oldest", "job-middle", "job-newest"} {
		claimed, err := jobs.ClaimNextQueued(ctx)
		if err != nil {
			t.Fatalf("ClaimNextQueued failed: %v", err)
		}
		if claimed == nil {
			t.Fatalf("expected to claim %s, queue was empty", want)
		}
		if claimed.ID != want {
			t.Errorf("claimed %s, want %s", claimed.ID, want)
		}
		if claimed.Status != model.JobStatusRunning {
			t.Errorf("claimed job status = %s, want running", claimed.Status)
		}
	}

	empty, err := jobs.ClaimNextQueued(ctx)
	if err != nil {
		t.Fatalf("ClaimNextQueued on empty queue failed: %v", err)
	}
	if empty != nil {
		t.Errorf("expected empty queue, claimed %s", empty.ID)
	}
}

func TestProgressIsCappedAndStatusMovesForward(t *testing.T) {
	_, jobs, _ := openTestStore(t)
	ctx := context.Background()
	shop := "shop-e.myshopify.com"

	job := newQueuedJob(shop, "job-1", time.Now().UTC())
	job.TotalItems = 10
	if err := jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := jobs.ClaimNextQueued(ctx); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if err := jobs.SetProgress(ctx, "job-1", 50); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	got, err := jobs.FindByID(ctx, shop, "job-1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.ProcessedItems != 10 {
		t.Errorf("processed = %d, want capped at 10", got.ProcessedItems)
	}

	if err := jobs.MarkCompleted(ctx, "job-1"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	// Terminal states are final.
	if err := jobs.MarkFailed(ctx, "job-1", "late failure"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkFailed on completed job = %v, want ErrNotFound", err)
	}
	got, _ = jobs.FindByID(ctx, shop, "job-1")
	if got.Status != model.JobStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}

func TestFindByIDIsShopScoped(t *testing.T) {
	_, jobs, _ := openTestStore(t)
	ctx := context.Background()

	if err := jobs.Create(ctx, newQueuedJob("owner.myshopify.com", "job-x", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := jobs.FindByID(ctx, "intruder.myshopify.com", "job-x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-shop lookup = %v, want ErrNotFound", err)
	}
	if _, err := jobs.FindByID(ctx, "owner.myshopify.com", "job-x"); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
}

func TestPurchaseFinalizeIsIdempotent(t *testing.T) {
	_, _, purchases := openTestStore(t)
	ctx := context.Background()

	purchase := &model.CreditPurchase{
		ChargeID:     "charge_123",
		ShopDomain:   "shop-f.myshopify.com",
		CreditsAdded: 500,
		PriceUSD:     9.99,
		Type:         model.PurchaseOneTime,
	}
	if err := purchases.UpsertPending(ctx, purchase); err != nil {
		t.Fatalf("UpsertPending failed: %v", err)
	}

	first, transitioned, err := purchases.Finalize(ctx, "charge_123", model.PurchaseCompleted)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !transitioned {
		t.Error("first finalize should transition")
	}
	if first.Status != model.PurchaseCompleted {
		t.Errorf("status = %s, want completed", first.Status)
	}

	_, transitioned, err = purchases.Finalize(ctx, "charge_123", model.PurchaseCompleted)
	if err != nil {
		t.Fatalf("second Finalize failed: %v", err)
	}
	if transitioned {
		t.Error("re-delivery must not transition again")
	}

	if _, _, err := purchases.Finalize(ctx, "charge_missing", model.PurchaseCompleted); !errors.Is(err, ErrNotFound) {
		t.Errorf("finalize of unknown charge = %v, want ErrNotFound", err)
	}
}

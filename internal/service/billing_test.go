package service

import (
	"context"
	"net/http"
	"testing"

	"storecopy-api/internal/model"
)

func TestCompletePurchaseGrantsCreditsOnce(t *testing.T) {
	accounts := newFakeAccounts(0)
	purchases := newFakePurchases()
	svc := NewBillingService(accounts, purchases)

	if _, err := svc.RecordPendingPurchase(context.Background(), testShop, "charge-1", 500, 9.99, model.PurchaseOneTime); err != nil {
		t.Fatalf("RecordPendingPurchase: %v", err)
	}

	purchase, err := svc.CompletePurchase(context.Background(), "charge-1", model.PurchaseCompleted)
	if err != nil {
		t.Fatalf("CompletePurchase: %v", err)
	}
	if purchase.Status != model.PurchaseCompleted {
		t.Errorf("Status = %q, want completed", purchase.Status)
	}
	if got := accounts.balance(testShop); got != 500 {
		t.Errorf("balance = %d, want 500", got)
	}

	// Webhook re-delivery: no second grant.
	if _, err := svc.CompletePurchase(context.Background(), "charge-1", model.PurchaseCompleted); err != nil {
		t.Fatalf("second CompletePurchase: %v", err)
	}
	if got := accounts.balance(testShop); got != 500 {
		t.Errorf("balance after re-delivery = %d, want 500", got)
	}
}

func TestCompletePurchaseDeclinedGrantsNothing(t *testing.T) {
	accounts := newFakeAccounts(0)
	purchases := newFakePurchases()
	svc := NewBillingService(accounts, purchases)

	if _, err := svc.RecordPendingPurchase(context.Background(), testShop, "charge-1", 500, 9.99, model.PurchaseOneTime); err != nil {
		t.Fatalf("RecordPendingPurchase: %v", err)
	}

	purchase, err := svc.CompletePurchase(context.Background(), "charge-1", model.PurchaseDeclined)
	if err != nil {
		t.Fatalf("CompletePurchase: %v", err)
	}
	if purchase.Status != model.PurchaseDeclined {
		t.Errorf("Status = %q, want declined", purchase.Status)
	}
	if got := accounts.balance(testShop); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestCompletePurchaseUnknownCharge(t *testing.T) {
	svc := NewBillingService(newFakeAccounts(0), newFakePurchases())

	_, err := svc.CompletePurchase(context.Background(), "ghost", model.PurchaseCompleted)
	if got := statusOf(t, err); got != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestCompletePurchaseRejectsBadInput(t *testing.T) {
	svc := NewBillingService(newFakeAccounts(0), newFakePurchases())

	if _, err := svc.CompletePurchase(context.Background(), "", model.PurchaseCompleted); statusOf(t, err) != http.StatusBadRequest {
		t.Error("empty charge id accepted")
	}
	if _, err := svc.CompletePurchase(context.Background(), "charge-1", model.PurchasePending); statusOf(t, err) != http.StatusBadRequest {
		t.Error("pending accepted as a final status")
	}
}

func TestRecordPendingPurchaseValidation(t *testing.T) {
	svc := NewBillingService(newFakeAccounts(0), newFakePurchases())

	if _, err := svc.RecordPendingPurchase(context.Background(), testShop, "", 10, 1, model.PurchaseOneTime); statusOf(t, err) != http.StatusBadRequest {
		t.Error("empty charge id accepted")
	}
	if _, err := svc.RecordPendingPurchase(context.Background(), testShop, "charge-1", 0, 1, model.PurchaseOneTime); statusOf(t, err) != http.StatusBadRequest {
		t.Error("zero credits accepted")
	}
	if _, err := svc.RecordPendingPurchase(context.Background(), "", "charge-1", 10, 1, model.PurchaseOneTime); statusOf(t, err) != http.StatusBadRequest {
		t.Error("empty shop accepted")
	}
}

func TestApplySubscriptionGrantsPlanCredits(t *testing.T) {
	accounts := newFakeAccounts(0)
	svc := NewBillingService(accounts, newFakePurchases())

	account, granted, err := svc.ApplySubscription(context.Background(), testShop, "STARTER", "sub-1")
	if err != nil {
		t.Fatalf("ApplySubscription: %v", err)
	}
	if granted != 2500 {
		t.Errorf("granted = %d, want 2500", granted)
	}
	if account.CurrentPlan != "STARTER" {
		t.Errorf("CurrentPlan = %q, want STARTER", account.CurrentPlan)
	}

	// Same subscription id applied again grants nothing.
	_, granted, err = svc.ApplySubscription(context.Background(), testShop, "STARTER", "sub-1")
	if err != nil {
		t.Fatalf("second ApplySubscription: %v", err)
	}
	if granted != 0 {
		t.Errorf("repeat granted = %d, want 0", granted)
	}
	if got := accounts.balance(testShop); got != 2500 {
		t.Errorf("balance = %d, want 2500", got)
	}
}

func TestApplySubscriptionUnknownPlanFallsBack(t *testing.T) {
	svc := NewBillingService(newFakeAccounts(0), newFakePurchases())

	account, granted, err := svc.ApplySubscription(context.Background(), testShop, "PLATINUM", "sub-1")
	if err != nil {
		t.Fatalf("ApplySubscription: %v", err)
	}
	if account.CurrentPlan != "FREE" {
		t.Errorf("CurrentPlan = %q, want FREE fallback", account.CurrentPlan)
	}
	if granted != 5 {
		t.Errorf("granted = %d, want FREE plan's 5", granted)
	}
}

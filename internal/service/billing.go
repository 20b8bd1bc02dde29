package service

import (
	"context"
	"errors"
	"log"

	"storecopy-api/internal/model"
	"storecopy-api/internal/plans"
	"storecopy-api/internal/repository"
	"storecopy-api/pkg/apierror"
)

// BillingService records credit purchases and applies subscription grants.
// Both paths are idempotent on their external ids, so webhook re-delivery
// never double-grants credits.
type BillingService struct {
	accounts  repository.AccountRepository
	purchases repository.PurchaseRepository
}

// NewBillingService creates the billing service.
func NewBillingService(accounts repository.AccountRepository, purchases repository.PurchaseRepository) *BillingService {
	return &BillingService{
		accounts:  accounts,
		purchases: purchases,
	}
}

// RecordPendingPurchase stores a purchase in pending status before the
// merchant is sent to the billing confirmation screen. Re-recording the same
// charge refreshes the pending row.
func (s *BillingService) RecordPendingPurchase(ctx context.Context, shopDomain, chargeID string, creditsToAdd int64, priceUSD float64, purchaseType model.PurchaseType) (*model.CreditPurchase, error) {
	if shopDomain == "" {
		return nil, apierror.BadRequest("Shop domain is required.")
	}
	if chargeID == "" {
		return nil, apierror.BadRequest("Charge id is required.")
	}
	if creditsToAdd <= 0 {
		return nil, apierror.BadRequest("Credits to add must be positive.")
	}
	if purchaseType != model.PurchaseOneTime && purchaseType != model.PurchaseSubscription {
		purchaseType = model.PurchaseOneTime
	}

	if _, err := s.accounts.GetOrCreate(ctx, shopDomain); err != nil {
		log.Printf("[Billing] failed to load account for %s: %v", shopDomain, err)
		return nil, apierror.InternalError("Unable to record purchase.")
	}

	purchase := &model.CreditPurchase{
		ChargeID:     chargeID,
		ShopDomain:   shopDomain,
		CreditsAdded: creditsToAdd,
		PriceUSD:     priceUSD,
		Type:         purchaseType,
		Status:       model.PurchasePending,
	}
	if err := s.purchases.UpsertPending(ctx, purchase); err != nil {
		log.Printf("[Billing] failed to record purchase %s for %s: %v", chargeID, shopDomain, err)
		return nil, apierror.InternalError("Unable to record purchase.")
	}

	log.Printf("[Billing] recorded pending purchase %s for %s (%d credits)", chargeID, shopDomain, creditsToAdd)
	return s.purchases.FindByChargeID(ctx, chargeID)
}

// CompletePurchase finalizes a pending purchase. Credits are granted only
// when this call performs the pending -> completed transition; repeats and
// declined or errored outcomes grant nothing.
func (s *BillingService) CompletePurchase(ctx context.Context, chargeID string, status model.PurchaseStatus) (*model.CreditPurchase, error) {
	if chargeID == "" {
		return nil, apierror.BadRequest("Charge id is required.")
	}
	switch status {
	case model.PurchaseCompleted, model.PurchaseDeclined, model.PurchaseError:
	default:
		return nil, apierror.BadRequest("Status must be one of: completed, declined, error.")
	}

	purchase, transitioned, err := s.purchases.Finalize(ctx, chargeID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("No purchase found for this charge.")
		}
		log.Printf("[Billing] failed to finalize purchase %s: %v", chargeID, err)
		return nil, apierror.InternalError("Unable to finalize purchase.")
	}

	if transitioned && status == model.PurchaseCompleted {
		if _, err := s.accounts.Add(ctx, purchase.ShopDomain, purchase.CreditsAdded); err != nil {
			log.Printf("[Billing] purchase %s finalized but credit grant of %d to %s failed: %v", chargeID, purchase.CreditsAdded, purchase.ShopDomain, err)
			return nil, apierror.InternalError("Purchase recorded but credits were not granted.")
		}
		log.Printf("[Billing] granted %d credits to %s for purchase %s", purchase.CreditsAdded, purchase.ShopDomain, chargeID)
	} else if !transitioned {
		log.Printf("[Billing] purchase %s already finalized, no credits granted", chargeID)
	}

	return purchase, nil
}

// ApplySubscription sets the shop's plan and grants the plan's monthly
// credits once per subscription id. Unknown plan ids fall back to the
// default plan.
func (s *BillingService) ApplySubscription(ctx context.Context, shopDomain, planID, subscriptionID string) (*model.Account, int64, error) {
	if shopDomain == "" {
		return nil, 0, apierror.BadRequest("Shop domain is required.")
	}
	if subscriptionID == "" {
		return nil, 0, apierror.BadRequest("Subscription id is required.")
	}

	planKey := planID
	if !plans.Known(planKey) {
		log.Printf("[Billing] unknown plan %q for %s, falling back to %s", planID, shopDomain, plans.DefaultPlan)
		planKey = plans.DefaultPlan
	}
	plan := plans.Get(planKey)

	account, granted, err := s.accounts.ApplySubscription(ctx, shopDomain, plan.ID, subscriptionID, plan.CreditsPerMonth)
	if err != nil {
		log.Printf("[Billing] failed to apply subscription %s for %s: %v", subscriptionID, shopDomain, err)
		return nil, 0, apierror.InternalError("Unable to apply subscription.")
	}

	if granted {
		log.Printf("[Billing] applied %s subscription for %s, granted %d credits", plan.ID, shopDomain, plan.CreditsPerMonth)
		return account, plan.CreditsPerMonth, nil
	}
	log.Printf("[Billing] subscription %s already applied for %s", subscriptionID, shopDomain)
	return account, 0, nil
}

// Balance returns the shop's account, creating it on first access.
func (s *BillingService) Balance(ctx context.Context, shopDomain string) (*model.Account, error) {
	if shopDomain == "" {
		return nil, apierror.BadRequest("Shop domain is required.")
	}
	account, err := s.accounts.GetOrCreate(ctx, shopDomain)
	if err != nil {
		log.Printf("[Billing] failed to load account for %s: %v", shopDomain, err)
		return nil, apierror.InternalError("Unable to load credit balance.")
	}
	return account, nil
}

package handler

import (
	"encoding/json"
	"net/http"

	"storecopy-api/internal/middleware"
	"storecopy-api/internal/model"
	"storecopy-api/internal/service"
	"storecopy-api/pkg/apierror"
	"storecopy-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// BillingHandler handles credit and billing HTTP requests.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Balance handles GET /api/v1/credits
func (h *BillingHandler) Balance(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	account, err := h.billing.Balance(r.Context(), shopDomain)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"shopDomain":     account.ShopDomain,
		"creditsBalance": account.CreditsBalance,
		"currentPlan":    account.CurrentPlan,
	})
}

type recordPurchaseRequest struct {
	ChargeID     string  `json:"chargeId"`
	CreditsToAdd int64   `json:"creditsToAdd"`
	PriceUSD     float64 `json:"priceUsd"`
	Type         string  `json:"type"`
}

// RecordPurchase handles POST /api/v1/billing/purchases
func (h *BillingHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	var req recordPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	purchase, err := h.billing.RecordPendingPurchase(r.Context(), shopDomain, req.ChargeID, req.CreditsToAdd, req.PriceUSD, model.PurchaseType(req.Type))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, purchase)
}

type completePurchaseRequest struct {
	Status string `json:"status"`
}

// CompletePurchase handles POST /api/v1/billing/purchases/{charge_id}/complete
func (h *BillingHandler) CompletePurchase(w http.ResponseWriter, r *http.Request) {
	chargeID := chi.URLParam(r, "charge_id")
	if chargeID == "" {
		response.Error(w, apierror.BadRequest("charge_id is required"))
		return
	}

	var req completePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	purchase, err := h.billing.CompletePurchase(r.Context(), chargeID, model.PurchaseStatus(req.Status))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, purchase)
}

type applySubscriptionRequest struct {
	PlanID         string `json:"planId"`
	SubscriptionID string `json:"subscriptionId"`
}

// ApplySubscription handles POST /api/v1/billing/subscription
func (h *BillingHandler) ApplySubscription(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	var req applySubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	account, granted, err := h.billing.ApplySubscription(r.Context(), shopDomain, req.PlanID, req.SubscriptionID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"shopDomain":     account.ShopDomain,
		"currentPlan":    account.CurrentPlan,
		"creditsBalance": account.CreditsBalance,
		"creditsGranted": granted,
	})
}

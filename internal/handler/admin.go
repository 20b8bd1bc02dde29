package handler

import (
	"net/http"

	"storecopy-api/internal/middleware"
	"storecopy-api/internal/service"
	"storecopy-api/pkg/apierror"
	"storecopy-api/pkg/response"
)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	worker  *service.Worker
	billing *service.BillingService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(worker *service.Worker, billing *service.BillingService) *AdminHandler {
	return &AdminHandler{
		worker:  worker,
		billing: billing,
	}
}

// WorkerStats handles GET /api/v1/admin/worker
func (h *AdminHandler) WorkerStats(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"running": h.worker.IsRunning(),
	})
}

// RunWorkerNow handles POST /api/v1/admin/worker/run. It drains one job
// immediately instead of waiting for the next tick.
func (h *AdminHandler) RunWorkerNow(w http.ResponseWriter, r *http.Request) {
	claimed, err := h.worker.RunOnce(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("worker run failed"))
		return
	}
	response.OK(w, map[string]interface{}{
		"claimed": claimed,
	})
}

// ShopStats handles GET /api/v1/admin/shops/me
func (h *AdminHandler) ShopStats(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	account, err := h.billing.Balance(r.Context(), shopDomain)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, account)
}

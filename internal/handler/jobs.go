package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"storecopy-api/internal/middleware"
	"storecopy-api/internal/repository"
	"storecopy-api/internal/service"
	"storecopy-api/pkg/apierror"
	"storecopy-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

const defaultJobListLimit = 25

// JobsHandler handles bulk-job HTTP requests.
type JobsHandler struct {
	admission *service.AdmissionService
	billing   *service.BillingService
	jobs      repository.JobRepository
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(admission *service.AdmissionService, billing *service.BillingService, jobs repository.JobRepository) *JobsHandler {
	return &JobsHandler{
		admission: admission,
		billing:   billing,
		jobs:      jobs,
	}
}

// Create handles POST /api/v1/jobs
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	var req service.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	job, err := h.admission.SubmitJob(r.Context(), shopDomain, req)
	if err != nil {
		response.Error(w, err)
		return
	}

	account, err := h.billing.Balance(r.Context(), shopDomain)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"job":            service.MapBulkJob(job),
		"creditsBalance": account.CreditsBalance,
	})
}

// List handles GET /api/v1/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	limit := defaultJobListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.Error(w, apierror.BadRequest("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	jobs, err := h.jobs.ListByShop(r.Context(), shopDomain, limit)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list jobs"))
		return
	}

	account, err := h.billing.Balance(r.Context(), shopDomain)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"jobs":           service.MapBulkJobs(jobs),
		"creditsBalance": account.CreditsBalance,
	})
}

// Get handles GET /api/v1/jobs/{job_id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		response.Error(w, apierror.BadRequest("job_id is required"))
		return
	}

	job, err := h.jobs.FindByID(r.Context(), shopDomain, jobID)
	if err != nil {
		if err == repository.ErrNotFound {
			response.Error(w, apierror.NotFound("job not found"))
			return
		}
		response.Error(w, apierror.InternalError("failed to load job"))
		return
	}

	response.OK(w, service.MapBulkJob(job))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"storecopy-api/internal/credits"
	"storecopy-api/internal/model"
	"storecopy-api/internal/plans"
	"storecopy-api/internal/repository"
	"storecopy-api/internal/session"
	"storecopy-api/pkg/apierror"
	"storecopy-api/pkg/uid"
)

// JobRequest is the payload a merchant submits to start a bulk job.
type JobRequest struct {
	ProductIDs    []string           `json:"productIds"`
	CollectionIDs []string           `json:"collectionIds"`
	Settings      *model.JobSettings `json:"settings"`
}

// AdmissionService validates job submissions, reserves credits, and enqueues
// jobs. It is the only path that creates bulk jobs.
type AdmissionService struct {
	accounts repository.AccountRepository
	jobs     repository.JobRepository
	sessions session.Store
}

// NewAdmissionService creates the admission service.
func NewAdmissionService(accounts repository.AccountRepository, jobs repository.JobRepository, sessions session.Store) *AdmissionService {
	return &AdmissionService{
		accounts: accounts,
		jobs:     jobs,
		sessions: sessions,
	}
}

// SubmitJob runs the full admission sequence: sanitize the selection,
// validate it, price the work, reserve credits, and persist the job. The
// reservation happens before the insert; if the insert fails the reserved
// credits are refunded.
func (s *AdmissionService) SubmitJob(ctx context.Context, shopDomain string, req JobRequest) (*model.BulkJob, error) {
	if shopDomain == "" {
		return nil, apierror.BadRequest("Shop domain is required.")
	}
	if req.Settings == nil {
		return nil, apierror.BadRequest("Settings with at least one selected field are required.")
	}

	productIDs := credits.SanitizeIDList(req.ProductIDs)
	collectionIDs := credits.SanitizeIDList(req.CollectionIDs)

	for _, id := range productIDs {
		if !credits.IsValidProductGid(id) {
			return nil, apierror.BadRequest("Product selection contains an invalid id.")
		}
	}
	for _, id := range collectionIDs {
		if !credits.IsValidCollectionGid(id) {
			return nil, apierror.BadRequest("Collection selection contains an invalid id.")
		}
	}

	if len(productIDs) > 0 && len(collectionIDs) > 0 {
		return nil, apierror.BadRequest("Select products or collections, not both at once.")
	}
	if len(productIDs) == 0 && len(collectionIDs) == 0 {
		return nil, apierror.BadRequest("Select at least one product or collection.")
	}

	jobType := model.JobTypeProducts
	if len(collectionIDs) > 0 {
		jobType = model.JobTypeCollections
	}

	task := taskFor(jobType, *req.Settings)
	if task == model.TaskAltText && jobType != model.JobTypeProducts {
		return nil, apierror.BadRequest("Alt text generation is only supported for products.")
	}

	fields := credits.UniqueFields(req.Settings.Fields)
	if len(fields) == 0 {
		return nil, apierror.BadRequest("Settings with at least one selected field are required.")
	}
	allowlist := allowlistFor(task)
	var rejected []string
	for _, field := range fields {
		if !credits.FieldAllowed(field, allowlist) {
			rejected = append(rejected, field)
		}
	}
	if len(rejected) > 0 {
		return nil, apierror.BadRequest(fmt.Sprintf("Unsupported field(s) selected: %s.", strings.Join(rejected, ", ")))
	}

	sess, err := s.sessions.Load(ctx, model.OfflineSessionID(shopDomain))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apierror.ServiceUnavailable("No offline session available for this shop. Reinstall the app and try again.")
		}
		log.Printf("[Admission] failed to load session for %s: %v", shopDomain, err)
		return nil, apierror.InternalError("Unable to create job.")
	}

	account, err := s.accounts.GetOrCreate(ctx, shopDomain)
	if err != nil {
		log.Printf("[Admission] failed to load account for %s: %v", shopDomain, err)
		return nil, apierror.InternalError("Unable to create job.")
	}
	plan := plans.Get(account.CurrentPlan)

	if jobType == model.JobTypeProducts && len(productIDs) > plan.MaxProductsPerJob {
		return nil, apierror.UnprocessableEntity(fmt.Sprintf(
			"Your %s plan allows up to %d products per job. Reduce the selection or upgrade your plan.",
			plan.Title, plan.MaxProductsPerJob))
	}

	settings := sanitizeSettings(task, fields, productIDs, *req.Settings)

	var totalItems int
	switch task {
	case model.TaskAltText:
		totalItems = credits.CalculateAltTextItems(productIDs, credits.Settings{
			TotalImageTargets: settings.TotalImageTargets,
			ImageCounts:       settings.ImageCounts,
		})
		// Freeze the priced target count so the processor and the refund
		// math always agree with what was charged.
		settings.TotalImageTargets = totalItems
	case model.TaskCollectionCopy:
		totalItems = credits.CalculateWorkItems(len(collectionIDs), fields)
	default:
		totalItems = credits.CalculateWorkItems(len(productIDs), fields)
	}
	if totalItems <= 0 {
		return nil, apierror.BadRequest("No eligible items to generate.")
	}

	if _, err := s.accounts.Reserve(ctx, shopDomain, int64(totalItems)); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return nil, apierror.PaymentRequired("Insufficient credits. Purchase more credits to start this job.")
		}
		log.Printf("[Admission] failed to reserve %d credits for %s: %v", totalItems, shopDomain, err)
		return nil, apierror.InternalError("Unable to create job.")
	}

	job := &model.BulkJob{
		ID:         uid.New(),
		ShopDomain: shopDomain,
		Type:       jobType,
		Status:     model.JobStatusQueued,
		Config: model.JobConfig{
			Task:          task,
			ProductIDs:    productIDs,
			CollectionIDs: collectionIDs,
			Settings:      settings,
			SessionID:     sess.ID,
			CreditCost:    totalItems,
		},
		TotalItems: totalItems,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		log.Printf("[Admission] failed to persist job for %s, refunding %d credits: %v", shopDomain, totalItems, err)
		if _, refundErr := s.accounts.Refund(ctx, shopDomain, int64(totalItems)); refundErr != nil {
			log.Printf("[Admission] compensating refund of %d credits for %s failed: %v", totalItems, shopDomain, refundErr)
		}
		return nil, apierror.InternalError("Unable to create job.")
	}

	log.Printf("[Admission] queued %s job %s for %s (%d work items)", task, job.ID, shopDomain, totalItems)
	return job, nil
}

// taskFor resolves the dispatch tag once, at admission. Alt text is signalled
// either by the explicit task value or by the alt_text field selection.
func taskFor(jobType model.JobType, settings model.JobSettings) model.TaskMode {
	if settings.Task == string(model.TaskAltText) {
		return model.TaskAltText
	}
	for _, field := range settings.Fields {
		if strings.TrimSpace(field) == "alt_text" {
			return model.TaskAltText
		}
	}
	if jobType == model.JobTypeCollections {
		return model.TaskCollectionCopy
	}
	return model.TaskProductCopy
}

func allowlistFor(task model.TaskMode) []string {
	switch task {
	case model.TaskAltText:
		return credits.AltTextFieldAllowlist
	case model.TaskCollectionCopy:
		return credits.CollectionFieldAllowlist
	default:
		return credits.ProductFieldAllowlist
	}
}

// sanitizeSettings builds the settings snapshot persisted with the job. Only
// known keys survive, image counts are clamped and restricted to selected
// products, and the image scope defaults to the featured image.
func sanitizeSettings(task model.TaskMode, fields []string, productIDs []string, in model.JobSettings) model.JobSettings {
	out := model.JobSettings{
		Fields:   fields,
		Task:     string(task),
		Tone:     strings.TrimSpace(in.Tone),
		Language: strings.TrimSpace(in.Language),
	}
	if task != model.TaskAltText {
		return out
	}

	out.ImageScope = "main"
	if in.ImageScope == "all" {
		out.ImageScope = "all"
	}
	if len(in.ImageCounts) > 0 {
		counts := make(map[string]int, len(in.ImageCounts))
		for _, id := range productIDs {
			if raw, ok := in.ImageCounts[id]; ok {
				counts[id] = credits.ClampImageTargetCount(raw)
			}
		}
		if len(counts) > 0 {
			out.ImageCounts = counts
		}
	}
	if in.TotalImageTargets > 0 {
		out.TotalImageTargets = in.TotalImageTargets
	}
	return out
}

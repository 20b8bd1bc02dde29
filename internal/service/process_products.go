package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storecopy-api/internal/credits"
	"storecopy-api/internal/model"
	"storecopy-api/internal/repository"
	"storecopy-api/internal/session"
)

// ProductsProcessor generates copy for product fields. Each product is
// best-effort: a failed target is logged and skipped, and progress advances
// regardless so the bar reflects attempted work.
type ProductsProcessor struct {
	resources   ResourceClient
	generator   Generator
	jobs        repository.JobRepository
	sessions    session.Store
	callTimeout time.Duration
}

// NewProductsProcessor creates the product copy processor.
func NewProductsProcessor(resources ResourceClient, generator Generator, jobs repository.JobRepository, sessions session.Store, callTimeout time.Duration) *ProductsProcessor {
	return &ProductsProcessor{
		resources:   resources,
		generator:   generator,
		jobs:        jobs,
		sessions:    sessions,
		callTimeout: callTimeout,
	}
}

// Process runs the job against every selected product.
func (p *ProductsProcessor) Process(ctx context.Context, job *model.BulkJob) error {
	if !p.generator.Configured() {
		return errors.New("generation API is not configured")
	}
	if job.ShopDomain == "" {
		return errors.New("job has no shop domain")
	}

	ids := credits.SanitizeIDList(job.Config.ProductIDs)
	fields := allowedFields(job.Config.Settings.Fields, credits.ProductFieldAllowlist)
	if len(ids) == 0 || len(fields) == 0 {
		return errors.New("job config has no product ids or no valid fields")
	}

	sess, err := p.sessions.Load(ctx, job.Config.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", job.Config.SessionID, err)
	}
	if sess.AccessToken == "" {
		return errors.New("session has no access token")
	}

	processed := job.ProcessedItems
	failures := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job cancelled after %d of %d products: %w", processed/len(fields), len(ids), err)
		}

		if err := p.processOne(ctx, sess, id, fields, job.Config.Settings); err != nil {
			failures++
			log.Printf("[ProductsJob] job %s: product %s failed: %v", job.ID, id, err)
		}

		processed += len(fields)
		if err := p.jobs.SetProgress(ctx, job.ID, processed); err != nil {
			log.Printf("[ProductsJob] job %s: failed to record progress: %v", job.ID, err)
		}
	}

	if failures == len(ids) {
		return fmt.Errorf("all %d products failed", len(ids))
	}
	if failures > 0 {
		log.Printf("[ProductsJob] job %s: %d of %d products failed", job.ID, failures, len(ids))
	}
	return nil
}

func (p *ProductsProcessor) processOne(ctx context.Context, sess *model.Session, productID string, fields []string, settings model.JobSettings) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	product, err := p.resources.Product(fetchCtx, sess, productID)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if product == nil {
		// Deleted between selection and processing. Not a failure.
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	content, err := p.generator.ProductCopy(genCtx, product, settings)
	cancel()
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	update := buildContentUpdate(content, fields)
	if update.Empty() {
		return nil
	}

	applyCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	err = p.resources.UpdateProduct(applyCtx, sess, productID, update)
	cancel()
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

// allowedFields dedupes the requested fields and drops anything outside the
// allow-list. Admission already rejected unknown fields, but jobs stored
// before a field was retired must not crash the worker.
func allowedFields(requested []string, allowlist []string) []string {
	out := make([]string, 0, len(requested))
	for _, field := range credits.UniqueFields(requested) {
		if credits.FieldAllowed(field, allowlist) {
			out = append(out, field)
		}
	}
	return out
}

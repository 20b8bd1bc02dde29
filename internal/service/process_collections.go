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

// CollectionsProcessor generates copy for collection fields. Same best-effort
// shape as the products processor.
type CollectionsProcessor struct {
	resources   ResourceClient
	generator   Generator
	jobs        repository.JobRepository
	sessions    session.Store
	callTimeout time.Duration
}

// NewCollectionsProcessor creates the collection copy processor.
func NewCollectionsProcessor(resources ResourceClient, generator Generator, jobs repository.JobRepository, sessions session.Store, callTimeout time.Duration) *CollectionsProcessor {
	return &CollectionsProcessor{
		resources:   resources,
		generator:   generator,
		jobs:        jobs,
		sessions:    sessions,
		callTimeout: callTimeout,
	}
}

// Process runs the job against every selected collection.
func (p *CollectionsProcessor) Process(ctx context.Context, job *model.BulkJob) error {
	if !p.generator.Configured() {
		return errors.New("generation API is not configured")
	}
	if job.ShopDomain == "" {
		return errors.New("job has no shop domain")
	}

	ids := credits.SanitizeIDList(job.Config.CollectionIDs)
	fields := allowedFields(job.Config.Settings.Fields, credits.CollectionFieldAllowlist)
	if len(ids) == 0 || len(fields) == 0 {
		return errors.New("job config has no collection ids or no valid fields")
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
			return fmt.Errorf("job cancelled after %d of %d collections: %w", processed/len(fields), len(ids), err)
		}

		if err := p.processOne(ctx, sess, id, fields, job.Config.Settings); err != nil {
			failures++
			log.Printf("[CollectionsJob] job %s: collection %s failed: %v", job.ID, id, err)
		}

		processed += len(fields)
		if err := p.jobs.SetProgress(ctx, job.ID, processed); err != nil {
			log.Printf("[CollectionsJob] job %s: failed to record progress: %v", job.ID, err)
		}
	}

	if failures == len(ids) {
		return fmt.Errorf("all %d collections failed", len(ids))
	}
	if failures > 0 {
		log.Printf("[CollectionsJob] job %s: %d of %d collections failed", job.ID, failures, len(ids))
	}
	return nil
}

func (p *CollectionsProcessor) processOne(ctx context.Context, sess *model.Session, collectionID string, fields []string, settings model.JobSettings) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	collection, err := p.resources.Collection(fetchCtx, sess, collectionID)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if collection == nil {
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	content, err := p.generator.CollectionCopy(genCtx, collection, settings)
	cancel()
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	update := buildContentUpdate(content, fields)
	if update.Empty() {
		return nil
	}

	applyCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	err = p.resources.UpdateCollection(applyCtx, sess, collectionID, update)
	cancel()
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

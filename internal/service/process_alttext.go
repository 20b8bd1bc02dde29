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

// AltTextProcessor generates and writes image alt text. Progress counts one
// work item per image; products that turn out to have no reachable images
// still advance the bar by the count they were priced at.
type AltTextProcessor struct {
	resources   ResourceClient
	generator   Generator
	jobs        repository.JobRepository
	sessions    session.Store
	callTimeout time.Duration
}

// NewAltTextProcessor creates the alt-text processor.
func NewAltTextProcessor(resources ResourceClient, generator Generator, jobs repository.JobRepository, sessions session.Store, callTimeout time.Duration) *AltTextProcessor {
	return &AltTextProcessor{
		resources:   resources,
		generator:   generator,
		jobs:        jobs,
		sessions:    sessions,
		callTimeout: callTimeout,
	}
}

// Process runs the job against every selected product's images.
func (p *AltTextProcessor) Process(ctx context.Context, job *model.BulkJob) error {
	if !p.generator.Configured() {
		return errors.New("generation API is not configured")
	}
	if job.ShopDomain == "" {
		return errors.New("job has no shop domain")
	}

	ids := credits.SanitizeIDList(job.Config.ProductIDs)
	if len(ids) == 0 {
		return errors.New("job config has no product ids")
	}

	sess, err := p.sessions.Load(ctx, job.Config.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", job.Config.SessionID, err)
	}
	if sess.AccessToken == "" {
		return errors.New("session has no access token")
	}

	settings := job.Config.Settings
	processed := job.ProcessedItems
	advance := func(items int) {
		if items <= 0 {
			return
		}
		processed += items
		if err := p.jobs.SetProgress(ctx, job.ID, processed); err != nil {
			log.Printf("[AltTextJob] job %s: failed to record progress: %v", job.ID, err)
		}
	}

	failedProducts := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job cancelled with %d of %d items done: %w", processed, job.TotalItems, err)
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		images, err := p.resources.ProductImages(fetchCtx, sess, id)
		cancel()
		if err != nil || images == nil || len(images.Images) == 0 {
			if err != nil {
				failedProducts++
				log.Printf("[AltTextJob] job %s: product %s image fetch failed: %v", job.ID, id, err)
			}
			advance(expectedImageCount(id, settings))
			continue
		}

		for _, image := range selectTargets(images, settings.ImageScope) {
			p.processImage(ctx, sess, job.ID, images, image)
			advance(1)
		}
	}

	if failedProducts == len(ids) {
		return fmt.Errorf("all %d products failed", len(ids))
	}
	return nil
}

// processImage is best-effort: any error is logged and the image skipped.
func (p *AltTextProcessor) processImage(ctx context.Context, sess *model.Session, jobID string, product *model.ProductImages, image model.ProductImage) {
	genCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	altText, err := p.generator.ImageAltText(genCtx, model.AltTextPrompt{
		ProductTitle:    product.Title,
		ProductHandle:   product.Handle,
		ExistingAltText: image.AltText,
		ImageURL:        image.URL,
	})
	cancel()
	if err != nil {
		log.Printf("[AltTextJob] job %s: generation failed for image %s: %v", jobID, image.ID, err)
		return
	}

	altText = normalizeAltText(altText)
	if altText == "" {
		log.Printf("[AltTextJob] job %s: empty alt text generated for image %s, skipping", jobID, image.ID)
		return
	}

	applyCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	err = p.resources.UpdateImageAlt(applyCtx, sess, product.ProductID, image.ID, altText)
	cancel()
	if err != nil {
		log.Printf("[AltTextJob] job %s: alt text update failed for image %s: %v", jobID, image.ID, err)
	}
}

// selectTargets picks the images in scope. "all" takes every image; the
// default takes the featured image, falling back to the first.
func selectTargets(product *model.ProductImages, scope string) []model.ProductImage {
	if scope == "all" {
		return product.Images
	}
	if product.FeaturedImageID != "" {
		for _, image := range product.Images {
			if image.ID == product.FeaturedImageID {
				return []model.ProductImage{image}
			}
		}
	}
	return product.Images[:1]
}

// expectedImageCount is how many work items a skipped product was priced at.
func expectedImageCount(productID string, settings model.JobSettings) int {
	if settings.ImageCounts != nil {
		if count, ok := settings.ImageCounts[productID]; ok {
			return credits.ClampImageTargetCount(count)
		}
	}
	return 1
}

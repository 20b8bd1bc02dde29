package service

import (
	"context"
	"strings"

	"storecopy-api/internal/model"
)

// ResourceClient is the store platform surface the processors need. It is
// implemented by the shopify client and by fakes in tests.
type ResourceClient interface {
	Product(ctx context.Context, session *model.Session, productID string) (*model.Product, error)
	UpdateProduct(ctx context.Context, session *model.Session, productID string, update model.ContentUpdate) error
	Collection(ctx context.Context, session *model.Session, collectionID string) (*model.Collection, error)
	UpdateCollection(ctx context.Context, session *model.Session, collectionID string, update model.ContentUpdate) error
	ProductImages(ctx context.Context, session *model.Session, productID string) (*model.ProductImages, error)
	UpdateImageAlt(ctx context.Context, session *model.Session, productID, imageID, altText string) error
}

// Generator produces copy and alt text. Implemented by the openai client.
type Generator interface {
	Configured() bool
	ProductCopy(ctx context.Context, product *model.Product, settings model.JobSettings) (*model.GeneratedContent, error)
	CollectionCopy(ctx context.Context, collection *model.Collection, settings model.JobSettings) (*model.GeneratedContent, error)
	ImageAltText(ctx context.Context, prompt model.AltTextPrompt) (string, error)
}

// Processor handles one claimed job from start to finish. A returned error
// fails the whole job and triggers a full credit refund; per-target failures
// are absorbed inside Process.
type Processor interface {
	Process(ctx context.Context, job *model.BulkJob) error
}

const maxAltTextWords = 15

// normalizeAltText collapses whitespace and caps the result at the word limit.
func normalizeAltText(altText string) string {
	words := strings.Fields(altText)
	if len(words) > maxAltTextWords {
		words = words[:maxAltTextWords]
	}
	return strings.Join(words, " ")
}

// buildContentUpdate maps generated content onto the requested fields,
// skipping fields the generator left empty.
func buildContentUpdate(content *model.GeneratedContent, fields []string) model.ContentUpdate {
	var update model.ContentUpdate
	var seo model.SEO
	seoTouched := false

	for _, field := range fields {
		switch field {
		case "title":
			if strings.TrimSpace(content.Title) != "" {
				update.Title = content.Title
			}
		case "description":
			if strings.TrimSpace(content.DescriptionHTML) != "" {
				update.DescriptionHTML = content.DescriptionHTML
			}
		case "meta_title":
			if strings.TrimSpace(content.MetaTitle) != "" {
				seo.Title = content.MetaTitle
				seoTouched = true
			}
		case "meta_description":
			if strings.TrimSpace(content.MetaDescription) != "" {
				seo.Description = content.MetaDescription
				seoTouched = true
			}
		}
	}
	if seoTouched {
		update.SEO = &seo
	}
	return update
}

// Package credits is the sole authority for credit cost. It is pure math:
// the admission path sizes reservations with it, and the worker trusts the
// totalItems the admission path stored rather than recomputing.
package credits

import "strings"

// MaxImagesPerProduct caps how many images one product can contribute to an
// alt-text job's cost.
const MaxImagesPerProduct = 50

// Field allow-lists per task mode.
var (
	ProductFieldAllowlist    = []string{"title", "description", "meta_title", "meta_description"}
	CollectionFieldAllowlist = []string{"title", "description", "meta_title", "meta_description"}
	AltTextFieldAllowlist    = []string{"alt_text"}
)

const (
	productGidPrefix    = "gid://shopify/Product/"
	collectionGidPrefix = "gid://shopify/Collection/"
)

// SanitizeIDList trims, drops empties, and dedupes while preserving order.
func SanitizeIDList(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// UniqueFields trims, drops empties, and dedupes a field list.
func UniqueFields(fields []string) []string {
	return SanitizeIDList(fields)
}

// CalculateWorkItems returns targetCount * count(distinct non-empty fields),
// or 0 when either side is empty.
func CalculateWorkItems(targetCount int, fields []string) int {
	unique := UniqueFields(fields)
	if targetCount <= 0 || len(unique) == 0 {
		return 0
	}
	return targetCount * len(unique)
}

// ClampImageTargetCount clamps a per-product image count to [0, MaxImagesPerProduct].
func ClampImageTargetCount(value int) int {
	if value <= 0 {
		return 0
	}
	if value > MaxImagesPerProduct {
		return MaxImagesPerProduct
	}
	return value
}

// CalculateAltTextItems returns the work-item count for an alt-text job.
//
// A positive total_image_targets wins, capped at len(ids) * MaxImagesPerProduct.
// Otherwise per-product image counts are clamped and summed, with missing
// entries defaulting to 1. With no hints at all, one image per product.
func CalculateAltTextItems(productIDs []string, settings Settings) int {
	ids := SanitizeIDList(productIDs)
	if len(ids) == 0 {
		return 0
	}

	if settings.TotalImageTargets > 0 {
		maxPossible := len(ids) * MaxImagesPerProduct
		if settings.TotalImageTargets < maxPossible {
			return settings.TotalImageTargets
		}
		return maxPossible
	}

	if settings.ImageCounts != nil {
		sum := 0
		for _, id := range ids {
			if count, ok := settings.ImageCounts[id]; ok {
				sum += ClampImageTargetCount(count)
			} else {
				sum++
			}
		}
		return sum
	}

	return len(ids)
}

// Settings is the subset of job settings the alt-text cost math reads.
type Settings struct {
	TotalImageTargets int
	ImageCounts       map[string]int
}

// IsValidProductGid reports whether an id has the product GID shape.
func IsValidProductGid(id string) bool {
	return strings.HasPrefix(id, productGidPrefix) && len(id) > len(productGidPrefix)
}

// IsValidCollectionGid reports whether an id has the collection GID shape.
func IsValidCollectionGid(id string) bool {
	return strings.HasPrefix(id, collectionGidPrefix) && len(id) > len(collectionGidPrefix)
}

// FieldAllowed reports whether field is in the allow-list.
func FieldAllowed(field string, allowlist []string) bool {
	for _, allowed := range allowlist {
		if field == allowed {
			return true
		}
	}
	return false
}

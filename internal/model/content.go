package model

// SEO holds a resource's search listing fields.
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProductOption is a product option with its values (e.g. Size: S/M/L).
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ProductVariant is a purchasable variant of a product.
type ProductVariant struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	SKU             string            `json:"sku"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

// CollectionRef is a lightweight reference to a collection a product belongs to.
type CollectionRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// ProductRef is a lightweight reference to a product inside a collection.
type ProductRef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ProductType string `json:"product_type,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
}

// Product is the external representation a products job works against.
type Product struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Handle      string            `json:"handle"`
	Status      string            `json:"status"`
	Vendor      string            `json:"vendor"`
	ProductType string            `json:"product_type"`
	Tags        []string          `json:"tags"`
	BodyHTML    string            `json:"body_html"`
	SEO         SEO               `json:"seo"`
	Options     []ProductOption   `json:"options,omitempty"`
	Variants    []ProductVariant  `json:"variants,omitempty"`
	Collections []CollectionRef   `json:"collections,omitempty"`
	Metafields  map[string]string `json:"metafields,omitempty"`
}

// Collection is the external representation a collections job works against.
type Collection struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Handle          string       `json:"handle"`
	DescriptionHTML string       `json:"description_html"`
	SEO             SEO          `json:"seo"`
	ProductsCount   int          `json:"products_count"`
	Products        []ProductRef `json:"products,omitempty"`
}

// ProductImage is a single product image with its current alt text.
type ProductImage struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// ProductImages is the image list for one product.
type ProductImages struct {
	ProductID       string         `json:"product_id"`
	Title           string         `json:"title"`
	Handle          string         `json:"handle"`
	FeaturedImageID string         `json:"featured_image_id,omitempty"`
	Images          []ProductImage `json:"images"`
}

// GeneratedContent is what the generation API returns for a target.
// Only fields the job requested are ever applied, and empty values are skipped.
type GeneratedContent struct {
	Title           string `json:"title,omitempty"`
	DescriptionHTML string `json:"description_html,omitempty"`
	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	AltText         string `json:"alt_text,omitempty"`
}

// AltTextPrompt carries the context for generating one image's alt text.
type AltTextPrompt struct {
	ProductTitle    string
	ProductHandle   string
	ExistingAltText string
	ImageURL        string
}

// ContentUpdate is the subset of fields to write back to a resource.
type ContentUpdate struct {
	Title           string `json:"title,omitempty"`
	DescriptionHTML string `json:"descriptionHtml,omitempty"`
	SEO             *SEO   `json:"seo,omitempty"`
}

// Empty reports whether the update would write nothing.
func (u ContentUpdate) Empty() bool {
	return u.Title == "" && u.DescriptionHTML == "" && u.SEO == nil
}

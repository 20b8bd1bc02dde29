// Package shopify is the Resource API client: it reads and writes products,
// collections, and image alt text through the platform's admin GraphQL API,
// plus the REST endpoint for image alt updates.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storecopy-api/internal/model"
)

// Client talks to the merchant platform's admin API on behalf of a shop.
// Every call authenticates with the access token of the session passed in.
type Client struct {
	apiVersion string
	httpClient *http.Client
}

// New creates an admin API client.
func New(apiVersion string) *Client {
	return &Client{
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

const productQuery = `#graphql
query ProductForJob($id: ID!) {
  product(id: $id) {
    id
    title
    handle
    productType
    vendor
    tags
    descriptionHtml
    status
    seo { title description }
    options { name values }
    variants(first: 25) {
      edges { node { id title sku selectedOptions { name value } } }
    }
    collections(first: 10) {
      edges { node { id title handle } }
    }
  }
}`

const productUpdateMutation = `#graphql
mutation ApplyGeneratedProductContent($input: ProductInput!) {
  productUpdate(input: $input) {
    product { id }
    userErrors { field message }
  }
}`

const collectionQuery = `#graphql
query CollectionForJob($id: ID!) {
  collection(id: $id) {
    id
    title
    handle
    descriptionHtml
    seo { title description }
    products(first: 10) {
      edges { node { id title productType vendor } }
    }
  }
}`

const collectionUpdateMutation = `#graphql
mutation ApplyGeneratedCollectionContent($input: CollectionInput!) {
  collectionUpdate(input: $input) {
    collection { id }
    userErrors { field message }
  }
}`

const productImagesQuery = `#graphql
query AltTextProduct($id: ID!) {
  product(id: $id) {
    id
    title
    handle
    featuredImage { id url }
    images(first: 50) {
      edges { node { id url altText } }
    }
  }
}`

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func joinUserErrors(errs []userError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, "; ")
}

// graphql posts a query and returns the data payload.
func (c *Client) graphql(ctx context.Context, session *model.Session, query string, variables map[string]any) (json.RawMessage, error) {
	if session == nil || session.AccessToken == "" {
		return nil, fmt.Errorf("missing access token for admin API call")
	}

	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", session.ShopDomain, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", session.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("admin API returned %d: %s", resp.StatusCode, string(bodyText))
	}

	var parsed graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse admin API response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("admin API errors: %s", strings.Join(messages, "; "))
	}
	return parsed.Data, nil
}

// Product fetches a product by GID. Returns (nil, nil) when it does not exist.
func (c *Client) Product(ctx context.Context, session *model.Session, productID string) (*model.Product, error) {
	data, err := c.graphql(ctx, session, productQuery, map[string]any{"id": productID})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Product *struct {
			ID              string   `json:"id"`
			Title           string   `json:"title"`
			Handle          string   `json:"handle"`
			ProductType     string   `json:"productType"`
			Vendor          string   `json:"vendor"`
			Tags            []string `json:"tags"`
			DescriptionHTML string   `json:"descriptionHtml"`
			Status          string   `json:"status"`
			SEO             struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"seo"`
			Options []struct {
				Name   string   `json:"name"`
				Values []string `json:"values"`
			} `json:"options"`
			Variants struct {
				Edges []struct {
					Node struct {
						ID              string `json:"id"`
						Title           string `json:"title"`
						SKU             string `json:"sku"`
						SelectedOptions []struct {
							Name  string `json:"name"`
							Value string `json:"value"`
						} `json:"selectedOptions"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"variants"`
			Collections struct {
				Edges []struct {
					Node struct {
						ID     string `json:"id"`
						Title  string `json:"title"`
						Handle string `json:"handle"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"collections"`
		} `json:"product"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	if payload.Product == nil {
		return nil, nil
	}

	node := payload.Product
	product := &model.Product{
		ID:          node.ID,
		Title:       node.Title,
		Handle:      node.Handle,
		Status:      node.Status,
		Vendor:      node.Vendor,
		ProductType: node.ProductType,
		Tags:        node.Tags,
		BodyHTML:    node.DescriptionHTML,
		SEO:         model.SEO{Title: node.SEO.Title, Description: node.SEO.Description},
	}
	for _, option := range node.Options {
		product.Options = append(product.Options, model.ProductOption{Name: option.Name, Values: option.Values})
	}
	for _, edge := range node.Variants.Edges {
		variant := model.ProductVariant{ID: edge.Node.ID, Title: edge.Node.Title, SKU: edge.Node.SKU}
		if len(edge.Node.SelectedOptions) > 0 {
			variant.SelectedOptions = make(map[string]string, len(edge.Node.SelectedOptions))
			for _, opt := range edge.Node.SelectedOptions {
				variant.SelectedOptions[opt.Name] = opt.Value
			}
		}
		product.Variants = append(product.Variants, variant)
	}
	for _, edge := range node.Collections.Edges {
		product.Collections = append(product.Collections, model.CollectionRef{
			ID: edge.Node.ID, Title: edge.Node.Title, Handle: edge.Node.Handle,
		})
	}
	return product, nil
}

// UpdateProduct applies generated content to a product.
func (c *Client) UpdateProduct(ctx context.Context, session *model.Session, productID string, update model.ContentUpdate) error {
	input := map[string]any{"id": productID}
	if update.Title != "" {
		input["title"] = update.Title
	}
	if update.DescriptionHTML != "" {
		input["descriptionHtml"] = update.DescriptionHTML
	}
	if update.SEO != nil {
		seo := map[string]any{}
		if update.SEO.Title != "" {
			seo["title"] = update.SEO.Title
		}
		if update.SEO.Description != "" {
			seo["description"] = update.SEO.Description
		}
		input["seo"] = seo
	}

	data, err := c.graphql(ctx, session, productUpdateMutation, map[string]any{"input": input})
	if err != nil {
		return err
	}

	var payload struct {
		ProductUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse product update: %w", err)
	}
	if len(payload.ProductUpdate.UserErrors) > 0 {
		return fmt.Errorf("%s", joinUserErrors(payload.ProductUpdate.UserErrors))
	}
	return nil
}

// Collection fetches a collection by GID. Returns (nil, nil) when it does not exist.
func (c *Client) Collection(ctx context.Context, session *model.Session, collectionID string) (*model.Collection, error) {
	data, err := c.graphql(ctx, session, collectionQuery, map[string]any{"id": collectionID})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Collection *struct {
			ID              string `json:"id"`
			Title           string `json:"title"`
			Handle          string `json:"handle"`
			DescriptionHTML string `json:"descriptionHtml"`
			SEO             struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"seo"`
			Products struct {
				Edges []struct {
					Node struct {
						ID          string `json:"id"`
						Title       string `json:"title"`
						ProductType string `json:"productType"`
						Vendor      string `json:"vendor"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"products"`
		} `json:"collection"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}
	if payload.Collection == nil {
		return nil, nil
	}

	node := payload.Collection
	collection := &model.Collection{
		ID:              node.ID,
		Title:           node.Title,
		Handle:          node.Handle,
		DescriptionHTML: node.DescriptionHTML,
		SEO:             model.SEO{Title: node.SEO.Title, Description: node.SEO.Description},
	}
	for _, edge := range node.Products.Edges {
		collection.Products = append(collection.Products, model.ProductRef{
			ID: edge.Node.ID, Title: edge.Node.Title,
			ProductType: edge.Node.ProductType, Vendor: edge.Node.Vendor,
		})
	}
	collection.ProductsCount = len(collection.Products)
	return collection, nil
}

// UpdateCollection applies generated content to a collection.
func (c *Client) UpdateCollection(ctx context.Context, session *model.Session, collectionID string, update model.ContentUpdate) error {
	input := map[string]any{"id": collectionID}
	if update.Title != "" {
		input["title"] = update.Title
	}
	if update.DescriptionHTML != "" {
		input["descriptionHtml"] = update.DescriptionHTML
	}
	if update.SEO != nil {
		seo := map[string]any{}
		if update.SEO.Title != "" {
			seo["title"] = update.SEO.Title
		}
		if update.SEO.Description != "" {
			seo["description"] = update.SEO.Description
		}
		input["seo"] = seo
	}

	data, err := c.graphql(ctx, session, collectionUpdateMutation, map[string]any{"input": input})
	if err != nil {
		return err
	}

	var payload struct {
		CollectionUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"collectionUpdate"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse collection update: %w", err)
	}
	if len(payload.CollectionUpdate.UserErrors) > 0 {
		return fmt.Errorf("%s", joinUserErrors(payload.CollectionUpdate.UserErrors))
	}
	return nil
}

// ProductImages fetches a product's image list. Returns (nil, nil) when the
// product does not exist.
func (c *Client) ProductImages(ctx context.Context, session *model.Session, productID string) (*model.ProductImages, error) {
	data, err := c.graphql(ctx, session, productImagesQuery, map[string]any{"id": productID})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Product *struct {
			ID            string `json:"id"`
			Title         string `json:"title"`
			Handle        string `json:"handle"`
			FeaturedImage *struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"featuredImage"`
			Images struct {
				Edges []struct {
					Node struct {
						ID      string `json:"id"`
						URL     string `json:"url"`
						AltText string `json:"altText"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"images"`
		} `json:"product"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse product images: %w", err)
	}
	if payload.Product == nil {
		return nil, nil
	}

	node := payload.Product
	images := &model.ProductImages{
		ProductID: node.ID,
		Title:     node.Title,
		Handle:    node.Handle,
	}
	if node.FeaturedImage != nil {
		images.FeaturedImageID = node.FeaturedImage.ID
	}
	for _, edge := range node.Images.Edges {
		if edge.Node.ID == "" || edge.Node.URL == "" {
			continue
		}
		images.Images = append(images.Images, model.ProductImage{
			ID: edge.Node.ID, URL: edge.Node.URL, AltText: edge.Node.AltText,
		})
	}
	return images, nil
}

// UpdateImageAlt writes an image's alt text through the REST admin API.
func (c *Client) UpdateImageAlt(ctx context.Context, session *model.Session, productID, imageID, altText string) error {
	if session == nil || session.AccessToken == "" {
		return fmt.Errorf("missing access token for image alt update")
	}

	productNumericID := numericID(productID)
	imageNumericID := numericID(imageID)
	if productNumericID == "" || imageNumericID == "" {
		return fmt.Errorf("invalid product or image id (%s, %s)", productID, imageID)
	}
	imageIDValue, err := strconv.ParseInt(imageNumericID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid image id %s: %w", imageID, err)
	}

	body, err := json.Marshal(map[string]any{
		"image": map[string]any{
			"id":  imageIDValue,
			"alt": altText,
		},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/products/%s/images/%s.json",
		session.ShopDomain, c.apiVersion, productNumericID, imageNumericID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", session.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image alt update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyText, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("image alt update returned %d: %s", resp.StatusCode, string(bodyText))
	}
	return nil
}

// numericID extracts the trailing numeric id from a GID like
// gid://shopify/ProductImage/123.
func numericID(gid string) string {
	parts := strings.Split(gid, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	for _, r := range last {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return last
}

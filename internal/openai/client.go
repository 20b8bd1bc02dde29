// Package openai is the content generation client. It calls the chat
// completions API in JSON mode and decodes the structured copy it returns.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storecopy-api/internal/config"
	"storecopy-api/internal/model"
)

// Client calls the generation API.
type Client struct {
	apiKey      string
	modelName   string
	temperature float64
	endpoint    string
	httpClient  *http.Client
}

// New creates a generation client from config.
func New(cfg config.OpenAIConfig) *Client {
	temperature := cfg.Temperature
	if temperature < 0 {
		temperature = 0
	}
	if temperature > 1 {
		temperature = 1
	}
	return &Client{
		apiKey:      cfg.APIKey,
		modelName:   cfg.Model,
		temperature: temperature,
		endpoint:    cfg.Endpoint,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Configured reports whether an API key is set. Unconfigured generation is a
// job-fatal condition, not a per-target one.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// message is one chat turn. Content is either a string or a slice of content
// parts (for image inputs).
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// callJSON posts messages and decodes the JSON object the model returns.
func (c *Client) callJSON(ctx context.Context, messages []message, out any) error {
	if !c.Configured() {
		return fmt.Errorf("generation API key is not configured")
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.modelName,
		"temperature":     c.temperature,
		"response_format": map[string]string{"type": "json_object"},
		"messages":        messages,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generation API returned %d: %s", resp.StatusCode, string(bodyText))
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return fmt.Errorf("failed to parse generation response: %w", err)
	}
	if completion.Error != nil {
		return fmt.Errorf("generation API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return fmt.Errorf("generation API returned no choices")
	}

	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("failed to parse generated JSON: %w", err)
	}
	return nil
}

// ProductCopy generates copy for the requested product fields.
func (c *Client) ProductCopy(ctx context.Context, product *model.Product, settings model.JobSettings) (*model.GeneratedContent, error) {
	productJSON, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Write e-commerce copy for the product below. Generate only these fields: %s.
Respect these constraints: title 35-70 characters, meta_title 45-60 characters, meta_description 120-155 characters, description_html valid simple HTML.
%s
Return JSON only with keys from: title, description_html, meta_title, meta_description.

Product:
%s`,
		strings.Join(settings.Fields, ", "), styleInstructions(settings), string(productJSON))

	var content model.GeneratedContent
	err = c.callJSON(ctx, []message{
		{Role: "system", Content: "You are a senior ecommerce copywriter. Keep product facts accurate, write for conversion, and return JSON only."},
		{Role: "user", Content: prompt},
	}, &content)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// CollectionCopy generates copy for the requested collection fields.
func (c *Client) CollectionCopy(ctx context.Context, collection *model.Collection, settings model.JobSettings) (*model.GeneratedContent, error) {
	collectionJSON, err := json.Marshal(collection)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Write e-commerce copy for the collection below. Generate only these fields: %s.
Respect these constraints: title 35-70 characters, meta_title 45-60 characters, meta_description 120-155 characters, description_html valid simple HTML.
%s
Return JSON only with keys from: title, description_html, meta_title, meta_description.

Collection:
%s`,
		strings.Join(settings.Fields, ", "), styleInstructions(settings), string(collectionJSON))

	var content model.GeneratedContent
	err = c.callJSON(ctx, []message{
		{Role: "system", Content: "You are a senior ecommerce copywriter. Describe the collection and its products accurately and return JSON only."},
		{Role: "user", Content: prompt},
	}, &content)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// ImageAltText generates alt text for a product image.
func (c *Client) ImageAltText(ctx context.Context, req model.AltTextPrompt) (string, error) {
	prompt := fmt.Sprintf(`Write concise, descriptive alt text for this product image. Product title: %q (handle: %s). Existing alt text: %q.
Describe what is visible, at most 15 words, no "image of" or "picture of" prefix.
Return JSON only: {"alt_text": "..."}`,
		req.ProductTitle, req.ProductHandle, req.ExistingAltText)

	var result struct {
		AltText string `json:"alt_text"`
	}
	err := c.callJSON(ctx, []message{
		{Role: "system", Content: "You write accessible e-commerce image alt text. Return JSON only."},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: req.ImageURL}},
		}},
	}, &result)
	if err != nil {
		return "", err
	}
	return result.AltText, nil
}

func styleInstructions(settings model.JobSettings) string {
	var parts []string
	if settings.Tone != "" {
		parts = append(parts, fmt.Sprintf("Tone of voice: %s.", settings.Tone))
	}
	if settings.Language != "" {
		parts = append(parts, fmt.Sprintf("Write in %s.", settings.Language))
	}
	return strings.Join(parts, " ")
}

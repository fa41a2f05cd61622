// Package analysis wraps the single Gemini round-trip that turns a
// product photo into a structured description plus four scene prompts.
// One attempt per user request, no retries.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"snapsell-bot/internal/apierr"
)

const serviceName = "gemini"

const defaultModel = "gemini-1.5-flash"

const analysisPrompt = `You are a professional commercial photographer and product marketing expert.

Analyze this product image carefully and return ONLY a valid JSON object (no markdown, no explanation):

{
  "product_en": "concise English product name (e.g. 'ceramic coffee mug', 'leather wallet', 'silk scarf')",
  "product_ru": "название товара по-русски",
  "category": "category in English: clothing/accessories/electronics/food/cosmetics/jewelry/home_decor/toys/sports/other",
  "colors": ["primary color", "secondary color if any"],
  "style": "one word: modern/vintage/luxury/casual/minimalist/bohemian/sporty/classic",
  "material": "main material if visible, else empty string",
  "features": "2-3 key visual characteristics, comma separated",
  "scenes": {
    "display": "hyper-detailed 80-word prompt for studio/shelf scene of THIS EXACT product with these features and colors",
    "lifestyle": "hyper-detailed 80-word prompt for lifestyle/person scene of THIS EXACT product",
    "interior": "hyper-detailed 80-word prompt for home/office interior scene of THIS EXACT product",
    "closeup": "hyper-detailed 80-word prompt for macro/closeup scene of THIS EXACT product"
  }
}

Each scene prompt MUST:
- Start with: "Professional commercial photography,"
- Include exact product description with its specific colors and materials
- Include specific lighting, background, camera angle
- End with: "photorealistic, 8K resolution, sharp focus, commercial product photography"`

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// Analyze sends the image with the strict-JSON instruction prompt and
// decodes the model's answer. The answer may arrive wrapped in
// markdown code fences; those are stripped before parsing.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) (ProductDescription, error) {
	if c.httpClient == nil {
		return ProductDescription{}, errors.New("http client is nil")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	req := generateContentRequest{
		Contents: []content{
			{
				Parts: []part{
					{InlineData: &blob{
						MimeType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(image),
					}},
					{Text: analysisPrompt},
				},
			},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.4,
			MaxOutputTokens: 2000,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return ProductDescription{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ProductDescription{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ProductDescription{}, &apierr.ExternalServiceError{Service: serviceName, Err: err}
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ProductDescription{}, &apierr.ExternalServiceError{Service: serviceName, Err: err}
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Warn("gemini analysis failed", "status", httpResp.StatusCode)
		return ProductDescription{}, &apierr.ExternalServiceError{Service: serviceName, Status: httpResp.StatusCode}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return ProductDescription{}, &apierr.MalformedResponseError{Service: serviceName, Err: err}
	}

	text := firstText(decoded)
	if strings.TrimSpace(text) == "" {
		return ProductDescription{}, &apierr.MalformedResponseError{Service: serviceName, Err: errors.New("empty candidate text")}
	}

	var desc ProductDescription
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &desc); err != nil {
		return ProductDescription{}, &apierr.MalformedResponseError{Service: serviceName, Err: err}
	}

	return desc, nil
}

var codeFenceRegex = regexp.MustCompile("```json|```")

func stripCodeFences(text string) string {
	return strings.TrimSpace(codeFenceRegex.ReplaceAllString(text, ""))
}

func firstText(resp generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

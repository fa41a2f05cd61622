// Package render wraps the Pollinations.AI image endpoint: one GET per
// image, raw bytes back. No retries; a failed render fails the whole
// generation.
package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"snapsell-bot/internal/apierr"
)

const serviceName = "pollinations"

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// Seed derives the render seed for one scene of one user's request.
// Repeated requests for the same user and scene index tend toward the
// same rendering; the external model is not contractually
// deterministic, so this is weak reproducibility, not a guarantee.
func Seed(userID int64, sceneIndex int) int {
	return int(userID%9999) + sceneIndex*1000
}

func (c *Client) Render(ctx context.Context, prompt string, seed, width, height int) ([]byte, error) {
	if c.httpClient == nil {
		return nil, fmt.Errorf("http client is nil")
	}

	query := url.Values{}
	query.Set("width", strconv.Itoa(width))
	query.Set("height", strconv.Itoa(height))
	query.Set("seed", strconv.Itoa(seed))
	query.Set("model", "flux")
	query.Set("nologo", "true")
	query.Set("enhance", "true")

	renderURL := fmt.Sprintf("%s/prompt/%s?%s", c.baseURL, url.PathEscape(prompt), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, renderURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apierr.ExternalServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logger.Warn("render failed", "status", resp.StatusCode, "seed", seed)
		return nil, &apierr.ExternalServiceError{Service: serviceName, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apierr.ExternalServiceError{Service: serviceName, Err: err}
	}
	return data, nil
}

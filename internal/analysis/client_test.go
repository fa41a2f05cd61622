package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapsell-bot/internal/apierr"
)

func geminiEnvelope(text string) string {
	env := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	raw, _ := json.Marshal(env)
	return string(raw)
}

const productJSON = `{
  "product_en": "ceramic coffee mug",
  "product_ru": "керамическая кружка",
  "category": "home_decor",
  "colors": ["white", "blue"],
  "style": "minimalist",
  "material": "ceramic",
  "features": "glossy glaze, curved handle",
  "scenes": {
    "display": "Professional commercial photography, mug on shelf",
    "lifestyle": "Professional commercial photography, person with mug",
    "interior": "Professional commercial photography, mug at home",
    "closeup": "Professional commercial photography, mug macro"
  }
}`

func newTestClient(srv *httptest.Server) *Client {
	return New(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestAnalyzeDecodesProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}

		var req generateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected request shape: %+v", req.Contents)
		}
		if req.Contents[0].Parts[0].InlineData == nil {
			t.Error("first part should carry the image")
		}

		_, _ = w.Write([]byte(geminiEnvelope(productJSON)))
	}))
	defer srv.Close()

	desc, err := newTestClient(srv).Analyze(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if desc.ProductEN != "ceramic coffee mug" {
		t.Errorf("ProductEN = %q", desc.ProductEN)
	}
	if len(desc.Colors) != 2 || desc.Colors[0] != "white" {
		t.Errorf("Colors = %v", desc.Colors)
	}
	if desc.Scenes["closeup"] == "" {
		t.Error("closeup scene prompt missing")
	}
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + productJSON + "\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiEnvelope(fenced)))
	}))
	defer srv.Close()

	desc, err := newTestClient(srv).Analyze(context.Background(), []byte{1}, "image/png")
	if err != nil {
		t.Fatalf("Analyze with fenced response: %v", err)
	}
	if desc.Category != "home_decor" {
		t.Errorf("Category = %q", desc.Category)
	}
}

func TestAnalyzeMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiEnvelope("I could not identify the product, sorry!")))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Analyze(context.Background(), []byte{1}, "image/jpeg")
	var malformed *apierr.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedResponseError", err)
	}
}

func TestAnalyzeEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Analyze(context.Background(), []byte{1}, "image/jpeg")
	var malformed *apierr.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedResponseError", err)
	}
}

func TestAnalyzeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Analyze(context.Background(), []byte{1}, "image/jpeg")
	var external *apierr.ExternalServiceError
	if !errors.As(err, &external) {
		t.Fatalf("err = %v, want ExternalServiceError", err)
	}
	if external.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", external.Status)
	}
}

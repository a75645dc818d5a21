package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain"
)

// chatServer returns an httptest server answering every chat completion with
// the given tool-call arguments.
func chatServer(t *testing.T, arguments string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "extract_search_criteria", "arguments": %q}
					}]
				}
			}]
		}`, arguments)
	}))
}

func newTestExtractor(serverURL string) *Extractor {
	return NewExtractor(&ExtractorConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestExtractor_Extract(t *testing.T) {
	server := chatServer(t, `{
		"city": "warsaw",
		"districts": ["mokotow", "wola"],
		"transaction": "sale",
		"price_max": 300000,
		"rooms": 2,
		"amenities": ["garage"],
		"residual_text": "sunny with a view"
	}`)
	defer server.Close()

	c, err := newTestExtractor(server.URL).Extract(context.Background(), "sunny 2-bedroom with garage in warsaw under 300k")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if c.City != "warsaw" {
		t.Errorf("city = %q", c.City)
	}
	if len(c.Districts) != 2 || c.Districts[0] != "mokotow" {
		t.Errorf("districts = %v", c.Districts)
	}
	if c.PriceMax == nil || *c.PriceMax != 300000 {
		t.Errorf("price_max = %v", c.PriceMax)
	}
	if c.Rooms == nil || *c.Rooms != 2 {
		t.Errorf("rooms = %v", c.Rooms)
	}
	if c.ResidualText != "sunny with a view" {
		t.Errorf("residual_text = %q", c.ResidualText)
	}
}

func TestExtractor_RepairsMalformedJSON(t *testing.T) {
	// Trailing comma — a frequent function-calling artifact.
	server := chatServer(t, `{"city": "warsaw", "rooms": 2,}`)
	defer server.Close()

	c, err := newTestExtractor(server.URL).Extract(context.Background(), "2 rooms warsaw")
	if err != nil {
		t.Fatalf("Extract failed on repairable JSON: %v", err)
	}
	if c.City != "warsaw" || c.Rooms == nil || *c.Rooms != 2 {
		t.Errorf("unexpected criteria: %+v", c)
	}
}

func TestExtractor_NoToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "I cannot help with that."}
			}]
		}`))
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), "query")
	if !errors.Is(err, domain.ErrExtractionUnavailable) {
		t.Fatalf("expected ErrExtractionUnavailable, got %v", err)
	}
}

func TestExtractor_ProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), "query")
	if !errors.Is(err, domain.ErrExtractionUnavailable) {
		t.Fatalf("expected ErrExtractionUnavailable, got %v", err)
	}
}

package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eargai/earg-backend/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.SearchConfig{APIKey: "test-key", BaseURL: url, MaxResults: 4})
}

func TestSearchReturnsRankedSnippets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["q"] != "go generics" {
			t.Errorf("unexpected query: %v", req["q"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]string{
				{"title": "Go Blog", "snippet": "generics landed in 1.18"},
				{"title": "", "link": "https://example.com", "snippet": "type parameters"},
				{"title": "Empty", "snippet": ""},
			},
		})
	}))
	defer srv.Close()

	results := newTestClient(srv.URL).Search(context.Background(), "go generics", 4)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Source != "Go Blog" || results[0].Snippet != "generics landed in 1.18" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Source != "https://example.com" {
		t.Fatalf("expected link fallback as source, got %q", results[1].Source)
	}
}

func TestSearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		organic := make([]map[string]string, 10)
		for i := range organic {
			organic[i] = map[string]string{"title": "t", "snippet": "s"}
		}
		json.NewEncoder(w).Encode(map[string]any{"organic": organic})
	}))
	defer srv.Close()

	results := newTestClient(srv.URL).Search(context.Background(), "anything", 3)
	if len(results) != 3 {
		t.Fatalf("expected results capped at 3, got %d", len(results))
	}
}

func TestSearchFailsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if results := newTestClient(srv.URL).Search(context.Background(), "q", 4); results != nil {
		t.Fatalf("expected nil on provider error, got %v", results)
	}

	srv.Close()
	if results := newTestClient(srv.URL).Search(context.Background(), "q", 4); results != nil {
		t.Fatalf("expected nil on transport error, got %v", results)
	}
}

func TestSearchDisabledWithoutCredential(t *testing.T) {
	client := NewClient(config.SearchConfig{BaseURL: "http://127.0.0.1:1"})
	if results := client.Search(context.Background(), "q", 4); results != nil {
		t.Fatalf("expected nil without credential, got %v", results)
	}
}

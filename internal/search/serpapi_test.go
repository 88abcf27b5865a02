package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSerpAPIProvider_Search(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Result
	}{
		{
			name: "answer box answer",
			body: `{"answer_box":{"answer":"42","link":"https://example.com/a"},"organic_results":[{"snippet":"s","link":"l"}]}`,
			want: Result{Answer: "42", Link: "https://example.com/a"},
		},
		{
			name: "answer box snippet",
			body: `{"answer_box":{"snippet":"Dark matter is matter that does not emit light.","link":"https://example.com/dm"}}`,
			want: Result{Snippet: "Dark matter is matter that does not emit light.", Link: "https://example.com/dm"},
		},
		{
			name: "organic result",
			body: `{"organic_results":[{"snippet":"","link":"skip"},{"snippet":"Top result","link":"https://example.com/top"}]}`,
			want: Result{Snippet: "Top result", Link: "https://example.com/top"},
		},
		{
			name: "nothing usable",
			body: `{"organic_results":[]}`,
			want: Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewSerpAPIProvider("test-key", WithSerpAPIBaseURL(server.URL))
			got, err := provider.Search(context.Background(), "anything")
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Search() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSerpAPIProvider_QueryParameters(t *testing.T) {
	var gotPath, gotQ, gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQ = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("api_key")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	provider := NewSerpAPIProvider("secret", WithSerpAPIBaseURL(server.URL))
	if _, err := provider.Search(context.Background(), "What is 2x + 5 = 15 & why?"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotPath != "/search.json" {
		t.Errorf("path = %q, want /search.json", gotPath)
	}
	if gotQ != "What is 2x + 5 = 15 & why?" {
		t.Errorf("q = %q, want the question round-tripped through URL encoding", gotQ)
	}
	if gotKey != "secret" {
		t.Errorf("api_key = %q, want secret", gotKey)
	}
}

func TestSerpAPIProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-2xx", http.StatusUnauthorized, `{"error":"Invalid API key"}`},
		{"malformed json", http.StatusOK, `<html>`},
		{"error field", http.StatusOK, `{"error":"quota exceeded"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewSerpAPIProvider("k", WithSerpAPIBaseURL(server.URL))
			if _, err := provider.Search(context.Background(), "q"); err == nil {
				t.Fatal("Search() should return an error")
			}
		})
	}
}

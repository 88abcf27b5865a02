package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleProvider_Search(t *testing.T) {
	var gotPath, gotQ, gotKey, gotCX string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQ = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("key")
		gotCX = r.URL.Query().Get("cx")
		w.Write([]byte(`{"items":[{"snippet":"Photosynthesis converts light.","link":"https://example.com/p"}]}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("gkey", "engine-1", WithGoogleBaseURL(server.URL))
	got, err := provider.Search(context.Background(), "what is photosynthesis")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := Result{Snippet: "Photosynthesis converts light.", Link: "https://example.com/p"}
	if got != want {
		t.Errorf("Search() = %+v, want %+v", got, want)
	}
	if gotPath != "/customsearch/v1" {
		t.Errorf("path = %q, want /customsearch/v1", gotPath)
	}
	if gotQ != "what is photosynthesis" || gotKey != "gkey" || gotCX != "engine-1" {
		t.Errorf("query = (q=%q key=%q cx=%q)", gotQ, gotKey, gotCX)
	}
}

func TestGoogleProvider_NoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"searchInformation":{"totalResults":"0"}}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("k", "cx", WithGoogleBaseURL(server.URL))
	got, err := provider.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !got.Empty() {
		t.Errorf("Search() = %+v, want empty", got)
	}
}

func TestGoogleProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	provider := NewGoogleProvider("k", "cx", WithGoogleBaseURL(server.URL))
	if _, err := provider.Search(context.Background(), "q"); err == nil {
		t.Fatal("Search() should return error on API error")
	}
}

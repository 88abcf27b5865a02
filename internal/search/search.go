// Package search provides the online fallback used when a question has no local answer.
package search

import (
	"context"
	"fmt"
	"net/http"
)

// Provider names accepted by NewProvider.
const (
	ProviderSerpAPI = "serpapi"
	ProviderGoogle  = "google"
	ProviderNone    = "none"
)

// Result is the best-effort answer extracted from a search response.
// Answer is set when the provider returned a direct answer box; otherwise
// Snippet and Link describe the top result. A zero Result means nothing usable.
type Result struct {
	Answer  string `json:"answer,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Link    string `json:"link,omitempty"`
}

// Empty reports whether the result carries nothing to show.
func (r Result) Empty() bool {
	return r.Answer == "" && r.Snippet == ""
}

// Provider is the interface every search backend implements.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) (Result, error)
}

// Settings holds credentials and endpoints for all providers. Only the
// fields of the selected provider are read.
type Settings struct {
	SerpAPIKey     string
	SerpAPIBaseURL string
	GoogleAPIKey   string
	GoogleCX       string
	GoogleBaseURL  string
	HTTPClient     *http.Client
}

// NewProvider returns the single configured provider.
func NewProvider(name string, s Settings) (Provider, error) {
	switch name {
	case ProviderSerpAPI:
		if s.SerpAPIKey == "" {
			return nil, fmt.Errorf("serpapi provider requires an API key")
		}
		opts := []SerpAPIOption{}
		if s.SerpAPIBaseURL != "" {
			opts = append(opts, WithSerpAPIBaseURL(s.SerpAPIBaseURL))
		}
		if s.HTTPClient != nil {
			opts = append(opts, WithSerpAPIHTTPClient(s.HTTPClient))
		}
		return NewSerpAPIProvider(s.SerpAPIKey, opts...), nil
	case ProviderGoogle:
		if s.GoogleAPIKey == "" || s.GoogleCX == "" {
			return nil, fmt.Errorf("google provider requires an API key and a search engine id")
		}
		opts := []GoogleOption{}
		if s.GoogleBaseURL != "" {
			opts = append(opts, WithGoogleBaseURL(s.GoogleBaseURL))
		}
		if s.HTTPClient != nil {
			opts = append(opts, WithGoogleHTTPClient(s.HTTPClient))
		}
		return NewGoogleProvider(s.GoogleAPIKey, s.GoogleCX, opts...), nil
	case ProviderNone, "":
		return NopProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown search provider: %q", name)
	}
}

// NopProvider finds nothing. It is used when no search backend is configured.
type NopProvider struct{}

func (NopProvider) Name() string { return ProviderNone }

func (NopProvider) Search(context.Context, string) (Result, error) {
	return Result{}, nil
}

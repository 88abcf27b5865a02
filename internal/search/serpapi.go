package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const defaultSerpAPIBaseURL = "https://serpapi.com"

// SerpAPIProvider implements Provider for the SerpAPI Google search endpoint.
type SerpAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// SerpAPIOption configures a SerpAPIProvider.
type SerpAPIOption func(*SerpAPIProvider)

// WithSerpAPIBaseURL sets the base URL (for testing).
func WithSerpAPIBaseURL(url string) SerpAPIOption {
	return func(p *SerpAPIProvider) {
		p.baseURL = url
	}
}

// WithSerpAPIHTTPClient sets a custom HTTP client.
func WithSerpAPIHTTPClient(client *http.Client) SerpAPIOption {
	return func(p *SerpAPIProvider) {
		p.client = client
	}
}

// NewSerpAPIProvider creates a new SerpAPI provider.
func NewSerpAPIProvider(apiKey string, opts ...SerpAPIOption) *SerpAPIProvider {
	p := &SerpAPIProvider{
		apiKey:  apiKey,
		baseURL: defaultSerpAPIBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type serpAPIResponse struct {
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answer_box"`
	OrganicResults []struct {
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

func (p *SerpAPIProvider) Name() string { return ProviderSerpAPI }

func (p *SerpAPIProvider) Search(ctx context.Context, query string) (Result, error) {
	params := url.Values{
		"q":       {query},
		"api_key": {p.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("serpapi error (status %d): %s", resp.StatusCode, string(body))
	}

	var sr serpAPIResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Result{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if sr.Error != "" {
		return Result{}, fmt.Errorf("serpapi error: %s", sr.Error)
	}

	if ab := sr.AnswerBox; ab != nil {
		if ab.Answer != "" {
			return Result{Answer: ab.Answer, Link: ab.Link}, nil
		}
		if ab.Snippet != "" {
			return Result{Snippet: ab.Snippet, Link: ab.Link}, nil
		}
	}
	for _, r := range sr.OrganicResults {
		if r.Snippet != "" {
			return Result{Snippet: r.Snippet, Link: r.Link}, nil
		}
	}
	return Result{}, nil
}

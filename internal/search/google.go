package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const defaultGoogleBaseURL = "https://www.googleapis.com"

// GoogleProvider implements Provider for the Google Custom Search JSON API.
type GoogleProvider struct {
	apiKey  string
	cx      string
	baseURL string
	client  *http.Client
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleBaseURL sets the base URL (for testing).
func WithGoogleBaseURL(url string) GoogleOption {
	return func(p *GoogleProvider) {
		p.baseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.client = client
	}
}

// NewGoogleProvider creates a Custom Search provider for the search engine cx.
func NewGoogleProvider(apiKey, cx string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:  apiKey,
		cx:      cx,
		baseURL: defaultGoogleBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type googleResponse struct {
	Items []struct {
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

func (p *GoogleProvider) Name() string { return ProviderGoogle }

func (p *GoogleProvider) Search(ctx context.Context, query string) (Result, error) {
	params := url.Values{
		"q":   {query},
		"key": {p.apiKey},
		"cx":  {p.cx},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/customsearch/v1?"+params.Encode(), nil)
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
		return Result{}, fmt.Errorf("google search error (status %d): %s", resp.StatusCode, string(body))
	}

	var gr googleResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return Result{}, fmt.Errorf("unmarshal response: %w", err)
	}
	for _, item := range gr.Items {
		if item.Snippet != "" {
			return Result{Snippet: item.Snippet, Link: item.Link}, nil
		}
	}
	return Result{}, nil
}

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Replies rendered by the Fetcher.
const (
	NotFoundReply = "I couldn't find a specific answer to your question. Could you try rephrasing it?"
	ErrorReply    = "I encountered an error while searching for an answer. Please try again later."
)

// Fetcher turns a provider search into a user-facing reply.
// Fetch never fails: errors are logged and rendered as ErrorReply.
type Fetcher struct {
	provider Provider
}

// NewFetcher creates a Fetcher for provider. A nil provider finds nothing.
func NewFetcher(provider Provider) *Fetcher {
	if provider == nil {
		provider = NopProvider{}
	}
	return &Fetcher{provider: provider}
}

// Provider returns the configured provider.
func (f *Fetcher) Provider() Provider {
	return f.provider
}

// Fetch searches for question once and renders the outcome.
func (f *Fetcher) Fetch(ctx context.Context, question string) string {
	start := time.Now()
	result, err := f.provider.Search(ctx, question)
	if errors.Is(err, context.Canceled) {
		slog.Info("search fallback cancelled",
			"provider", f.provider.Name(),
			"duration", time.Since(start),
			"cause", context.Cause(ctx),
		)
		return ErrorReply
	}
	if err != nil {
		slog.Error("search fallback failed",
			"provider", f.provider.Name(),
			"duration", time.Since(start),
			"error", err,
		)
		return ErrorReply
	}

	slog.Debug("search fallback completed",
		"provider", f.provider.Name(),
		"duration", time.Since(start),
		"empty", result.Empty(),
	)
	return Render(result)
}

// Render formats a search result for display.
func Render(r Result) string {
	switch {
	case r.Answer != "":
		return r.Answer
	case r.Snippet != "" && r.Link != "":
		return fmt.Sprintf("I found this information: %s\n\nSource: %s", r.Snippet, r.Link)
	case r.Snippet != "":
		return "I found this information: " + r.Snippet
	default:
		return NotFoundReply
	}
}

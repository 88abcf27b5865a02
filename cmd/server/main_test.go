package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-ask/internal/agent"
	"github.com/p-n-ai/pai-ask/internal/chat"
	"github.com/p-n-ai/pai-ask/internal/platform/config"
	"github.com/p-n-ai/pai-ask/internal/search"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantJSON  bool
		wantDebug bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, true, false},
		{"text debug", config.LogConfig{Level: "DEBUG", Format: "text"}, false, true},
		{"bad level falls back to info", config.LogConfig{Level: "loud", Format: "json"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(tt.cfg, &buf)
			logger.Debug("debug line")
			logger.Info("info line", "k", "v")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.wantDebug {
				t.Errorf("debug output present = %v, want %v: %s", !tt.wantDebug, tt.wantDebug, out)
			}
			firstLine, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
			if tt.wantJSON != json.Valid([]byte(firstLine)) {
				t.Errorf("JSON output = %v, want %v: %s", !tt.wantJSON, tt.wantJSON, firstLine)
			}
		})
	}
}

func TestNewSearchProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SearchConfig
		wantName string
		wantErr  bool
	}{
		{"serpapi", config.SearchConfig{Provider: "serpapi", SerpAPI: config.SerpAPIConfig{APIKey: "k"}}, "serpapi", false},
		{"google", config.SearchConfig{Provider: "google", Google: config.GoogleConfig{APIKey: "k", CX: "cx"}}, "google", false},
		{"none", config.SearchConfig{Provider: "none"}, "none", false},
		{"serpapi without key", config.SearchConfig{Provider: "serpapi"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newSearchProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newSearchProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}

func TestMessageHandler_DeliversReply(t *testing.T) {
	engine := agent.NewEngine(agent.EngineConfig{})
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("ws", mock)

	handle := newMessageHandler(context.Background(), engine, gw, 0)
	handle(chat.InboundMessage{Channel: "ws", UserID: "u1", RequestID: "r1", Text: "What is gravity?"})

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sent))
	}
	if sent[0].Text != agent.NoSubjectReply || sent[0].RequestID != "r1" || sent[0].Source != "guidance" {
		t.Errorf("sent = %+v", sent[0])
	}
	if len(mock.Typing) != 1 {
		t.Errorf("typing indicators = %d, want 1", len(mock.Typing))
	}
}

func TestMessageHandler_DropsBlankAndStale(t *testing.T) {
	provider := search.NewMockProvider(search.Result{Answer: "late"})
	provider.Block = make(chan struct{})
	engine := agent.NewEngine(agent.EngineConfig{Fetcher: search.NewFetcher(provider)})
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("ws", mock)
	ctx := context.Background()

	handle := newMessageHandler(ctx, engine, gw, 0)
	handle(chat.InboundMessage{Channel: "ws", UserID: "u1", Text: "   "})
	if len(mock.Sent()) != 0 {
		t.Fatal("blank input should not produce a reply")
	}

	handle(chat.InboundMessage{Channel: "ws", UserID: "u1", Text: "/science"})

	done := make(chan struct{})
	go func() {
		handle(chat.InboundMessage{Channel: "ws", UserID: "u1", RequestID: "r1", Text: "What is dark matter?"})
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for engine.InFlight() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("fallback did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	handle(chat.InboundMessage{Channel: "ws", UserID: "u1", Text: "/maths"})
	<-done

	for _, m := range mock.Sent() {
		if m.RequestID == "r1" {
			t.Errorf("stale reply was delivered: %+v", m)
		}
	}
	if got := len(mock.Sent()); got != 2 {
		t.Errorf("sent = %d, want the two subject greetings", got)
	}
}

func TestMessageHandler_WaitsForDelay(t *testing.T) {
	engine := agent.NewEngine(agent.EngineConfig{})
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("ws", mock)

	start := time.Now()
	newMessageHandler(context.Background(), engine, gw, 50*time.Millisecond)(
		chat.InboundMessage{Channel: "ws", UserID: "u1", Text: "/help"},
	)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("reply sent after %v, want at least the typing delay", elapsed)
	}
	if len(mock.Sent()) != 1 {
		t.Errorf("sent = %d, want 1", len(mock.Sent()))
	}
}

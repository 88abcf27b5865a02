// Package chat provides a unified interface for the bot's messaging channels (WebSocket widget, Telegram).
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// InboundMessage is a message received from any channel.
type InboundMessage struct {
	Channel    string
	UserID     string
	ExternalID string
	// RequestID correlates a question with its reply. Channels that cannot
	// supply one leave it empty.
	RequestID string
	Text      string
	Username  string
	FirstName string
	LastName  string
	Language  string
}

// OutboundMessage is a message to send via any channel.
type OutboundMessage struct {
	Channel   string
	UserID    string
	RequestID string
	Text      string
	Source    string // how the answer was produced, e.g. "exact" or "fallback"
	ParseMode string // "Markdown", "HTML", or ""
}

// Channel is the interface each messaging platform must implement.
type Channel interface {
	SendMessage(ctx context.Context, userID string, msg OutboundMessage) error
	SendTyping(ctx context.Context, userID string) error
	Start(ctx context.Context, handler func(InboundMessage)) error
	Stop() error
}

// Gateway routes messages to/from registered channels.
type Gateway struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewGateway creates a new chat gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("chat channel registered", "channel", name)
}

// HasChannel returns true if the named channel is registered.
func (g *Gateway) HasChannel(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.channels[name]
	return ok
}

func (g *Gateway) channel(name string) (Channel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.channels[name]
	if !ok {
		return nil, fmt.Errorf("unknown channel: %s", name)
	}
	return ch, nil
}

// Send dispatches a message to the appropriate channel.
func (g *Gateway) Send(ctx context.Context, msg OutboundMessage) error {
	ch, err := g.channel(msg.Channel)
	if err != nil {
		return err
	}
	return ch.SendMessage(ctx, msg.UserID, msg)
}

// SendTyping sends a typing indicator to the user on the given channel.
func (g *Gateway) SendTyping(ctx context.Context, channel, userID string) error {
	ch, err := g.channel(channel)
	if err != nil {
		return err
	}
	return ch.SendTyping(ctx, userID)
}

// StartAll starts all registered channels with the given message handler.
// Channels call handler on its own goroutine per message, so replies are
// delivered in completion order rather than submission order.
func (g *Gateway) StartAll(ctx context.Context, handler func(InboundMessage)) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, ch := range g.channels {
		slog.Info("starting channel", "channel", name)
		if err := ch.Start(ctx, handler); err != nil {
			return fmt.Errorf("starting channel %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every registered channel and returns the joined errors.
func (g *Gateway) StopAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for name, ch := range g.channels {
		if err := ch.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping channel %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu           sync.Mutex
	SentMessages []OutboundMessage
	Typing       []string
	Handler      func(InboundMessage)
	Stopped      bool
}

func (m *MockChannel) SendMessage(_ context.Context, _ string, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, msg)
	return nil
}

func (m *MockChannel) SendTyping(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Typing = append(m.Typing, userID)
	return nil
}

func (m *MockChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handler = handler
	return nil
}

func (m *MockChannel) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = true
	return nil
}

// Sent returns a copy of the messages sent so far.
func (m *MockChannel) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage(nil), m.SentMessages...)
}

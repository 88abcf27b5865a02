package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-ask/internal/agent"
	"github.com/p-n-ai/pai-ask/internal/chat"
	"github.com/p-n-ai/pai-ask/internal/knowledge"
	"github.com/p-n-ai/pai-ask/internal/platform/cache"
	"github.com/p-n-ai/pai-ask/internal/platform/config"
	"github.com/p-n-ai/pai-ask/internal/platform/database"
	"github.com/p-n-ai/pai-ask/internal/search"
	"github.com/p-n-ai/pai-ask/internal/server"
	"github.com/p-n-ai/pai-ask/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}

	provider, err := newSearchProvider(cfg.Search)
	if err != nil {
		return err
	}
	slog.Info("search provider configured", "provider", provider.Name())

	var (
		checkers []server.Checker
		sessions session.Store = session.NewMemoryStore(cfg.SessionTTL())
		events   agent.EventLogger = agent.NopEventLogger{}
	)

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}
		defer func() { _ = c.Close() }()
		store, err := session.NewRedisStore(c.Client, cfg.SessionTTL())
		if err != nil {
			return err
		}
		sessions = store
		checkers = append(checkers, c)
		slog.Info("using redis session store", "ttl", cfg.SessionTTL())
	}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		events = agent.NewPostgresEventLogger(db.Pool)
		checkers = append(checkers, db)
		slog.Info("recording events in postgres")
	}

	engine := agent.NewEngine(agent.EngineConfig{
		Knowledge: kb,
		Fetcher:   search.NewFetcher(provider),
		Sessions:  sessions,
		Events:    events,
	})

	gw := chat.NewGateway()
	widget := chat.NewWebSocketChannel(cfg.CORS.AllowedOrigins)
	gw.Register(chat.ChannelWebSocket, widget)
	if cfg.Telegram.BotToken != "" {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		gw.Register("telegram", tg)
	}

	if err := gw.StartAll(ctx, newMessageHandler(ctx, engine, gw, cfg.Chat.ReplyDelay)); err != nil {
		return err
	}
	defer func() {
		if err := gw.StopAll(); err != nil {
			slog.Warn("stopping channels", "error", err)
		}
	}()

	api := server.New(server.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}, engine, widget, checkers...)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down", "in_flight", engine.InFlight())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newMessageHandler returns the gateway handler. Each message shows a typing
// indicator for delay, then delivers the engine's reply on the same channel.
// Stale replies and blank messages are dropped.
func newMessageHandler(ctx context.Context, engine *agent.Engine, gw *chat.Gateway, delay time.Duration) func(chat.InboundMessage) {
	return func(msg chat.InboundMessage) {
		if err := gw.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
			slog.Warn("failed to send typing indicator", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
		}

		started := time.Now()
		reply, err := engine.ProcessMessage(ctx, msg)
		if errors.Is(err, agent.ErrEmptyQuestion) {
			return
		}
		if err != nil {
			slog.Error("failed to process message", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
			reply = agent.Reply{RequestID: msg.RequestID, Text: agent.TechnicalErrorReply, Source: agent.SourceGuidance}
		}
		if reply.Stale {
			return
		}

		if wait := delay - time.Since(started); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
		}

		err = gw.Send(ctx, chat.OutboundMessage{
			Channel:   msg.Channel,
			UserID:    msg.UserID,
			RequestID: reply.RequestID,
			Text:      reply.Text,
			Source:    string(reply.Source),
		})
		if err != nil {
			slog.Error("failed to send reply", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
		}
	}
}

func newSearchProvider(cfg config.SearchConfig) (search.Provider, error) {
	return search.NewProvider(cfg.Provider, search.Settings{
		SerpAPIKey:     cfg.SerpAPI.APIKey,
		SerpAPIBaseURL: cfg.SerpAPI.BaseURL,
		GoogleAPIKey:   cfg.Google.APIKey,
		GoogleCX:       cfg.Google.CX,
		GoogleBaseURL:  cfg.Google.BaseURL,
	})
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

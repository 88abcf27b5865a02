// Package config loads application configuration from environment variables.
// All variables use the ASK_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Search        SearchConfig
	Telegram      TelegramConfig
	Chat          ChatConfig
	CORS          CORSConfig
	Log           LogConfig
	KnowledgePath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings for the event log.
// An empty URL disables event persistence.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis settings for the session store.
// An empty URL keeps sessions in memory.
type CacheConfig struct {
	URL      string
	TTLHours int
}

// SearchConfig selects and configures the online fallback provider.
type SearchConfig struct {
	Provider string // "serpapi", "google" or "none"
	SerpAPI  SerpAPIConfig
	Google   GoogleConfig
}

// SerpAPIConfig holds SerpAPI settings.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
}

// GoogleConfig holds Google Custom Search settings.
type GoogleConfig struct {
	APIKey  string
	CX      string
	BaseURL string
}

// TelegramConfig holds Telegram Bot API settings. An empty token disables the channel.
type TelegramConfig struct {
	BotToken string
}

// ChatConfig holds chat presentation settings.
type ChatConfig struct {
	ReplyDelay time.Duration // typing indicator shown before each reply
}

// CORSConfig holds the origins allowed to call the API and open the widget socket.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with ASK_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ASK_SERVER_PORT", 8080),
			Host: envStr("ASK_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("ASK_DATABASE_URL", ""),
			MaxConns: envInt("ASK_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("ASK_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:      envStr("ASK_CACHE_URL", ""),
			TTLHours: envInt("ASK_SESSION_TTL_HOURS", 24),
		},
		Search: SearchConfig{
			Provider: strings.ToLower(envStr("ASK_SEARCH_PROVIDER", "serpapi")),
			SerpAPI: SerpAPIConfig{
				APIKey:  envStr("ASK_SEARCH_SERPAPI_API_KEY", ""),
				BaseURL: envStr("ASK_SEARCH_SERPAPI_URL", "https://serpapi.com"),
			},
			Google: GoogleConfig{
				APIKey:  envStr("ASK_SEARCH_GOOGLE_API_KEY", ""),
				CX:      envStr("ASK_SEARCH_GOOGLE_CX", ""),
				BaseURL: envStr("ASK_SEARCH_GOOGLE_URL", "https://www.googleapis.com"),
			},
		},
		Telegram: TelegramConfig{
			BotToken: envStr("ASK_TELEGRAM_BOT_TOKEN", ""),
		},
		Chat: ChatConfig{
			ReplyDelay: time.Duration(envInt("ASK_CHAT_REPLY_DELAY_MS", 1500)) * time.Millisecond,
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("ASK_CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  envStr("ASK_LOG_LEVEL", "info"),
			Format: envStr("ASK_LOG_FORMAT", "json"),
		},
		KnowledgePath: envStr("ASK_KNOWLEDGE_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Search.Provider {
	case "serpapi":
		if c.Search.SerpAPI.APIKey == "" {
			return fmt.Errorf("ASK_SEARCH_SERPAPI_API_KEY is required when ASK_SEARCH_PROVIDER=serpapi")
		}
	case "google":
		if c.Search.Google.APIKey == "" || c.Search.Google.CX == "" {
			return fmt.Errorf("ASK_SEARCH_GOOGLE_API_KEY and ASK_SEARCH_GOOGLE_CX are required when ASK_SEARCH_PROVIDER=google")
		}
	case "none":
	default:
		return fmt.Errorf("ASK_SEARCH_PROVIDER must be 'serpapi', 'google' or 'none', got %q", c.Search.Provider)
	}

	if c.Chat.ReplyDelay < 0 {
		return fmt.Errorf("ASK_CHAT_REPLY_DELAY_MS must not be negative")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("ASK_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// SessionTTL returns the session expiry for the Redis session store.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Package config loads process configuration from the environment using
// struct tags, following the sibling websocket-gateway cluster's
// caarlos0/env convention instead of hand-rolled os.Getenv calls.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration surface (spec.md §6).
type Config struct {
	// Messaging platform (required)
	MessagingBotToken string `env:"MESSAGING_BOT_TOKEN"`
	MessagingChatID   string `env:"MESSAGING_CHAT_ID"`

	// Per-alert-type topic ids, required: one MESSAGING_TOPIC_<TYPE> each.
	TopicSteam       int `env:"MESSAGING_TOPIC_STEAM_ALERTS"`
	TopicPerformance int `env:"MESSAGING_TOPIC_PERFORMANCE"`
	TopicSystem      int `env:"MESSAGING_TOPIC_SYSTEM"`

	// Upstream
	UpstreamAuthURL   string   `env:"UPSTREAM_AUTH_URL" envDefault:"https://upstream.example.com/ajax/getwebsockettoken"`
	UpstreamStreamURL string   `env:"UPSTREAM_STREAM_URL" envDefault:"wss://upstream.example.com/stream"`
	UpstreamChannels  []string `env:"UPSTREAM_CHANNELS" envSeparator:"," envDefault:"change_xml,ch_goal8_xml"`

	ConnectTimeout        time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	HeartbeatInterval     time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT" envDefault:"90s"`
	TokenRefreshThreshold time.Duration `env:"TOKEN_REFRESH_THRESHOLD" envDefault:"5s"`
	DefaultTokenTTL       time.Duration `env:"DEFAULT_TOKEN_TTL" envDefault:"60s"`

	ReconnectInitialDelay time.Duration `env:"RECONNECT_INITIAL_DELAY" envDefault:"1s"`
	ReconnectMaxDelay     time.Duration `env:"RECONNECT_MAX_DELAY" envDefault:"60s"`
	ReconnectMultiplier   float64       `env:"RECONNECT_MULTIPLIER" envDefault:"2.0"`
	ReconnectMaxAttempts  int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"0"` // 0 = unbounded

	// Steam detector
	SteamConfigPath string `env:"STEAM_CONFIG_PATH" envDefault:""`

	// Audit
	AuditLogPath   string        `env:"AUDIT_LOG_PATH" envDefault:"data/audit.log"`
	AuditDBPath    string        `env:"AUDIT_DB_PATH" envDefault:"data/audit.db"`
	AuditRetention time.Duration `env:"AUDIT_RETENTION" envDefault:"168h"`

	// Optional fan-out
	NatsURL string `env:"NATS_URL" envDefault:""`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (if present) then parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequiredSecretsMissing reports the required env names that are unset, so
// the caller can fail fast with SecretMissing at startup (spec.md §7).
func (c *Config) RequiredSecretsMissing() []string {
	var missing []string
	if c.MessagingBotToken == "" {
		missing = append(missing, "MESSAGING_BOT_TOKEN")
	}
	if c.MessagingChatID == "" {
		missing = append(missing, "MESSAGING_CHAT_ID")
	}
	return missing
}

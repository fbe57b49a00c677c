package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Env            string   `env:"GIN_MODE" envDefault:"debug"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// DatabaseURL wins over the discrete DB_* settings when set.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"payoutclick"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTSecret        string        `env:"JWT_ACCESS_SECRET" envDefault:"default-access-secret"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"default-refresh-secret"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"720h"`

	SkipAuth bool `env:"SKIP_AUTH" envDefault:"false"` // dev only: trust X-User-ID instead of a bearer token

	// Seeded on startup when both are set and no such profile exists.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	Referral ReferralConfig
	Notify   NotifyConfig
}

// ReferralConfig tunes the referral ledger.
type ReferralConfig struct {
	StateSecret       string        `env:"REFERRAL_STATE_SECRET" envDefault:"default-referral-state-secret"`
	StateTTL          time.Duration `env:"REFERRAL_STATE_TTL" envDefault:"15m"`
	ProfileRetries    uint          `env:"REFERRAL_PROFILE_RETRIES" envDefault:"5"`
	ProfileRetryDelay time.Duration `env:"REFERRAL_PROFILE_RETRY_DELAY" envDefault:"1s"`
	NewProfileWindow  time.Duration `env:"REFERRAL_NEW_PROFILE_WINDOW" envDefault:"10s"`
	ApplyRateLimit    int           `env:"REFERRAL_APPLY_RATE_LIMIT" envDefault:"10"`
	ApplyRateWindow   time.Duration `env:"REFERRAL_APPLY_RATE_WINDOW" envDefault:"1m"`
	DeferredTimeout   time.Duration `env:"REFERRAL_DEFERRED_TIMEOUT" envDefault:"30s"`
	NotifyChannel     string        `env:"REFERRAL_NOTIFY_CHANNEL" envDefault:"referral_events"`
}

// NotifyConfig enables notification channels. A channel without its
// credentials stays off.
type NotifyConfig struct {
	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAdminChatID int64         `env:"TELEGRAM_ADMIN_CHAT_ID"`
	SMTPHost            string        `env:"SMTP_HOST"`
	SMTPPort            int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser            string        `env:"SMTP_USER"`
	SMTPPassword        string        `env:"SMTP_PASSWORD"`
	EmailFrom           string        `env:"EMAIL_FROM" envDefault:"noreply@payoutclick.com"`
	QueueSize           int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	Timeout             time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}

func (n NotifyConfig) TelegramEnabled() bool {
	return n.TelegramBotToken != "" && n.TelegramAdminChatID != 0
}

func (n NotifyConfig) EmailEnabled() bool {
	return n.SMTPHost != ""
}

// Load parses the process environment. Callers load .env beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsRelease() bool {
	return c.Env == "release"
}

// DSN returns the pgx connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

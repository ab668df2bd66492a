package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`
	RedisURL       string `envconfig:"REDIS_URL" default:""`

	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"12"`
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"bandhub_session"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"true"`
	AdminEmail    string        `envconfig:"ADMIN_EMAIL" default:""`
	AdminPassword string        `envconfig:"ADMIN_PASSWORD" default:""`

	AuthRateLimit float64 `envconfig:"AUTH_RATE_LIMIT" default:"5"`
	AuthRateBurst int     `envconfig:"AUTH_RATE_BURST" default:"10"`

	GeminiAPIKey          string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel           string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	CollectibleDailyLimit int    `envconfig:"COLLECTIBLE_DAILY_LIMIT" default:"5"`
	CourseDailyLimit      int    `envconfig:"COURSE_DAILY_LIMIT" default:"3"`

	StellarHorizonURL  string `envconfig:"STELLAR_HORIZON_URL" default:"https://horizon-testnet.stellar.org"`
	StellarAssetCode   string `envconfig:"STELLAR_ASSET_CODE" default:"BC"`
	StellarAssetIssuer string `envconfig:"STELLAR_ASSET_ISSUER" default:""`

	SettlementInterval int    `envconfig:"SETTLEMENT_INTERVAL" default:"30"`
	RewardSchedule     string `envconfig:"REWARD_SCHEDULE" default:"@daily"`
}

// Load reads an optional .env file, then configuration from environment variables
// into a Config struct. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SettlementInterval <= 0 {
		return fmt.Errorf("SETTLEMENT_INTERVAL must be a positive number of seconds, got %d", c.SettlementInterval)
	}
	return nil
}

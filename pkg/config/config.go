package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for scanmatch-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// LLM completion endpoint configuration
	LLM LLMConfig `yaml:"llm"`

	// Stripe billing configuration
	Stripe StripeConfig `yaml:"stripe"`

	// Session token configuration
	Auth AuthConfig `yaml:"auth"`

	// Scan quota configuration
	Quota QuotaConfig `yaml:"quota"`

	// Subscription resolution configuration
	Subscription SubscriptionConfig `yaml:"subscription"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"PGPORT" env-default:"5432"`
	User            string        `yaml:"user" env:"PGUSER" env-default:"scanmatch"`
	Password        string        `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database        string        `yaml:"database" env:"PGDATABASE" env-default:"scanmatch_engine"`
	MaxConnections  int32         `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"PGMAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"PGMAX_CONN_IDLE_TIME" env-default:"30m"`
	SSLMode         string        `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// LLMConfig holds the completion endpoint configuration.
// Provider selects the client implementation; "openai" covers any
// OpenAI-compatible endpoint (including self-hosted vLLM).
type LLMConfig struct {
	Provider       string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL        string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model          string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey         string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature    float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.2"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"LLM_REQUEST_TIMEOUT" env-default:"90s"`
}

// StripeConfig holds Stripe billing configuration.
// Price IDs map paid tiers to Stripe prices created in the dashboard.
type StripeConfig struct {
	SecretKey       string `yaml:"-" env:"STRIPE_SECRET_KEY"`     // Secret - not in YAML
	WebhookSecret   string `yaml:"-" env:"STRIPE_WEBHOOK_SECRET"` // Secret - not in YAML
	ProPriceID      string `yaml:"pro_price_id" env:"STRIPE_PRO_PRICE_ID" env-default:""`
	PremiumPriceID  string `yaml:"premium_price_id" env:"STRIPE_PREMIUM_PRICE_ID" env-default:""`
	SuccessURL      string `yaml:"success_url" env:"STRIPE_SUCCESS_URL" env-default:""`
	CancelURL       string `yaml:"cancel_url" env:"STRIPE_CANCEL_URL" env-default:""`
	PortalReturnURL string `yaml:"portal_return_url" env:"STRIPE_PORTAL_RETURN_URL" env-default:""`
}

// AuthConfig holds session token configuration.
type AuthConfig struct {
	// JWTSecret signs session tokens (HS256). Required outside local env.
	JWTSecret string        `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML
	TokenTTL  time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"168h"`
}

// QuotaConfig holds scan quota limits for the free tier.
// Paid tiers are unlimited; anonymous callers get their own counter keyed
// by network address.
type QuotaConfig struct {
	FreeScanLimit      int `yaml:"free_scan_limit" env:"QUOTA_FREE_SCAN_LIMIT" env-default:"5"`
	AnonymousScanLimit int `yaml:"anonymous_scan_limit" env:"QUOTA_ANONYMOUS_SCAN_LIMIT" env-default:"5"`
}

// SubscriptionConfig holds subscription resolution settings.
type SubscriptionConfig struct {
	// RefreshCooldown throttles explicit refreshes against Stripe.
	RefreshCooldown time.Duration `yaml:"refresh_cooldown" env:"SUBSCRIPTION_REFRESH_COOLDOWN" env-default:"30s"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, LLM_API_KEY, STRIPE_SECRET_KEY, STRIPE_WEBHOOK_SECRET,
// JWT_SECRET) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime failures.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && c.Env != "local" {
		return fmt.Errorf("JWT_SECRET is required when ENVIRONMENT is %q", c.Env)
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported llm provider %q (want openai or anthropic)", c.LLM.Provider)
	}
	if c.Quota.FreeScanLimit < 0 || c.Quota.AnonymousScanLimit < 0 {
		return fmt.Errorf("scan limits must not be negative")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// PriceIDForTier returns the Stripe price ID configured for a paid tier.
// Returns empty string for unknown or unpaid tiers.
func (c *StripeConfig) PriceIDForTier(tier string) string {
	switch tier {
	case "pro":
		return c.ProPriceID
	case "premium":
		return c.PremiumPriceID
	default:
		return ""
	}
}

// TierForPriceID maps a Stripe price ID back to the tier it sells.
// Returns empty string for unknown price IDs.
func (c *StripeConfig) TierForPriceID(priceID string) string {
	switch {
	case priceID == "":
		return ""
	case priceID == c.ProPriceID:
		return "pro"
	case priceID == c.PremiumPriceID:
		return "premium"
	default:
		return ""
	}
}

// IsConfigured reports whether billing is usable.
func (c *StripeConfig) IsConfigured() bool {
	return c.SecretKey != ""
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Sessions
	JWTSecret     string
	SessionExpiry time.Duration
	CookieSecure  bool

	// Verification and reset codes
	CodeTTL time.Duration

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string

	// Email
	ResendAPIKey string
	MailFrom     string

	// Recommendations
	OpenAIAPIKey string
	OpenAIAPIURL string
	OpenAIModel  string
	AITimeout    time.Duration
	Recommender  string

	// Admin
	AdminEmails string
	AdminToken  string

	// Server
	Port          string
	CORSOrigins   string
	APIRateLimit  int
	AuthRateLimit int

	LogRetentionDays int
	SeedCatalog      bool
	SentryDSN        string
}

func Load() *Config {
	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "smartshop"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "smartshop.db"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionExpiry: parseDuration(getEnv("SESSION_EXPIRY", "168h"), 168*time.Hour),
		CookieSecure:  parseBool(getEnv("COOKIE_SECURE", "true")),

		CodeTTL: parseDuration(getEnv("CODE_TTL", "15m"), 15*time.Minute),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:     strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		MailFrom:     getEnv("MAIL_FROM", "SmartShop <no-reply@smartshop.local>"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL: getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:    parseDuration(getEnv("AI_TIMEOUT", "30s"), 30*time.Second),
		Recommender:  getEnv("RECOMMENDER", "llm"),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		APIRateLimit:  parseInt(getEnv("API_RATE_LIMIT", "60"), 60),
		AuthRateLimit: parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SeedCatalog:      parseBool(getEnv("SEED_CATALOG", "true")),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBPassword == "" {
			return errors.New("DB_PASSWORD environment variable is required")
		}
	case "sqlite":
	default:
		return errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if c.Recommender != "llm" && c.Recommender != "popularity" {
		return errors.New("RECOMMENDER must be llm or popularity")
	}
	return nil
}

func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// AdminEmailList returns ADMIN_EMAILS split on commas, blanks dropped.
func (c *Config) AdminEmailList() []string {
	if c.AdminEmails == "" {
		return nil
	}
	parts := strings.Split(c.AdminEmails, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, strings.ToLower(trimmed))
		}
	}
	return result
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

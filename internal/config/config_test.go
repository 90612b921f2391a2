package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	t.Setenv("CODE_TTL", "")
	t.Setenv("PAYMENT_CURRENCY", "")
	t.Setenv("AUTH_RATE_LIMIT", "")

	cfg := Load()
	c.Assert(cfg.CodeTTL, qt.Equals, 15*time.Minute)
	c.Assert(cfg.PaymentCurrency, qt.Equals, "usd")
	c.Assert(cfg.AuthRateLimit, qt.Equals, 10)
	c.Assert(cfg.DBDriver, qt.Equals, "postgres")
}

func TestLoadOverrides(t *testing.T) {
	c := qt.New(t)
	t.Setenv("CODE_TTL", "5m")
	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("API_RATE_LIMIT", "not-a-number")
	t.Setenv("COOKIE_SECURE", "false")

	cfg := Load()
	c.Assert(cfg.CodeTTL, qt.Equals, 5*time.Minute)
	c.Assert(cfg.PaymentCurrency, qt.Equals, "eur")
	c.Assert(cfg.APIRateLimit, qt.Equals, 60)
	c.Assert(cfg.CookieSecure, qt.IsFalse)
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	cfg := &Config{DBDriver: "postgres", Recommender: "llm"}
	c.Assert(cfg.Validate(), qt.ErrorMatches, "JWT_SECRET .*")

	cfg.JWTSecret = "secret"
	c.Assert(cfg.Validate(), qt.ErrorMatches, "DB_PASSWORD .*")

	cfg.DBDriver = "sqlite"
	c.Assert(cfg.Validate(), qt.IsNil)

	cfg.Recommender = "magic"
	c.Assert(cfg.Validate(), qt.ErrorMatches, "RECOMMENDER .*")
}

func TestAdminEmailList(t *testing.T) {
	c := qt.New(t)
	cfg := &Config{AdminEmails: " Ops@Shop.io, ,boss@shop.io"}
	c.Assert(cfg.AdminEmailList(), qt.DeepEquals, []string{"ops@shop.io", "boss@shop.io"})
}

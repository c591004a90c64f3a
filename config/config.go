package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dealflow-api/internal/domain/billing"
)

type Config struct {
	Port       string
	AppEnv     string
	AppURL     string
	CORSOrigin string
	DBURL      string
	JWTSecret  string

	LogLevel  string
	LogPretty bool

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeTimeout       time.Duration

	// Prices maps each purchase purpose to the price ids it may be bought with.
	Prices                map[billing.Purpose][]string
	EvaluationMemberPrice string
	EvaluationPublicPrice string

	PriceCacheSize int
	PriceCacheTTL  time.Duration

	EnforceListingPlanLimit bool
	BaseListingAllowance    int
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	e := &env{}

	cfg := &Config{
		Port:       e.get("PORT", "8080"),
		AppEnv:     e.get("APP_ENV", "development"),
		AppURL:     strings.TrimRight(e.get("APP_URL", "http://localhost:3000"), "/"),
		CORSOrigin: e.get("CORS_ORIGIN", "http://localhost:3000"),
		DBURL:      e.must("DB_URL"),
		JWTSecret:  e.must("JWT_SECRET"),

		LogLevel:  e.get("LOG_LEVEL", "info"),
		LogPretty: e.bool("LOG_PRETTY", false),

		StripeSecretKey:     e.must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: e.must("STRIPE_WEBHOOK_SECRET"),
		StripeTimeout:       e.duration("STRIPE_TIMEOUT", 10*time.Second),

		Prices: map[billing.Purpose][]string{
			billing.PurposeBaseMembership: e.list("STRIPE_PRICES_BASE_MEMBERSHIP"),
			billing.PurposeListingPromo:   e.list("STRIPE_PRICES_LISTING_PROMO"),
			billing.PurposeListingPlan:    e.list("STRIPE_PRICES_LISTING_PLAN"),
		},
		EvaluationMemberPrice: e.get("STRIPE_PRICE_EVALUATION_MEMBER", ""),
		EvaluationPublicPrice: e.get("STRIPE_PRICE_EVALUATION_PUBLIC", ""),

		PriceCacheSize: e.int("PRICE_CACHE_SIZE", 256),
		PriceCacheTTL:  e.duration("PRICE_CACHE_TTL", 10*time.Minute),

		EnforceListingPlanLimit: e.bool("ENFORCE_LISTING_PLAN_LIMIT", false),
		BaseListingAllowance:    e.int("BASE_LISTING_ALLOWANCE", 1),
	}

	var evaluation []string
	for _, id := range []string{cfg.EvaluationMemberPrice, cfg.EvaluationPublicPrice} {
		if id != "" {
			evaluation = append(evaluation, id)
		}
	}
	cfg.Prices[billing.PurposeEvaluation] = evaluation

	if cfg.EvaluationPublicPrice == "" {
		e.fail("STRIPE_PRICE_EVALUATION_PUBLIC", "required")
	}
	if cfg.BaseListingAllowance < 0 {
		e.fail("BASE_LISTING_ALLOWANCE", "must not be negative")
	}

	if len(e.problems) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(e.problems, "; "))
	}
	return cfg, nil
}

// env collects every problem so one start-up reports them all.
type env struct {
	problems []string
}

func (e *env) fail(key, msg string) {
	e.problems = append(e.problems, key+": "+msg)
}

func (e *env) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		e.fail(key, "missing required environment variable")
	}
	return v
}

func (e *env) get(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func (e *env) bool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, "invalid boolean")
		return fallback
	}
	return b
}

func (e *env) int(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, "invalid integer")
		return fallback
	}
	return n
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.fail(key, "invalid duration")
		return fallback
	}
	return d
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

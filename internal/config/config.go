package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Slot drivers selectable with SLOT_DRIVER.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

type Config struct {
	HTTPPort        string
	BackendURL      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	SlotDriver    string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string
	SQLitePath    string
	SlotTTL       time.Duration

	KafkaBrokers []string
	PaymentTopic string

	CarouselSize   int
	RelatedLimit   int
	SessionIdleTTL time.Duration
	CookieSecure   bool

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8081/api"),
		RequestTimeout:  p.duration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		SlotDriver:    strings.ToLower(getEnv("SLOT_DRIVER", DriverRedis)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
		SQLitePath:    getEnv("SQLITE_PATH", "storefront.db"),
		SlotTTL:       p.duration("SLOT_TTL", 30*24*time.Hour),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		PaymentTopic: getEnv("PAYMENT_TOPIC", "payment-results"),

		CarouselSize:   p.integer("CAROUSEL_SIZE", 5),
		RelatedLimit:   p.integer("RELATED_LIMIT", 4),
		SessionIdleTTL: p.duration("SESSION_IDLE_TTL", 30*time.Minute),
		CookieSecure:   p.boolean("COOKIE_SECURE", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.SlotDriver {
	case DriverMemory, DriverRedis, DriverMongo, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("SLOT_DRIVER: unknown driver %q", c.SlotDriver))
	}
	if c.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL: must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT: must be positive"))
	}
	if c.SlotTTL < 0 {
		errs = append(errs, errors.New("SLOT_TTL: must not be negative"))
	}
	if c.CarouselSize <= 0 {
		errs = append(errs, errors.New("CAROUSEL_SIZE: must be positive"))
	}
	if c.RelatedLimit <= 0 {
		errs = append(errs, errors.New("RELATED_LIMIT: must be positive"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT: unknown format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects every malformed value so they are reported together.
type parser struct {
	errs []error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

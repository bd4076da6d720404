// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const minSecretLength = 32

// Config is the complete runtime configuration of the storefront service.
type Config struct {
	Port        int
	Environment string
	LogLevel    string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTAccessSecret     string
	JWTAccessExpiration time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	S3Bucket           string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	OTLPEndpoint     string
	TraceSampleRatio float64

	VerificationCodeTTL time.Duration
	MaxFailedLogins     int
}

// Load reads the configuration from environment variables, applying defaults
// for optional values and failing on missing or malformed required ones.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Port:        p.int("PORT", 3000),
		Environment: p.string("APP_ENV", "production"),
		LogLevel:    p.string("LOG_LEVEL", "info"),

		DBHost:     p.string("DB_HOST", "localhost"),
		DBPort:     p.int("DB_PORT", 5432),
		DBUser:     p.string("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD"),
		DBName:     p.string("DB_NAME", "storefront"),
		DBSSLMode:  p.string("DB_SSL_MODE", "disable"),

		JWTAccessSecret:     getenv("JWT_ACCESS_SECRET"),
		JWTAccessExpiration: p.duration("JWT_ACCESS_EXPIRATION", time.Hour),

		RateLimitRPS:   p.float("RATE_LIMIT_RPS", 20),
		RateLimitBurst: p.int("RATE_LIMIT_BURST", 40),

		CORSAllowedOrigins: p.list("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		S3Bucket:           getenv("S3_BUCKET"),
		AWSRegion:          p.string("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY"),

		OTLPEndpoint:     getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio: p.float("OTEL_TRACES_SAMPLE_RATIO", 1),

		VerificationCodeTTL: p.duration("VERIFICATION_CODE_TTL", 15*time.Minute),
		MaxFailedLogins:     p.int("MAX_FAILED_LOGINS", 3),
	}

	if p.err != nil {
		return nil, p.err
	}

	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET must be set")
	}
	if len(cfg.JWTAccessSecret) < minSecretLength {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters", minSecretLength)
	}
	if cfg.JWTAccessExpiration <= 0 {
		return nil, fmt.Errorf("JWT_ACCESS_EXPIRATION must be positive")
	}
	if cfg.MaxFailedLogins < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGINS must be at least 1")
	}
	if cfg.S3Bucket != "" && cfg.AWSRegion == "" {
		return nil, fmt.Errorf("AWS_REGION must be set when S3_BUCKET is configured")
	}

	return cfg, nil
}

// Development reports whether the service runs outside production.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// parser remembers the first malformed value so Load reports one error.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) string(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

// duration accepts Go durations ("15m") and the "1d"/"7d" day form used by
// token expiry settings.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			p.fail(key, v, err)
			return def
		}
		return time.Duration(n) * 24 * time.Hour
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
}

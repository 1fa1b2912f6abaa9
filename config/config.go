package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSessionSecret = "change-me-in-production"

type Config struct {
	Port        string
	Env         string
	BaseURL     string
	CORSOrigins []string
	TrustProxy  bool // honor X-Forwarded-For / X-Real-IP
	LogLevel    string
	LogFormat   string

	MongoURI string
	DBName   string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	GoogleBooksAPIKey string
	CatalogRPS        float64

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LoginRatePerMin int

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

func Load() (*Config, error) {
	ttlHours, err := getInt("SESSION_TTL_HOURS", 168)
	if err != nil {
		return nil, err
	}
	if ttlHours <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", ttlHours)
	}
	secure, err := getBool("COOKIE_SECURE", true)
	if err != nil {
		return nil, err
	}
	rps, err := getFloat("CATALOG_RPS", 5)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	loginRate, err := getInt("LOGIN_RATE_PER_MIN", 10)
	if err != nil {
		return nil, err
	}
	smtpPort, err := getInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	trustProxy, err := getBool("TRUST_PROXY", false)
	if err != nil {
		return nil, err
	}
	port := getEnv("PORT", "8080")

	return &Config{
		Port:        port,
		Env:         getEnv("APP_ENV", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:"+port),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		TrustProxy:  trustProxy,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", ""),

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("MONGODB_DB", "bookclub"),

		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionTTL:    time.Duration(ttlHours) * time.Hour,
		CookieSecure:  secure,

		GoogleBooksAPIKey: getEnv("GOOGLE_BOOKS_API_KEY", ""),
		CatalogRPS:        rps,

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         redisDB,
		LoginRatePerMin: loginRate,

		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", ""),
	}, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RequiredEnvVars are checked at startup; the app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"SESSION_SECRET",
}

// OptionalEnvVars are logged at startup so you can confirm they are loaded when set.
var OptionalEnvVars = []string{
	"PORT",
	"APP_ENV",
	"BASE_URL",
	"TRUST_PROXY",
	"GOOGLE_BOOKS_API_KEY",
	"REDIS_ADDR",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"SMTP_HOST",
	"MAIL_FROM",
}

var secretEnvVars = map[string]bool{
	"SESSION_SECRET":        true,
	"GOOGLE_BOOKS_API_KEY":  true,
	"REDIS_PASSWORD":        true,
	"AWS_SECRET_ACCESS_KEY": true,
	"SMTP_PASSWORD":         true,
}

// ValidateEnv checks that all required env vars are set and logs the status
// of required and optional ones without printing secret values.
func ValidateEnv() error {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		} else {
			slog.Debug("env loaded", "key", key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	for _, key := range OptionalEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		switch {
		case v == "":
			slog.Debug("env not set (optional)", "key", key)
		case secretEnvVars[key]:
			slog.Debug("env loaded", "key", key)
		default:
			slog.Debug("env loaded", "key", key, "value", v)
		}
	}
	secret := os.Getenv("SESSION_SECRET")
	if secret == defaultSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set to a strong secret (not the default %s)", defaultSessionSecret)
	}
	if len(secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters (generate with: openssl rand -base64 32)")
	}
	return nil
}

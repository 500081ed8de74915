package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName  string
	AppEnv   string
	AppURL   string
	Port     string
	Timezone string

	location *time.Location

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Identity
	JWTSecret               string
	JWTExpiry               time.Duration
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN   string
	MetricsUser string
	MetricsPass string

	// HTTP
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	UploadRateLimitRPS float64

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration

	// Jobs
	ReminderTime     string // HH:MM in Timezone, empty disables the reminder job
	RotationInterval time.Duration
	RotationFade     time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:  envString("APP_NAME", "WithYou"),
		AppEnv:   envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:   envRequired("APP_URL"), // Required: base URL for email links
		Port:     envString("PORT", "8090"),
		Timezone: envString("APP_TIMEZONE", "UTC"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/withyou.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Identity
		JWTSecret:               envRequired("JWT_SECRET"),
		JWTExpiry:               envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days
		FirebaseProjectID:       envString("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: envString("FIREBASE_CREDENTIALS_FILE", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN:   envString("SENTRY_DSN", ""),
		MetricsUser: envString("METRICS_USER", ""),
		MetricsPass: envString("METRICS_PASS", ""),

		// HTTP
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:       envFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 20),
		UploadRateLimitRPS: envFloat("UPLOAD_RATE_LIMIT_RPS", 0.5),

		// Storage (S3-compatible - required for proof and boost uploads)
		S3Region:        envRequired("S3_REGION"),
		S3Bucket:        envRequired("S3_BUCKET"),
		S3AccessKey:     envRequired("S3_ACCESS_KEY"),
		S3SecretKey:     envRequired("S3_SECRET_KEY"),
		S3Endpoint:      envString("S3_ENDPOINT", ""),                    // Optional: for non-AWS providers
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 168*time.Hour), // Default: 7 days

		// Jobs
		ReminderTime:     envString("REMINDER_TIME", ""),
		RotationInterval: envDuration("ROTATION_INTERVAL", 16*time.Second),
		RotationFade:     envDuration("ROTATION_FADE", 500*time.Millisecond),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("config invalid timezone", "key", "APP_TIMEZONE", "value", cfg.Timezone, "error", err)
		os.Exit(1)
	}
	cfg.location = loc

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development falls back to email log mode and locally signed identity tokens.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.FirebaseCredentialsFile == "" {
		slog.Error("production deployment requires FIREBASE_CREDENTIALS_FILE",
			"hint", "set APP_ENV=development to accept locally signed tokens")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location is the zone that defines "today" for daily proofs and boosts.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// FirebaseEnabled reports whether ID tokens and push go through Firebase.
func (c *Config) FirebaseEnabled() bool {
	return c.FirebaseCredentialsFile != ""
}

// DevTokensEnabled reports whether locally signed HS256 identity tokens are accepted.
func (c *Config) DevTokensEnabled() bool {
	return c.IsDevelopment() && envBool("DEV_TOKENS", true)
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:  c.AppName,
		AppEnv:   c.AppEnv,
		AppURL:   c.AppURL,
		Port:     c.Port,
		Timezone: c.Timezone,
		location: c.location,

		EmailFrom: c.EmailFrom,

		FirebaseProjectID: c.FirebaseProjectID,

		CORSAllowedOrigins: c.CORSAllowedOrigins,

		S3Endpoint: c.S3Endpoint,

		RotationInterval: c.RotationInterval,
		RotationFade:     c.RotationFade,
	}
}

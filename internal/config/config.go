package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for both binaries.
type Config struct {
	App       AppConfig
	Telegram  TelegramConfig
	Gemini    GeminiConfig
	Geocode   GeocodeConfig
	Intake    IntakeConfig
	Reporting ReportingConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
}

// AppConfig controls server level behavior for the reporting API.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// TelegramConfig holds chat transport credentials. OfficerChatID is the
// chat where assignment notifications land and resolution replies originate.
type TelegramConfig struct {
	Token          string
	OfficerChatID  int64
	PollTimeoutSec int
}

// GeminiConfig holds vision-classification collaborator values.
type GeminiConfig struct {
	APIKey         string
	Model          string
	Endpoint       string
	TimeoutSeconds int
}

// GeocodeConfig holds reverse-geocoding collaborator values.
type GeocodeConfig struct {
	Endpoint       string
	TimeoutSeconds int
}

// IntakeConfig tunes the admission gates and session rules.
type IntakeConfig struct {
	RateLimitWindowSec  int
	RateLimitMax        int
	AccuracyThresholdM  float64
	DirectoryTTLSeconds int
	UseRedisGates       bool
}

// ReportingConfig tunes the read-side snapshot cache.
type ReportingConfig struct {
	CacheTTLSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines reporting API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminUsername         string
	AdminPassword         string
	BcryptCost            int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "grievance-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Telegram: TelegramConfig{
			Token:          os.Getenv("TELEGRAM_BOT_TOKEN"),
			OfficerChatID:  getEnvAsInt64("OFFICER_CHAT_ID", 0),
			PollTimeoutSec: getEnvAsInt("TELEGRAM_POLL_TIMEOUT_SECONDS", 30),
		},
		Gemini: GeminiConfig{
			APIKey:         os.Getenv("GEMINI_API_KEY"),
			Model:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Endpoint:       getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
			TimeoutSeconds: getEnvAsInt("GEMINI_TIMEOUT_SECONDS", 30),
		},
		Geocode: GeocodeConfig{
			Endpoint:       getEnv("GEOCODE_ENDPOINT", "https://nominatim.openstreetmap.org/reverse"),
			TimeoutSeconds: getEnvAsInt("GEOCODE_TIMEOUT_SECONDS", 5),
		},
		Intake: IntakeConfig{
			RateLimitWindowSec:  getEnvAsInt("INTAKE_RATE_LIMIT_WINDOW_SECONDS", 3600),
			RateLimitMax:        getEnvAsInt("INTAKE_RATE_LIMIT_MAX", 5),
			AccuracyThresholdM:  getEnvAsFloat("INTAKE_ACCURACY_THRESHOLD_METERS", 25),
			DirectoryTTLSeconds: getEnvAsInt("INTAKE_DIRECTORY_TTL_SECONDS", 300),
			UseRedisGates:       getEnvAsBool("INTAKE_USE_REDIS_GATES", false),
		},
		Reporting: ReportingConfig{
			CacheTTLSeconds: getEnvAsInt("REPORTING_CACHE_TTL_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 1440),
			AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword:         getEnv("ADMIN_PASSWORD", "admin123"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RateLimitWindow returns the sliding-window span for the rate limiter.
func (i IntakeConfig) RateLimitWindow() time.Duration {
	return time.Duration(i.RateLimitWindowSec) * time.Second
}

// DirectoryTTL returns the officer-directory cache lifetime.
func (i IntakeConfig) DirectoryTTL() time.Duration {
	return time.Duration(i.DirectoryTTLSeconds) * time.Second
}

// CacheTTL returns the reporting snapshot lifetime.
func (r ReportingConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// Timeout returns the bounded deadline for classification calls.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Timeout returns the bounded deadline for geocoding calls.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string

	TelegramToken string
	PollTimeout   time.Duration

	DatabaseURL string
	AutoMigrate bool

	Redis    RedisConfig
	CacheTTL time.Duration

	HTTPPort string

	DialogTTL       time.Duration
	RateLimit       float64
	RateBurst       int
	DefaultLanguage string
}

type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// IsProduction reports whether APP_ENV selects production logging.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// LoadEnv loads .env.<name>, falling back to .env. Missing files are not an error:
// variables may come from the process environment.
func LoadEnv(envName string) (string, error) {
	envFile := ".env." + envName
	if err := godotenv.Load(envFile); err == nil {
		return envFile, nil
	}
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load .env: %w", err)
	}
	return ".env", nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:          GetEnvOrDefault("APP_ENV", "development"),
		LogLevel:        GetEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:        GetEnvOrDefault("PORT", "8080"),
		DefaultLanguage: GetEnvOrDefault("DEFAULT_LANGUAGE", "ru"),
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_API_TOKEN")
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	var err error
	if cfg.DatabaseURL, err = databaseURL(); err != nil {
		return nil, err
	}
	if cfg.AutoMigrate, err = boolEnv("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	cfg.Redis.Host = GetEnvOrDefault("REDIS_HOST", "localhost")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.Port, err = intEnv("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = durationEnv("POLL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DialogTTL, err = durationEnv("DIALOG_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = floatEnv("RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = intEnv("RATE_BURST", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_API_TOKEN environment variable is not set")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST/DB_NAME/DB_USER environment variables are not set")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive")
	}
	return nil
}

func databaseURL() (string, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return "", nil
	}
	port, err := intEnv("DB_PORT", 5432)
	if err != nil {
		return "", err
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASS")),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + os.Getenv("DB_NAME"),
	}
	q := u.Query()
	q.Set("sslmode", GetEnvOrDefault("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

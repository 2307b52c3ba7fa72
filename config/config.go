package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DiscordToken         string
	TestGuildID          string
	ServerPort           string
	DatabaseURL          string
	AdminToken           string
	CacheTTLHours        string
	RefreshIntervalHours string
	LogLevel             string
}

// ScraperConfig holds per-source scraping configuration
type ScraperConfig struct {
	MentalMarsURL      string        `json:"mentalmars_url"`
	TrackerURL         string        `json:"tracker_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
}

// DefaultScraperConfig returns production-ready scraping defaults
func DefaultScraperConfig() *ScraperConfig {
	return &ScraperConfig{
		MentalMarsURL:      "https://mentalmars.com/game-news/borderlands-4-shift-codes/",
		TrackerURL:         "https://xsmashx88x.github.io/Shift-Codes/",
		HTTPRequestTimeout: 15 * time.Second,
		RequestRateLimit:   1 * time.Second,
		MaxRetryAttempts:   3,
	}
}

// CacheConfig holds code cache configuration
type CacheConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	MaxSize    int           `json:"max_size"`
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		DefaultTTL: 1 * time.Hour,
		MaxSize:    1000,
	}
}

// GetCacheTTL returns the cache TTL from environment or default
func (c *Config) GetCacheTTL() time.Duration {
	if c.CacheTTLHours == "" {
		return 1 * time.Hour
	}

	hours, err := strconv.Atoi(c.CacheTTLHours)
	if err != nil || hours <= 0 {
		logrus.Warnf("Invalid CACHE_TTL_HOURS value: %s, using default 1 hour", c.CacheTTLHours)
		return 1 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

// GetRefreshInterval returns the background refresh interval from environment or default
func (c *Config) GetRefreshInterval() time.Duration {
	if c.RefreshIntervalHours == "" {
		return 6 * time.Hour
	}

	hours, err := strconv.Atoi(c.RefreshIntervalHours)
	if err != nil || hours <= 0 {
		logrus.Warnf("Invalid REFRESH_INTERVAL_HOURS value: %s, using default 6 hours", c.RefreshIntervalHours)
		return 6 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		DiscordToken:         getEnv("DISCORD_TOKEN", ""),
		TestGuildID:          getEnv("TEST_GUILD_ID", ""),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		AdminToken:           getEnv("ADMIN_TOKEN", ""),
		CacheTTLHours:        getEnv("CACHE_TTL_HOURS", "1"),
		RefreshIntervalHours: getEnv("REFRESH_INTERVAL_HOURS", "6"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Email    string
	Password string

	CacheDir      string
	PageLoadDelay time.Duration
	Throttle      time.Duration
	MaxLoadMore   int
	FetchAttempts int
	ProbeTimeout  time.Duration

	HTTPPort string
}

// Load reads an optional .env file from the working directory and then the
// process environment. Values already present in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Email:         getEnv("BOOKING_EMAIL", ""),
		Password:      getEnv("BOOKING_PASSWORD", ""),
		CacheDir:      getEnv("CACHE_DIR", ".cache"),
		PageLoadDelay: getEnvDuration("PAGE_LOAD_DELAY", time.Second),
		Throttle:      getEnvDuration("THROTTLE", 800*time.Millisecond),
		MaxLoadMore:   getEnvInt("MAX_LOAD_MORE", 5),
		FetchAttempts: getEnvInt("FETCH_ATTEMPTS", 3),
		ProbeTimeout:  getEnvDuration("PROBE_TIMEOUT", 2*time.Second),
		HTTPPort:      getEnv("HTTP_PORT", "8082"),
	}
}

func (c *Config) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

func (c *Config) SessionPath() string {
	return filepath.Join(c.CacheDir, "session.json")
}

func (c *Config) SnapshotDir() string {
	return filepath.Join(c.CacheDir, "snapshots")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

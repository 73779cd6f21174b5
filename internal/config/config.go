package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ProofPick server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Drive     DriveConfig
	Downloads DownloadsConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional: an empty URL means job state is kept in memory.
type RedisConfig struct {
	URL string
}

type DriveConfig struct {
	APIBaseURL      string
	APIKey          string
	FallbackBaseURL string
	FetchTimeout    time.Duration
}

type DownloadsConfig struct {
	ArchiveDir        string
	MaxConcurrentJobs int
	JobRetention      time.Duration
	RateLimitPerMin   int
}

type AdminConfig struct {
	KeyHash string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PROOFPICK_PORT", 8080),
			Env:  envString("PROOFPICK_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Drive: DriveConfig{
			APIBaseURL:      envString("DRIVE_API_BASE_URL", "https://www.googleapis.com"),
			APIKey:          os.Getenv("DRIVE_API_KEY"),
			FallbackBaseURL: envString("DRIVE_FALLBACK_BASE_URL", "https://drive.google.com"),
			FetchTimeout:    envDuration("DRIVE_FETCH_TIMEOUT", 30*time.Second),
		},
		Downloads: DownloadsConfig{
			ArchiveDir:        envString("ARCHIVE_DIR", os.TempDir()),
			MaxConcurrentJobs: envInt("MAX_CONCURRENT_JOBS", 2),
			JobRetention:      envDuration("JOB_RETENTION", time.Hour),
			RateLimitPerMin:   envInt("DOWNLOAD_RATE_LIMIT_PER_MIN", 10),
		},
		Admin: AdminConfig{
			KeyHash: os.Getenv("ADMIN_KEY_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Drive.APIKey == "" {
		return fmt.Errorf("DRIVE_API_KEY is required")
	}
	if !strings.HasPrefix(c.Drive.APIBaseURL, "http://") && !strings.HasPrefix(c.Drive.APIBaseURL, "https://") {
		return fmt.Errorf("DRIVE_API_BASE_URL must start with http:// or https://, got %q", c.Drive.APIBaseURL)
	}
	if !strings.HasPrefix(c.Drive.FallbackBaseURL, "http://") && !strings.HasPrefix(c.Drive.FallbackBaseURL, "https://") {
		return fmt.Errorf("DRIVE_FALLBACK_BASE_URL must start with http:// or https://, got %q", c.Drive.FallbackBaseURL)
	}

	if c.Admin.KeyHash == "" {
		return fmt.Errorf("ADMIN_KEY_HASH is required")
	}

	if c.Downloads.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1, got %d", c.Downloads.MaxConcurrentJobs)
	}
	if c.Downloads.JobRetention <= 0 {
		return fmt.Errorf("JOB_RETENTION must be positive, got %s", c.Downloads.JobRetention)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

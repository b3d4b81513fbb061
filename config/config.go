package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	ImageSync ImageSyncConfig
	Listing   ListingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	MaxImageBytes      int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the public image bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImagesBucket    string
	PublicRead      bool
}

// ImageSyncConfig controls mirroring of published images to S3.
type ImageSyncConfig struct {
	Enabled bool
	// InProcess runs the sync worker inside the API server.
	InProcess bool
}

// ListingConfig holds public listing defaults.
type ListingConfig struct {
	DefaultPerPage int
}

const defaultJWTSecret = "change-me-in-production"

// DSN returns the PostgreSQL connection string. URL wins when set.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Env: strings.ToLower(getEnv("APP_ENV", "development")),
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			MaxImageBytes:      getEnvInt("IMAGE_MAX_BYTES", 5*1024*1024),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "expo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 0)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      os.Getenv("JWT_SECRET"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ImagesBucket:    getEnv("AWS_S3_IMAGES_BUCKET", ""),
			PublicRead:      getEnvBool("AWS_S3_PUBLIC_READ", false),
		},
		ImageSync: ImageSyncConfig{
			Enabled:   getEnvBool("IMAGE_SYNC_ENABLED", false),
			InProcess: getEnvBool("IMAGE_SYNC_IN_PROCESS", true),
		},
		Listing: ListingConfig{
			DefaultPerPage: getEnvInt("LISTING_DEFAULT_PER_PAGE", 20),
		},
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be set when APP_ENV=production")
		}
		cfg.JWT.Secret = defaultJWTSecret
	}
	if cfg.Listing.DefaultPerPage < 1 || cfg.Listing.DefaultPerPage > 100 {
		return nil, fmt.Errorf("LISTING_DEFAULT_PER_PAGE must be between 1 and 100, got %d", cfg.Listing.DefaultPerPage)
	}
	if cfg.Server.MaxImageBytes <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_BYTES must be positive, got %d", cfg.Server.MaxImageBytes)
	}
	return cfg, nil
}

// ImageSyncReady reports whether image mirroring is both enabled and has a bucket.
func (c *Config) ImageSyncReady() bool {
	return c.ImageSync.Enabled && c.AWS.ImagesBucket != ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

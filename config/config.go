package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lock backends for per-recording serialization.
const (
	LockBackendRedis = "redis"
	LockBackendLocal = "local"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Pause    PauseConfig
}

// PauseConfig holds PCI pause/resume engine settings.
type PauseConfig struct {
	AutoResumeTimeoutMs int    // 0 disables auto-resume entirely
	SweepIntervalSec    int    // reconciliation sweep period
	SweepConcurrency    int    // recordings auto-resumed in parallel per sweep
	LocalTimers         bool   // arm in-process timers on pause; the sweep works without them
	LockBackend         string // "redis" or "local"
	LockTTLSec          int
	SweepInServer       bool // run the sweep inside the API process as well as in the worker
}

// AutoResumeTimeout returns the auto-resume timeout as a duration.
func (c PauseConfig) AutoResumeTimeout() time.Duration {
	return time.Duration(c.AutoResumeTimeoutMs) * time.Millisecond
}

// SweepInterval returns the sweep period, defaulting to 60s.
func (c PauseConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// LockTTL returns how long a per-recording lock may be held before it expires.
func (c PauseConfig) LockTTL() time.Duration {
	if c.LockTTLSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.LockTTLSec) * time.Second
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/calldoc?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
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
	Issuer      string // tokens from any other issuer are rejected; empty accepts any
	ExpireHours int
}

// AWSConfig holds AWS credentials and the audit export bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AuditBucket          string
	PresignExpireMinutes int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "calldoc"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			Issuer:      getEnv("JWT_ISSUER", "calldoc"),
			ExpireHours: jwtExpire,
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AuditBucket:          getEnv("AWS_S3_AUDIT_BUCKET", "calldoc-pci-audit"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Pause: PauseConfig{
			AutoResumeTimeoutMs: getEnvInt("PCI_AUTO_RESUME_TIMEOUT_MS", 180000),
			SweepIntervalSec:    getEnvInt("PCI_SWEEP_INTERVAL_SEC", 60),
			SweepConcurrency:    getEnvInt("PCI_SWEEP_CONCURRENCY", 4),
			LocalTimers:         getEnvBool("PCI_LOCAL_TIMERS", true),
			LockBackend:         strings.ToLower(getEnv("PCI_LOCK_BACKEND", LockBackendRedis)),
			LockTTLSec:          getEnvInt("PCI_LOCK_TTL_SEC", 10),
			SweepInServer:       getEnvBool("PCI_SWEEP_IN_SERVER", true),
		},
	}
	if cfg.Pause.AutoResumeTimeoutMs < 0 {
		return nil, fmt.Errorf("PCI_AUTO_RESUME_TIMEOUT_MS must be >= 0, got %d", cfg.Pause.AutoResumeTimeoutMs)
	}
	if cfg.Pause.LockBackend != LockBackendRedis && cfg.Pause.LockBackend != LockBackendLocal {
		return nil, fmt.Errorf("PCI_LOCK_BACKEND must be %q or %q, got %q", LockBackendRedis, LockBackendLocal, cfg.Pause.LockBackend)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
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

// Package config centralizes runtime configuration read from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddress      = ":8080"
	defaultDSN          = "medvault.db"
	defaultJWTSecret    = "change-me-jwt-secret"
	defaultJWTTTL       = "24h"
	defaultKeyID        = "primary"
	defaultMaxUpload    = 25 << 20  // 25 MiB
	defaultQuota        = 500 << 20 // 500 MiB per workspace
	defaultStoreTimeout = "30s"
	defaultAuditBuffer  = 256
)

// Config is the full runtime configuration for the vault service.
type Config struct {
	AppEnv      string
	Address     string
	DatabaseDSN string

	JWTSecret string
	JWTTTL    time.Duration

	// VaultKeyHex is the hex-encoded 32-byte envelope encryption key.
	VaultKeyHex string
	VaultKeyID  string

	MaxUploadBytes    int64
	DefaultQuotaBytes int64
	StorageTimeout    time.Duration
	AuditBufferSize   int

	// StoreBackend selects "minio" or "memory" (local dev only).
	StoreBackend   string
	StoreEndpoint  string
	StoreAccessKey string
	StoreSecretKey string
	StoreBucket    string
	StoreRegion    string
	StoreUseSSL    bool
}

// Load reads configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      strings.ToLower(getEnv("APP_ENV", "dev")),
		Address:     getEnv("MEDVAULT_ADDRESS", defaultAddress),
		DatabaseDSN: getEnv("DATABASE_URL", defaultDSN),

		JWTSecret: strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),

		VaultKeyHex: strings.TrimSpace(os.Getenv("MEDVAULT_KEY")),
		VaultKeyID:  getEnv("MEDVAULT_KEY_ID", defaultKeyID),

		MaxUploadBytes:    parseInt64Env("MEDVAULT_MAX_UPLOAD_BYTES", defaultMaxUpload),
		DefaultQuotaBytes: parseInt64Env("MEDVAULT_DEFAULT_QUOTA_BYTES", defaultQuota),
		AuditBufferSize:   parseIntEnv("MEDVAULT_AUDIT_BUFFER", defaultAuditBuffer),

		StoreBackend:   strings.ToLower(getEnv("MEDVAULT_STORE", "minio")),
		StoreEndpoint:  getEnv("MEDVAULT_S3_ENDPOINT", "localhost:9000"),
		StoreAccessKey: os.Getenv("MEDVAULT_S3_ACCESS_KEY"),
		StoreSecretKey: os.Getenv("MEDVAULT_S3_SECRET_KEY"),
		StoreBucket:    getEnv("MEDVAULT_S3_BUCKET", "medvault"),
		StoreRegion:    getEnv("MEDVAULT_S3_REGION", "us-east-1"),
		StoreUseSSL:    parseBoolEnv("MEDVAULT_S3_SSL", false),
	}

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.StorageTimeout, err = parseDurationEnv("MEDVAULT_STORAGE_TIMEOUT", defaultStoreTimeout); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "prod" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in prod")
		}
		if cfg.VaultKeyHex == "" {
			return nil, fmt.Errorf("MEDVAULT_KEY must be set in prod")
		}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.DefaultQuotaBytes <= 0 {
		cfg.DefaultQuotaBytes = defaultQuota
	}
	if cfg.AuditBufferSize <= 0 {
		cfg.AuditBufferSize = defaultAuditBuffer
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration in %s: %q", key, raw)
	}
	return d, nil
}

func parseInt64Env(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

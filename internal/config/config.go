package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LockBackendMemory   = "memory"
	LockBackendPostgres = "postgres"
)

type Config struct {
	Addr              string
	Env               string
	DatabaseURL       string
	SourceDatabaseURL string
	APIToken          string
	APITokenHash      string
	LockBackend       string
	LockWait          time.Duration
	LockKey           int64
	Location          *time.Location
	RawSheet          string
	WorkingSheet      string
	DestinationSheet  string
	APIMaxBodyBytes   int64
	WebhookRateLimit  int
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:              getEnv("API_ADDR", ":8080"),
		Env:               getEnv("APP_ENV", "dev"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SourceDatabaseURL: os.Getenv("SOURCE_DATABASE_URL"),
		APIToken:          os.Getenv("API_TOKEN"),
		APITokenHash:      os.Getenv("API_TOKEN_HASH"),
		LockBackend:       strings.ToLower(getEnv("LOCK_BACKEND", LockBackendMemory)),
		LockWait:          time.Duration(getEnvInt("LOCK_WAIT_SEC", 10)) * time.Second,
		LockKey:           int64(getEnvInt("LOCK_KEY", 7340101)),
		RawSheet:          getEnv("RAW_SHEET", "Orders_Raw"),
		WorkingSheet:      getEnv("SOURCE_SHEET", "Orders"),
		DestinationSheet:  getEnv("DESTINATION_SHEET", "Заказы"),
		APIMaxBodyBytes:   int64(getEnvInt("API_MAX_BODY_MB", 1)) * 1024 * 1024,
		WebhookRateLimit:  getEnvInt("WEBHOOK_RATE_LIMIT_PER_MIN", 120),
		ReadHeaderTimeout: time.Duration(getEnvInt("API_READ_HEADER_TIMEOUT_SEC", 5)) * time.Second,
		ReadTimeout:       time.Duration(getEnvInt("API_READ_TIMEOUT_SEC", 15)) * time.Second,
		WriteTimeout:      time.Duration(getEnvInt("API_WRITE_TIMEOUT_SEC", 60)) * time.Second,
		IdleTimeout:       time.Duration(getEnvInt("API_IDLE_TIMEOUT_SEC", 60)) * time.Second,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SourceDatabaseURL == "" {
		cfg.SourceDatabaseURL = cfg.DatabaseURL
	}
	if strings.TrimSpace(cfg.APIToken) == "" && strings.TrimSpace(cfg.APITokenHash) == "" {
		return Config{}, fmt.Errorf("API_TOKEN or API_TOKEN_HASH is required")
	}
	if cfg.LockBackend != LockBackendMemory && cfg.LockBackend != LockBackendPostgres {
		return Config{}, fmt.Errorf("LOCK_BACKEND must be %q or %q", LockBackendMemory, LockBackendPostgres)
	}

	loc, err := time.LoadLocation(getEnv("BUSINESS_TIMEZONE", "Europe/Moscow"))
	if err != nil {
		return Config{}, fmt.Errorf("load BUSINESS_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

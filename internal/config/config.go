package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	DefaultPageSize   int
	MaxPageSize       int
	EntryCacheTTL     time.Duration
	DirectoryCacheTTL time.Duration
	LedgerTimeout     time.Duration
	MaxDescriptionLen int
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		DefaultPageSize:   getEnvAsInt("DAYBOOK_DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:       getEnvAsInt("DAYBOOK_MAX_PAGE_SIZE", 100),
		EntryCacheTTL:     getEnvAsDuration("DAYBOOK_ENTRY_CACHE_TTL", 5*time.Minute),
		DirectoryCacheTTL: getEnvAsDuration("DAYBOOK_DIRECTORY_CACHE_TTL", 15*time.Minute),
		LedgerTimeout:     getEnvAsDuration("DAYBOOK_LEDGER_TIMEOUT", 10*time.Second),
		MaxDescriptionLen: getEnvAsInt("DAYBOOK_MAX_DESCRIPTION_LEN", 500),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

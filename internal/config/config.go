package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
	PolicyFile  string
	TriggerKey  string
	TZWatchPath string
	LogLevel    string
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DBPath:      getEnv("DB_PATH", "./data/alarms.db"),
		JWTSecret:   getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:    time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		PolicyFile:  getEnv("POLICY_FILE", "./policy.yaml"),
		TriggerKey:  getEnv("TRIGGER_KEY", "change-this-trigger-key"),
		TZWatchPath: getEnvAllowEmpty("TZ_WATCH_PATH", "/etc/localtime"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "" (which disables the feature).
func getEnvAllowEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

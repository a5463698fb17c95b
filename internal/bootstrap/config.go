package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	Version    string

	SettingsPath string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RetainBackend selects where raw audio is kept for retry: "memory" or
	// "redis".
	RetainBackend string
	RetainTTL     time.Duration
	RetainCap     int

	HistoryCap int

	// OutputCommand, when set, receives final text on stdin per delivery.
	OutputCommand string
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Version:    getEnv("VERSION", "dev"),

		SettingsPath: getEnv("SETTINGS_PATH", "./settings.yaml"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,

		RetainBackend: getEnv("RETAIN_BACKEND", "memory"),
		RetainTTL:     getEnvDuration("RETAIN_TTL", 30*time.Minute),
		RetainCap:     getEnvInt("RETAIN_CAP", 8),

		HistoryCap: getEnvInt("HISTORY_CAP", 50),

		OutputCommand: getEnv("OUTPUT_COMMAND", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package bootstrap

import (
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

// ProvideRedisClient connects only when redis-backed retention is selected;
// everything else tolerates a nil client.
func ProvideRedisClient(cfg *Config) *redis.Client {
	if cfg.RetainBackend != "redis" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// ProvideDatabase opens the request archive database. No DSN means no
// archive; the in-memory request log still works.
func ProvideDatabase(cfg *Config, logger *slog.Logger) (*gorm.DB, error) {
	if cfg.DatabaseDSN == "" {
		logger.Info("no database configured, request archive disabled")
		return nil, nil
	}
	return gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideRedisClient,
		ProvideDatabase,
	),
)

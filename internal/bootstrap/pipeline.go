package bootstrap

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/notify"
	"github.com/DovieW/tangerine-voice-sub000/internal/output"
	"github.com/DovieW/tangerine-voice-sub000/internal/pipeline"
	"github.com/DovieW/tangerine-voice-sub000/internal/provider"
	"github.com/DovieW/tangerine-voice-sub000/internal/requestlog"
	"github.com/DovieW/tangerine-voice-sub000/internal/retain"
	"github.com/DovieW/tangerine-voice-sub000/internal/rewrite"
	"github.com/DovieW/tangerine-voice-sub000/internal/transcription"
	"github.com/DovieW/tangerine-voice-sub000/internal/vad"
)

func ProvideBus(logger *slog.Logger) *notify.Bus {
	return notify.NewBus(logger)
}

func ProvideRegistry() *provider.Registry {
	r := provider.NewRegistry()
	provider.RegisterBuiltins(r)
	return r
}

func ProvideSettingsStore(cfg *Config) config.Store {
	return config.NewFileStore(cfg.SettingsPath)
}

func ProvideConfigSync(store config.Store, registry *provider.Registry, logger *slog.Logger) *config.Sync {
	s := config.NewSync(store, registry, logger)
	if err := s.Refresh(); err != nil {
		logger.Warn("initial settings load failed, using defaults", "error", err)
	}
	return s
}

func ProvideDetector() vad.Detector {
	return vad.NewEnergy()
}

func ProvideRetainStore(cfg *Config, rdb *redis.Client, logger *slog.Logger) retain.Store {
	if cfg.RetainBackend == "redis" && rdb != nil {
		logger.Info("redis-backed audio retention", "ttl", cfg.RetainTTL)
		return retain.NewRedis(rdb, cfg.RetainTTL)
	}
	return retain.NewMemory(cfg.RetainCap)
}

func ProvideArchiveStore(db *gorm.DB, logger *slog.Logger) *requestlog.ArchiveStore {
	if db == nil {
		return nil
	}
	store := requestlog.NewArchiveStore(db)
	if err := store.Migrate(); err != nil {
		logger.Error("archive migration failed", "error", err)
		return nil
	}
	return store
}

func ProvideRequestLog(cfg *Config, archive *requestlog.ArchiveStore, logger *slog.Logger) *requestlog.Log {
	var archiver requestlog.Archiver
	if archive != nil {
		archiver = archive
	}
	return requestlog.New(cfg.HistoryCap, archiver, logger)
}

func ProvideTranscription(registry *provider.Registry, retained retain.Store, logger *slog.Logger) *transcription.Coordinator {
	return transcription.NewCoordinator(registry, retained, logger)
}

func ProvideRewrite(registry *provider.Registry, logger *slog.Logger) *rewrite.Coordinator {
	return rewrite.NewCoordinator(registry, logger)
}

func ProvideSink(cfg *Config, logger *slog.Logger) (output.Sink, error) {
	if cfg.OutputCommand != "" {
		return output.NewCommandSink(cfg.OutputCommand, logger)
	}
	return output.NewLogSink(logger), nil
}

func ProvideMachine(
	logger *slog.Logger,
	bus *notify.Bus,
	sync *config.Sync,
	stt *transcription.Coordinator,
	rew *rewrite.Coordinator,
	requests *requestlog.Log,
	detector vad.Detector,
	sink output.Sink,
) *pipeline.Machine {
	return pipeline.NewMachine(pipeline.Deps{
		Logger:        logger,
		Bus:           bus,
		Config:        sync,
		Transcription: stt,
		Rewrite:       rew,
		Requests:      requests,
		Detector:      detector,
		Sink:          sink,
	})
}

var PipelineModule = fx.Options(
	fx.Provide(
		ProvideBus,
		ProvideRegistry,
		ProvideSettingsStore,
		ProvideConfigSync,
		ProvideDetector,
		ProvideRetainStore,
		ProvideArchiveStore,
		ProvideRequestLog,
		ProvideTranscription,
		ProvideRewrite,
		ProvideSink,
		ProvideMachine,
	),
)

package bootstrap

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/DovieW/tangerine-voice-sub000/internal/health"
	"github.com/DovieW/tangerine-voice-sub000/internal/notify"
	"github.com/DovieW/tangerine-voice-sub000/internal/pipeline"
	"github.com/DovieW/tangerine-voice-sub000/internal/requestlog"
)

func ProvidePipelineHandler(machine *pipeline.Machine, logger *slog.Logger) *pipeline.Handler {
	return pipeline.NewHandler(machine, logger.With("handler", "pipeline"))
}

func ProvideRequestLogHandler(log *requestlog.Log, archive *requestlog.ArchiveStore, logger *slog.Logger) *requestlog.Handler {
	return requestlog.NewHandler(log, archive, logger.With("handler", "requests"))
}

func ProvideWSHandler(bus *notify.Bus, logger *slog.Logger) *notify.WSHandler {
	return notify.NewWSHandler(bus, logger)
}

func ProvideSSEHandler(bus *notify.Bus, logger *slog.Logger) *notify.SSEHandler {
	return notify.NewSSEHandler(bus, logger)
}

func ProvideHealthHandler(db *gorm.DB, rdb *redis.Client, machine *pipeline.Machine, bus *notify.Bus, cfg *Config) *health.Handler {
	return health.NewHandler(db, rdb, machine, bus, cfg.Version)
}

type HandlerParams struct {
	fx.In

	PipelineHandler   *pipeline.Handler
	RequestLogHandler *requestlog.Handler
	WSHandler         *notify.WSHandler
	SSEHandler        *notify.SSEHandler
	HealthHandler     *health.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.PipelineHandler.RegisterRoutes(api.Group("/pipeline"))
	params.RequestLogHandler.RegisterRoutes(api.Group("/requests"))

	events := api.Group("/events")
	events.GET("/ws", params.WSHandler.Handle)
	events.GET("/sse", params.SSEHandler.Handle)

	params.HealthHandler.RegisterRoutes(e)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvidePipelineHandler,
		ProvideRequestLogHandler,
		ProvideWSHandler,
		ProvideSSEHandler,
		ProvideHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)

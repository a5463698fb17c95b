package requestlog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

// Handler exposes the request history to the UI layer.
type Handler struct {
	log     *Log
	archive *ArchiveStore
	logger  *slog.Logger
}

func NewHandler(log *Log, archive *ArchiveStore, logger *slog.Logger) *Handler {
	return &Handler{log: log, archive: archive, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("", h.Clear)
	g.GET("/archive", h.ListArchive)
}

func (h *Handler) List(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, h.log.List(limit))
}

func (h *Handler) Get(c echo.Context) error {
	rec, ok := h.log.Get(c.Param("id"))
	if !ok {
		return shared.NotFound("request_not_found", "no such request")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Clear(c echo.Context) error {
	h.log.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListArchive(c echo.Context) error {
	if h.archive == nil {
		return shared.NotFound("archive_disabled", "no archive database configured")
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}

	rows, err := h.archive.ListRecent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("archive list failed", "error", err)
		return shared.InternalError("archive_list_failed", "failed to list archive")
	}
	return c.JSON(http.StatusOK, rows)
}

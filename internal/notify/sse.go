package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const sseKeepAliveInterval = 30 * time.Second

// SSEHandler streams bus events as server-sent events, for overlay clients
// that cannot hold a websocket.
type SSEHandler struct {
	bus    *Bus
	logger *slog.Logger
}

func NewSSEHandler(bus *Bus, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{bus: bus, logger: logger.With("component", "notify_sse")}
}

func (h *SSEHandler) Handle(c echo.Context) error {
	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	connID := uuid.New().String()
	h.logger.Debug("overlay connected", "conn_id", connID)
	defer h.logger.Debug("overlay disconnected", "conn_id", connID)

	events, cancel := h.bus.Subscribe()
	defer cancel()

	ticker := time.NewTicker(sseKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("event marshal failed", "type", ev.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

package notify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler streams bus events to overlay clients over a websocket.
type WSHandler struct {
	bus    *Bus
	logger *slog.Logger
}

func NewWSHandler(bus *Bus, logger *slog.Logger) *WSHandler {
	return &WSHandler{bus: bus, logger: logger.With("component", "notify_ws")}
}

func (h *WSHandler) Handle(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	connID := uuid.New().String()
	h.logger.Debug("overlay connected", "conn_id", connID)
	defer h.logger.Debug("overlay disconnected", "conn_id", connID)

	events, cancel := h.bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(ev); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return nil
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

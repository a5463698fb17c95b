package pipeline

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

// Handler is the command surface the hotkey handler and overlay UI call.
type Handler struct {
	machine *Machine
	logger  *slog.Logger
}

func NewHandler(machine *Machine, logger *slog.Logger) *Handler {
	return &Handler{machine: machine, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/start", h.Start)
	g.POST("/audio", h.PushAudio)
	g.POST("/stop", h.Stop)
	g.POST("/cancel", h.Cancel)
	g.POST("/retry/:id", h.Retry)
	g.POST("/reset", h.Reset)
	g.GET("/state", h.GetState)
	g.POST("/config/sync", h.SyncConfig)
}

type startRequest struct {
	ProgramPath string `json:"program_path"`
	Device      string `json:"device"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
}

func (h *Handler) Start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "malformed start request")
	}

	id, err := h.machine.StartRecording(
		config.AppContext{ProgramPath: req.ProgramPath},
		req.Device, req.SampleRate, req.Channels,
	)
	if err != nil {
		return shared.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"request_id": id})
}

type pushAudioRequest struct {
	// PCM is base64-encoded little-endian int16 interleaved samples.
	PCM string `json:"pcm"`
}

func (h *Handler) PushAudio(c echo.Context) error {
	var req pushAudioRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "malformed audio payload")
	}
	raw, err := base64.StdEncoding.DecodeString(req.PCM)
	if err != nil {
		return shared.BadRequest("invalid_pcm", "pcm must be base64")
	}

	if err := h.machine.PushAudio(audio.PCMBytesToFloat32(raw)); err != nil {
		return shared.ToHTTPError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) Stop(c echo.Context) error {
	res, err := h.machine.StopAndTranscribe(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			return shared.Conflict("superseded", "cycle superseded by reset")
		}
		return shared.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Cancel(c echo.Context) error {
	if err := h.machine.CancelRecording(); err != nil {
		return shared.ToHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type retryRequest struct {
	ProgramPath string `json:"program_path"`
}

func (h *Handler) Retry(c echo.Context) error {
	var req retryRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "malformed retry request")
	}

	res, err := h.machine.RetryTranscription(
		c.Request().Context(),
		c.Param("id"),
		config.AppContext{ProgramPath: req.ProgramPath},
	)
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			return shared.Conflict("superseded", "cycle superseded by reset")
		}
		return shared.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Reset(c echo.Context) error {
	h.machine.ForceReset()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.machine.State())
}

func (h *Handler) SyncConfig(c echo.Context) error {
	if err := h.machine.SyncConfig(); err != nil {
		h.logger.Warn("config sync rejected", "error", err)
		return shared.BadRequest("invalid_settings", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

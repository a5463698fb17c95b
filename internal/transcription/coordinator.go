// Package transcription drives one STT call per cycle: provider resolution,
// the deadline, raw-audio retention for retry, and normalization of provider
// failures into pipeline error kinds.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/provider"
	"github.com/DovieW/tangerine-voice-sub000/internal/retain"
	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

type Outcome struct {
	Text        string
	Provider    string
	Model       string
	Elapsed     time.Duration
	RawRequest  []byte
	RawResponse []byte
}

type Coordinator struct {
	registry *provider.Registry
	retained retain.Store
	log      *slog.Logger
}

func NewCoordinator(registry *provider.Registry, retained retain.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		registry: registry,
		retained: retained,
		log:      logger.With("component", "transcription"),
	}
}

type callResult struct {
	res *provider.SttResult
	err error
}

// Transcribe runs one STT call against cfg's timeout. The captured audio is
// retained under requestID before the call so a failing provider never loses
// the recording. On deadline overrun the in-flight call is abandoned; its
// eventual completion is discarded.
func (c *Coordinator) Transcribe(ctx context.Context, requestID string, captured audio.Captured, cfg config.Effective) (*Outcome, error) {
	stt, err := c.registry.ResolveSTT(cfg.SttProvider, provider.Credentials{
		Model:  cfg.SttModel,
		APIKey: cfg.SttAPIKey,
	})
	if err != nil {
		return nil, err
	}

	if err := c.retained.Put(ctx, requestID, captured); err != nil {
		c.log.Warn("audio retention failed, retry will be unavailable",
			"request_id", requestID, "error", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.SttTimeout)
	defer cancel()

	results := make(chan callResult, 1)
	go func() {
		res, err := stt.Transcribe(callCtx, provider.SttRequest{
			Samples:    captured.Samples,
			SampleRate: captured.SampleRate,
			Language:   cfg.SttLanguage,
		})
		results <- callResult{res: res, err: err}
	}()

	start := time.Now()
	select {
	case r := <-results:
		if r.err != nil {
			return nil, normalizeProviderErr(r.err)
		}
		return &Outcome{
			Text:        r.res.Text,
			Provider:    stt.Name(),
			Model:       stt.Model(),
			Elapsed:     time.Since(start),
			RawRequest:  r.res.RawRequest,
			RawResponse: r.res.RawResponse,
		}, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			c.log.Warn("stt call timed out, abandoning",
				"request_id", requestID,
				"provider", cfg.SttProvider,
				"timeout", cfg.SttTimeout)
			return nil, fmt.Errorf("stt after %s: %w", cfg.SttTimeout, shared.ErrTimeout)
		}
		return nil, callCtx.Err()
	}
}

// Retained looks up the audio stored for a previous cycle.
func (c *Coordinator) Retained(ctx context.Context, requestID string) (audio.Captured, error) {
	captured, ok, err := c.retained.Get(ctx, requestID)
	if err != nil {
		return audio.Captured{}, err
	}
	if !ok {
		return audio.Captured{}, fmt.Errorf("request %s: %w", requestID, shared.ErrMissingSavedAudio)
	}
	return captured, nil
}

// normalizeProviderErr maps transport-level failures onto the pipeline error
// taxonomy. Errors already in the taxonomy pass through untouched.
func normalizeProviderErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("provider deadline: %w", shared.ErrTimeout)
	case errors.Is(err, shared.ErrTimeout),
		errors.Is(err, shared.ErrRateLimited),
		errors.Is(err, shared.ErrNetwork),
		errors.Is(err, shared.ErrNoProvider),
		errors.Is(err, shared.ErrNoAPIKey):
		return err
	}

	var apiErr *shared.APIStatusError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 429 {
			return fmt.Errorf("%w: %s", shared.ErrRateLimited, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s", shared.ErrNetwork, err)
	}

	return err
}

package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/provider"
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
	log      *slog.Logger
}

func NewCoordinator(registry *provider.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		registry: registry,
		log:      logger.With("component", "rewrite"),
	}
}

// structuredReply is the JSON shape requested from providers that support
// structured output.
type structuredReply struct {
	RewrittenText string `json:"rewritten_text"`
}

type callResult struct {
	res *provider.CompletionResult
	err error
}

// Rewrite runs the transcript through the configured LLM under cfg's
// timeout. Like the STT path, an overrunning call is abandoned rather than
// awaited.
func (c *Coordinator) Rewrite(ctx context.Context, requestID, transcript string, cfg config.Effective) (*Outcome, error) {
	llm, err := c.registry.ResolveLLM(cfg.LlmProvider, provider.Credentials{
		Model:  cfg.LlmModel,
		APIKey: cfg.LlmAPIKey,
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.LlmTimeout)
	defer cancel()

	results := make(chan callResult, 1)
	go func() {
		res, err := llm.Complete(callCtx, provider.CompletionRequest{
			SystemPrompt: BuildSystemPrompt(cfg.Prompt),
			UserText:     transcript,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			Thinking:     cfg.Thinking,
		})
		results <- callResult{res: res, err: err}
	}()

	start := time.Now()
	select {
	case r := <-results:
		if r.err != nil {
			return nil, normalizeLlmErr(r.err)
		}
		return &Outcome{
			Text:        c.extractText(requestID, llm, r.res.Content),
			Provider:    llm.Name(),
			Model:       llm.Model(),
			Elapsed:     time.Since(start),
			RawRequest:  r.res.RawRequest,
			RawResponse: r.res.RawResponse,
		}, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			c.log.Warn("llm call timed out, abandoning",
				"request_id", requestID,
				"provider", cfg.LlmProvider,
				"timeout", cfg.LlmTimeout)
			return nil, fmt.Errorf("llm after %s: %w", cfg.LlmTimeout, shared.ErrTimeout)
		}
		return nil, callCtx.Err()
	}
}

// extractText unpacks structured replies. Malformed JSON from a provider
// that promised structure is tolerated: the raw content is used as-is.
func (c *Coordinator) extractText(requestID string, llm provider.LlmProvider, content string) string {
	if !llm.SupportsStructuredOutput() {
		return strings.TrimSpace(content)
	}
	var reply structuredReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil || reply.RewrittenText == "" {
		c.log.Warn("structured reply unparseable, using raw content",
			"request_id", requestID, "provider", llm.Name())
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(reply.RewrittenText)
}

func normalizeLlmErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("provider deadline: %w", shared.ErrTimeout)
	case errors.Is(err, shared.ErrTimeout),
		errors.Is(err, shared.ErrRateLimited),
		errors.Is(err, shared.ErrNetwork):
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

/*
Package extraction calls the language-model extraction service that turns
transcript text into a structured guess.

PURPOSE:
  The extraction service is fallible in two different ways and this package
  keeps them apart:
    - malformed answers (fenced, chatty, truncated, not an object) are
      repaired or degraded to the empty Payload and never fail a request
    - upstream failures (unreachable, erroring, rate-limited) are retried a
      fixed number of times with a fixed backoff, then surface as
      ErrServiceUnavailable or ErrQuotaExceeded

FLOW:
  BuildPrompt -> Generator.Generate (retried) -> DecodePayload -> Payload

SEE ALSO:
  - gemini.go: Generator backed by google.golang.org/genai
  - payload.go: Fence stripping and JSON repair
  - reconcile/decode.go: Consumes the Payload
*/
package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/warp/curriculum-engine/curriculum"
	"go.uber.org/zap"
)

// Defaults for Client.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// Extractor produces the raw structured guess for a transcript text.
type Extractor interface {
	Extract(ctx context.Context, text string) (Payload, error)
}

// Generator performs one blocking model call.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Client is the Extractor used in production: prompt, bounded retry, decode.
type Client struct {
	Generator   Generator
	Rules       *curriculum.RuleSet
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
}

// NewClient creates a Client with the default retry policy.
func NewClient(gen Generator, rules *curriculum.RuleSet, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Generator:   gen,
		Rules:       rules,
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Logger:      logger,
	}
}

// Extract asks the service for the transcript's structure.
//
// An empty response is retried like a failure; if every attempt comes back
// empty the result is the empty Payload and no error. Cancelling ctx stops
// the loop immediately and returns the context error.
func (c *Client) Extract(ctx context.Context, text string) (Payload, error) {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prompt := BuildPrompt(c.Rules, text)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.Backoff); err != nil {
				return nil, err
			}
		}

		out, err := c.Generator.Generate(ctx, SystemInstruction, prompt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			lastErr = err
			log.Warn("extraction call failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err))
			if !retryable(err) {
				return nil, &UpstreamError{Kind: classify(err), Attempts: attempt, Err: err}
			}
			continue
		}
		if strings.TrimSpace(out) == "" {
			lastErr = nil
			log.Warn("extraction returned an empty response", zap.Int("attempt", attempt))
			continue
		}

		payload := DecodePayload(out)
		log.Debug("extraction decoded",
			zap.Int("attempt", attempt),
			zap.Int("response_bytes", len(out)),
			zap.Int("keys", len(payload)))
		return payload, nil
	}

	if lastErr == nil {
		return Payload{}, nil
	}
	return nil, &UpstreamError{Kind: classify(lastErr), Attempts: attempts, Err: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

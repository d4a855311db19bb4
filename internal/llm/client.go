// Package llm provides the text-generation capability used by the analysis
// pipeline. The pipeline only needs prompt-in, text-out; everything else
// (retry, rate limiting, timeouts) is the client's concern.
package llm

import (
	"context"
	"errors"
)

// ErrNoAPIKey indicates the client was constructed without credentials.
// This is a fatal precondition for the orchestrator, not a per-row failure.
var ErrNoAPIKey = errors.New("generation API key not configured")

// GenerationClient accepts a text prompt and returns generated text.
// Implementations may fail on network, auth, or quota errors; callers decide
// whether a failure degrades or aborts.
type GenerationClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

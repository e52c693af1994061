// Package llm provides streaming clients for text-generation backends.
package llm

import (
	"context"
	"iter"
)

// TextRequest is a single-turn generation request.
type TextRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// StreamClient streams generated text.
type StreamClient interface {
	// StreamText yields text fragments in order. A failure is yielded once as
	// ("", err) and ends the sequence.
	StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error]
}

// Ensure the clients implement StreamClient.
var (
	_ StreamClient = (*Client)(nil)
	_ StreamClient = (*OllamaClient)(nil)
	_ StreamClient = (*MockClient)(nil)
	_ StreamClient = (*GuardedClient)(nil)
)

package llm

import (
	"context"
	"fmt"
	"iter"
)

// MockClient is a mock implementation of StreamClient for local runs.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// StreamText simulates a streaming response in fixed-size chunks.
func (m *MockClient) StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, chunk := range splitIntoChunks(m.generateMockResponse(req), 10) {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req TextRequest) string {
	if req.Prompt == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(req.Prompt, 100))
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

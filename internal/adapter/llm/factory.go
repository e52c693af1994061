package llm

import (
	"os"
	"time"

	"github.com/xiaot623/gogo/searchstream/internal/observability"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"

	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// Options configures NewStreamClient.
type Options struct {
	Backend       string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	GuardFailures int
	GuardCooldown time.Duration
}

// NewStreamClient creates a client for the configured backend, wrapped in a
// failure guard. GOGO_MODE=MOCK overrides the backend with MockClient.
func NewStreamClient(opts Options) StreamClient {
	var client StreamClient
	switch {
	case os.Getenv(EnvGogoMode) == ModeMock:
		observability.Logger().Info("GOGO_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	case opts.Backend == BackendOllama:
		client = NewOllamaClient(opts.BaseURL, opts.Timeout)
	default:
		client = NewClient(opts.BaseURL, opts.APIKey, opts.Timeout)
	}
	return NewGuardedClient(client, NewGuard(opts.GuardFailures, opts.GuardCooldown))
}

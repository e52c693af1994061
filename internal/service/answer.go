package service

import (
	"context"
	"strings"

	"github.com/xiaot623/gogo/searchstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/observability"
)

// DefaultAnswerTemperature is used when AnswerStage is built with a
// non-positive temperature.
const DefaultAnswerTemperature = 0.1

// ForwardFunc receives each generated fragment in order.
type ForwardFunc func(fragment string)

// TokenBudget is the output-token limit per tier.
type TokenBudget struct {
	Standard int
	Elevated int
}

// For returns the budget of tier.
func (b TokenBudget) For(tier domain.Tier) int {
	if tier == domain.TierElevated {
		return b.Elevated
	}
	return b.Standard
}

// AnswerStage streams the grounded answer.
type AnswerStage struct {
	client      llm.StreamClient
	model       string
	budget      TokenBudget
	temperature float64
}

func NewAnswerStage(client llm.StreamClient, model string, budget TokenBudget, temperature float64) *AnswerStage {
	if temperature <= 0 {
		temperature = DefaultAnswerTemperature
	}
	return &AnswerStage{
		client:      client,
		model:       model,
		budget:      budget,
		temperature: temperature,
	}
}

// Generate forwards the answer fragments and returns the full answer. A model
// failure is logged and replaced by a single ApologyText fragment; the error
// result is reserved for prompt assembly failures.
func (s *AnswerStage) Generate(ctx context.Context, category domain.SearchCategory, sources []domain.TextSource,
	history, query string, tier domain.Tier, forward ForwardFunc) (string, error) {
	system, err := AnswerSystemPrompt(category, sources, history)
	if err != nil {
		return "", err
	}

	req := llm.TextRequest{
		Model:       s.model,
		System:      system,
		Prompt:      query,
		MaxTokens:   s.budget.For(tier),
		Temperature: s.temperature,
	}
	return streamFragments(ctx, s.client, req, "answer", forward), nil
}

func streamFragments(ctx context.Context, client llm.StreamClient, req llm.TextRequest, stage string, forward ForwardFunc) string {
	var b strings.Builder
	for fragment, err := range client.StreamText(ctx, req) {
		if err != nil {
			observability.LoggerFromContext(ctx).Error("generation failed",
				"stage", stage, "model", req.Model, "error", err)
			forward(ApologyText)
			b.WriteString(ApologyText)
			break
		}
		if fragment == "" {
			continue
		}
		forward(fragment)
		b.WriteString(fragment)
	}
	return b.String()
}

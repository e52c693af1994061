package service

import (
	"context"

	"github.com/xiaot623/gogo/searchstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// RelatedMaxTokens bounds the related-questions output.
const RelatedMaxTokens = 512

// RelatedStage streams newline-delimited follow-up questions.
type RelatedStage struct {
	client      llm.StreamClient
	model       string
	temperature float64
}

func NewRelatedStage(client llm.StreamClient, model string, temperature float64) *RelatedStage {
	if temperature <= 0 {
		temperature = DefaultAnswerTemperature
	}
	return &RelatedStage{client: client, model: model, temperature: temperature}
}

// Generate forwards the related-question fragments and returns their
// concatenation. Failure handling matches AnswerStage.Generate.
func (s *RelatedStage) Generate(ctx context.Context, query string, sources []domain.TextSource, forward ForwardFunc) string {
	req := llm.TextRequest{
		Model:       s.model,
		System:      RelatedSystemPrompt(sources),
		Prompt:      query,
		MaxTokens:   RelatedMaxTokens,
		Temperature: s.temperature,
	}
	return streamFragments(ctx, s.client, req, "related", forward)
}

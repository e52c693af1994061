package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"
)

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

// ollamaChatResponse is one NDJSON line of a streamed chat.
type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// OllamaClient streams from a local Ollama server.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OllamaClient) StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var messages []ollamaMessage
		if req.System != "" {
			messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
		}
		messages = append(messages, ollamaMessage{Role: "user", Content: req.Prompt})

		jsonData, err := json.Marshal(ollamaChatRequest{
			Model:    req.Model,
			Messages: messages,
			Stream:   true,
			Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
		})
		if err != nil {
			yield("", fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
		if err != nil {
			yield("", fmt.Errorf("failed to create request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			yield("", fmt.Errorf("request failed: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			yield("", fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, string(body)))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Skip malformed lines
				continue
			}
			if chunk.Error != "" {
				yield("", fmt.Errorf("Ollama stream error: %s", chunk.Error))
				return
			}

			if content := chunk.Message.Content; content != "" {
				if !yield(content, nil) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("scanner error: %w", err))
		}
	}
}

// Package llm talks to the OpenAI-compatible AI service that
// evaluates answers and generates discussion questions. Evaluation
// results always pass through the eval normalizer, so callers get the
// guaranteed shape even when the upstream call fails entirely.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/eval"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/llm/prompts"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new AI client for the given endpoint and model.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping sends a minimal completion request to verify the AI service is
// reachable. The server refuses to start the interactive flow when
// this fails.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
		MaxTokens: 5,
	})
	if err != nil {
		return fmt.Errorf("AI availability check: %w", err)
	}
	return nil
}

// EvaluateAnswer runs the full JSON evaluation of a student answer.
// It never returns an error: upstream failures and malformed output
// collapse into the normalizer's default result and are logged for
// operators.
func (c *Client) EvaluateAnswer(ctx context.Context, question, answer string) eval.Result {
	raw, err := c.complete(ctx, prompts.BuildEvalPrompt(question, answer), 0.1, 800)
	if err != nil {
		slog.Error("answer evaluation failed", "error", err)
		return eval.DefaultResult()
	}

	result, parsed := eval.Normalize(raw)
	if !parsed {
		slog.Warn("evaluation response not parseable, using defaults", "raw", truncate(raw, 200))
	}
	return result
}

// SuggestImprovements runs the short plain-text form: three numbered
// suggestion lines, no scoring. Output is filtered and padded with the
// same rules as the full evaluation. Falls back to EvaluateAnswer's
// suggestions when the short form yields nothing usable.
func (c *Client) SuggestImprovements(ctx context.Context, question, answer string) []string {
	raw, err := c.complete(ctx, prompts.BuildSuggestionsPrompt(question, answer), 0.1, 300)
	if err != nil {
		slog.Error("suggestion request failed", "error", err)
		return eval.PadSuggestions(nil)
	}

	clean := eval.CleanSuggestions(eval.ParseNumbered(raw))
	if len(clean) == 0 {
		slog.Warn("short suggestion form unusable, falling back to full evaluation")
		return c.EvaluateAnswer(ctx, question, answer).Suggestions
	}
	return eval.PadSuggestions(clean)
}

// GenerateQuestion asks the AI for a discussion question for the
// teacher. Unlike evaluation this propagates errors: the teacher can
// simply retry, and there is no meaningful default question.
func (c *Client) GenerateQuestion(ctx context.Context, p prompts.QuestionParams) (string, error) {
	temperature := float32(0.7)
	if p.Regenerate {
		temperature = 0.9
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompts.BuildQuestionPrompt(p)},
		},
		Temperature: temperature,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("question generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("question generation: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("AI API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

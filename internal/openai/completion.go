package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// promptTruncationMarker is appended when a prompt exceeds maxPromptChars.
const promptTruncationMarker = "..."

// Complete sends prompt to the completion endpoint and returns the raw text
// of the first choice. maxTokens is capped at the client ceiling; values <= 0
// request the ceiling. Every failure is a *domain.GenerationError.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.chat == nil {
		return "", &domain.GenerationError{Detail: "completion endpoint not configured"}
	}
	if strings.TrimSpace(prompt) == "" {
		return "", &domain.GenerationError{Detail: ErrEmptyText.Error()}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &domain.GenerationError{Detail: "rate limit wait: " + err.Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.truncatePrompt(prompt)},
		},
		MaxTokens:   c.capTokens(maxTokens),
		Temperature: c.temperature,
	})
	if err != nil {
		return "", toGenerationError(callCtx, err)
	}

	if len(resp.Choices) == 0 {
		return "", &domain.GenerationError{Detail: "response contained no choices"}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &domain.GenerationError{Detail: "response content was empty"}
	}
	return content, nil
}

// MaxOutputTokens returns the effective token ceiling.
func (c *Client) MaxOutputTokens() int {
	return c.maxTokens
}

func (c *Client) capTokens(requested int) int {
	if requested <= 0 || requested > c.maxTokens {
		return c.maxTokens
	}
	return requested
}

func (c *Client) truncatePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= c.maxPromptChars {
		return prompt
	}
	return string(runes[:c.maxPromptChars]) + promptTruncationMarker
}

func toGenerationError(ctx context.Context, err error) *domain.GenerationError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.GenerationError{Detail: domain.GenerationTimeoutDetail}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.GenerationError{Status: apiErr.HTTPStatusCode, Detail: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := reqErr.Error()
		if reqErr.Err != nil {
			detail = reqErr.Err.Error()
		}
		return &domain.GenerationError{Status: reqErr.HTTPStatusCode, Detail: detail}
	}

	return &domain.GenerationError{Detail: err.Error()}
}

package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

// embeddingBatchSize is the number of inputs sent per embeddings request.
const embeddingBatchSize = 64

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) (domain.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed returns one vector per text, in order. Texts are sent in batches and
// share the client's rate budget with completions.
func (c *Client) Embed(ctx context.Context, texts []string) ([]domain.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	out := make([]domain.Vector, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to create embedding: %w", err)
		}
		raw, err := c.embeddings.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding: %w", err)
		}

		for _, e := range raw {
			if len(e) != c.dimensions {
				return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(e))
			}
			out = append(out, domain.Vector(e))
		}
	}

	return out, nil
}

package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

// DefaultTopK is the number of chunks returned when k is not positive.
const DefaultTopK = 3

// ScoredChunk is a chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk domain.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Retriever ranks document chunks against a query.
type Retriever struct {
	embedder Embedder
}

func NewRetriever(embedder Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// TopK embeds query and returns the k chunks of doc most similar to it.
func (r *Retriever) TopK(ctx context.Context, doc *domain.Document, query string, k int) ([]ScoredChunk, error) {
	if doc == nil || len(doc.Chunks) == 0 {
		return []ScoredChunk{}, nil
	}
	if r.embedder == nil || len(doc.Embeddings) != len(doc.Chunks) {
		return Rank(doc, nil, k), nil
	}

	qv, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return Rank(doc, qv, k), nil
}

// Rank orders the chunks of doc by cosine similarity to query, highest first,
// breaking ties by chunk index. A document without embeddings ranks every
// chunk at zero, so the first k chunks come back in order.
func Rank(doc *domain.Document, query domain.Vector, k int) []ScoredChunk {
	if doc == nil || len(doc.Chunks) == 0 {
		return []ScoredChunk{}
	}
	if k <= 0 {
		k = DefaultTopK
	}

	scored := make([]ScoredChunk, len(doc.Chunks))
	for i, c := range doc.Chunks {
		scored[i] = ScoredChunk{Chunk: c}
		if i < len(doc.Embeddings) && query != nil {
			scored[i].Score = query.Cosine(doc.Embeddings[i])
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Index < scored[j].Chunk.Index
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

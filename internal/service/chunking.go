package service

import (
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/extract"
)

// ChunkConfig controls how document text is split into word windows.
type ChunkConfig struct {
	MaxWords  int
	Overlap   int
	MinChars  int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxWords:  1000,
		Overlap:   100,
		MinChars:  100,
		MaxChunks: 0,
	}
}

// chunkText splits text into overlapping windows of at most MaxWords words.
// Windows shorter than MinChars or carrying an extraction failure marker are
// discarded; indexes stay contiguous over the kept chunks.
func chunkText(text string, cfg ChunkConfig) []domain.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if cfg.MaxWords <= 0 {
		cfg = DefaultChunkConfig()
	}

	step := cfg.MaxWords - cfg.Overlap
	if step <= 0 {
		step = cfg.MaxWords
	}

	chunks := make([]domain.Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxWords
		if end > len(words) {
			end = len(words)
		}

		chunk := strings.Join(words[start:end], " ")
		if len(chunk) >= cfg.MinChars && !extract.HasSentinel(chunk) {
			chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: chunk})
		}

		if end >= len(words) {
			break
		}
	}

	// A short document still yields one chunk so it can be questioned.
	if len(chunks) == 0 {
		if whole := strings.Join(words, " "); !extract.HasSentinel(whole) {
			chunks = append(chunks, domain.Chunk{Index: 0, Text: whole})
		}
	}

	return chunks
}

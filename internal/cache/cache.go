package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

type contentBlob struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	ModifiedTime time.Time `json:"modified_time"`
	CreatedAt    time.Time `json:"created_at"`
}

type chunksBlob struct {
	Chunks     []domain.Chunk  `json:"chunks"`
	Embeddings []domain.Vector `json:"embeddings"`
}

type questionsBlob struct {
	Questions []domain.Question `json:"questions"`
	SavedAt   time.Time         `json:"saved_at"`
}

// BlobCache stores documents and question sets in a BlobStore and keeps
// decoded documents in memory. One mutex guards every operation.
type BlobCache struct {
	store   BlobStore
	backend string

	mu  sync.Mutex
	mem map[string]*domain.Document
}

func NewBlobCache(store BlobStore, backend string) *BlobCache {
	return &BlobCache{
		store:   store,
		backend: backend,
		mem:     make(map[string]*domain.Document),
	}
}

// LoadDocument returns the cached document for name, or domain.ErrCacheMiss.
// Validity against the source modification time is the caller's decision.
func (c *BlobCache) LoadDocument(ctx context.Context, name string) (*domain.Document, error) {
	key := domain.CacheKey(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if doc, ok := c.mem[key]; ok {
		return doc, nil
	}

	rawContent, err := c.store.Get(ctx, BlobName(key, KindContent))
	if err != nil {
		return nil, err
	}
	rawChunks, err := c.store.Get(ctx, BlobName(key, KindChunks))
	if err != nil {
		return nil, err
	}

	var content contentBlob
	if err := json.Unmarshal(rawContent, &content); err != nil {
		return nil, fmt.Errorf("failed to decode cached content: %w", err)
	}
	var chunks chunksBlob
	if err := json.Unmarshal(rawChunks, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode cached chunks: %w", err)
	}

	doc := &domain.Document{
		Key:          key,
		Name:         content.Name,
		Content:      content.Content,
		Chunks:       chunks.Chunks,
		Embeddings:   chunks.Embeddings,
		ModifiedTime: content.ModifiedTime,
		CreatedAt:    content.CreatedAt,
	}
	c.mem[key] = doc
	return doc, nil
}

// SaveDocument persists doc and drops any question set cached for the
// previous version of the document.
func (c *BlobCache) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if err := domain.ValidateDocument(doc); err != nil {
		return err
	}

	content, err := json.Marshal(contentBlob{
		Key:          doc.Key,
		Name:         doc.Name,
		Content:      doc.Content,
		ModifiedTime: doc.ModifiedTime,
		CreatedAt:    doc.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	chunks, err := json.Marshal(chunksBlob{Chunks: doc.Chunks, Embeddings: doc.Embeddings})
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, BlobName(doc.Key, KindQuestions)); err != nil {
		return err
	}
	// Chunks first: a content blob without chunks reads as a miss.
	if err := c.store.Put(ctx, BlobName(doc.Key, KindChunks), chunks); err != nil {
		return err
	}
	if err := c.store.Put(ctx, BlobName(doc.Key, KindContent), content); err != nil {
		return err
	}
	c.mem[doc.Key] = doc
	return nil
}

// LoadQuestions returns the question set cached for name.
func (c *BlobCache) LoadQuestions(ctx context.Context, name string) ([]domain.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.store.Get(ctx, BlobName(domain.CacheKey(name), KindQuestions))
	if err != nil {
		return nil, err
	}
	var blob questionsBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("failed to decode cached questions: %w", err)
	}
	return blob.Questions, nil
}

// SaveQuestions replaces the question set cached for name.
func (c *BlobCache) SaveQuestions(ctx context.Context, name string, questions []domain.Question) error {
	raw, err := json.Marshal(questionsBlob{Questions: questions, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Put(ctx, BlobName(domain.CacheKey(name), KindQuestions), raw)
}

// Clear removes every blob and returns the number of documents dropped.
func (c *BlobCache) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobs, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, b := range blobs {
		if err := c.store.Delete(ctx, b.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, kind, _ := ParseBlobName(b.Name); kind == KindContent {
			removed++
		}
	}
	c.mem = make(map[string]*domain.Document)
	return removed, errors.Join(errs...)
}

// Stats counts cached documents and question sets and their total size.
func (c *BlobCache) Stats(ctx context.Context) (*domain.CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobs, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.CacheStats{Backend: c.backend}
	for _, b := range blobs {
		_, kind, _ := ParseBlobName(b.Name)
		switch kind {
		case KindContent:
			stats.Documents++
		case KindQuestions:
			stats.QuestionSets++
		}
		stats.SizeBytes += b.Size
	}
	stats.SizeMB = float64(stats.SizeBytes) / (1024 * 1024)
	return stats, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/extract"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"golang.org/x/sync/singleflight"
)

// DocumentCache is implemented by every cache backend.
type DocumentCache interface {
	LoadDocument(ctx context.Context, name string) (*domain.Document, error)
	SaveDocument(ctx context.Context, doc *domain.Document) error
	LoadQuestions(ctx context.Context, name string) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, name string, questions []domain.Question) error
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*domain.CacheStats, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) (domain.Vector, error)
	Embed(ctx context.Context, texts []string) ([]domain.Vector, error)
}

// Loader produces the raw extracted text of a source.
type Loader func(ctx context.Context) (string, error)

// ContentStore owns extracted documents and their chunk/embedding
// decomposition. It is the only writer of document cache entries.
type ContentStore struct {
	cache    DocumentCache
	embedder Embedder
	chunkCfg ChunkConfig
	log      *logger.Logger
	now      func() time.Time

	group singleflight.Group
}

func NewContentStore(cache DocumentCache, embedder Embedder, chunkCfg ChunkConfig, log *logger.Logger) *ContentStore {
	return &ContentStore{
		cache:    cache,
		embedder: embedder,
		chunkCfg: chunkCfg,
		log:      logger.OrNop(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type buildResult struct {
	doc *domain.Document
	hit bool
}

// GetOrBuild returns the document called name. A cached entry whose modified
// time is within one second of modTime is returned without calling load and
// reported as a hit; a hit cached without vectors is embedded again when an
// embedder is available. Otherwise the text is loaded, cleaned, chunked,
// embedded and persisted. Concurrent calls for the same name share one build.
func (s *ContentStore) GetOrBuild(ctx context.Context, name string, modTime time.Time, load Loader) (*domain.Document, bool, error) {
	key := domain.CacheKey(name)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		cached, err := s.cache.LoadDocument(ctx, name)
		switch {
		case err == nil && cached.Valid(modTime):
			s.backfillEmbeddings(ctx, cached)
			return buildResult{doc: cached, hit: true}, nil
		case err == nil:
			s.log.Info("content store: cache entry is stale", "document", name,
				"cached_modified", cached.ModifiedTime, "source_modified", modTime)
		case !errors.Is(err, domain.ErrCacheMiss):
			s.log.Warn("content store: cache read failed", "document", name, "error", err)
		}

		doc, err := s.build(ctx, name, modTime, load)
		if err != nil {
			return nil, err
		}
		return buildResult{doc: doc}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(buildResult)
	return res.doc, res.hit, nil
}

func (s *ContentStore) build(ctx context.Context, name string, modTime time.Time, load Loader) (*domain.Document, error) {
	raw, err := load(ctx)
	if err != nil {
		return nil, err
	}

	text := extract.Clean(extract.StripSentinels(raw))
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ExtractionError{Source: name, Reason: "no extractable text"}
	}

	chunks := chunkText(text, s.chunkCfg)
	if len(chunks) == 0 {
		return nil, &domain.ExtractionError{Source: name, Reason: "no usable chunks"}
	}

	doc := &domain.Document{
		Key:          domain.CacheKey(name),
		Name:         name,
		Content:      text,
		Chunks:       chunks,
		ModifiedTime: modTime,
		CreatedAt:    s.now(),
	}

	// Without embeddings retrieval degrades to document order. The text and
	// chunks are cached anyway so the source is extracted once.
	if s.embedder != nil {
		if err := s.embed(ctx, doc); err != nil {
			s.log.Warn("content store: embedding failed", "document", name, "error", err)
		}
	}

	if err := s.cache.SaveDocument(ctx, doc); err != nil {
		s.log.Warn("content store: cache write failed", "document", name, "error", err)
	} else {
		s.log.Info("content store: document cached", "document", name, "chunks", len(chunks))
	}
	return doc, nil
}

func (s *ContentStore) backfillEmbeddings(ctx context.Context, doc *domain.Document) {
	if s.embedder == nil || len(doc.Embeddings) == len(doc.Chunks) {
		return
	}
	if err := s.embed(ctx, doc); err != nil {
		s.log.Warn("content store: embedding cached document failed", "document", doc.Name, "error", err)
		return
	}
	if err := s.cache.SaveDocument(ctx, doc); err != nil {
		s.log.Warn("content store: cache write failed", "document", doc.Name, "error", err)
		return
	}
	s.log.Info("content store: cached document embedded", "document", doc.Name, "chunks", len(doc.Chunks))
}

func (s *ContentStore) embed(ctx context.Context, doc *domain.Document) error {
	if s.embedder == nil {
		return errors.New("no embedder configured")
	}
	vectors, err := s.embedder.Embed(ctx, doc.ChunkTexts())
	if err != nil {
		return err
	}
	if len(vectors) != len(doc.Chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(doc.Chunks))
	}
	doc.Embeddings = vectors
	return nil
}

// CachedQuestions returns the question set cached for name.
func (s *ContentStore) CachedQuestions(ctx context.Context, name string) ([]domain.Question, error) {
	return s.cache.LoadQuestions(ctx, name)
}

// StoreQuestions caches the question set generated for name.
func (s *ContentStore) StoreQuestions(ctx context.Context, name string, questions []domain.Question) error {
	return s.cache.SaveQuestions(ctx, name, questions)
}

// Clear removes every cached document and returns how many were removed.
func (s *ContentStore) Clear(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx)
}

// Stats reports what the cache currently holds.
func (s *ContentStore) Stats(ctx context.Context) (*domain.CacheStats, error) {
	return s.cache.Stats(ctx)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentRepository is the Postgres cache backend: documents, their chunk
// embeddings as pgvector columns, and generated question sets.
type DocumentRepository struct {
	pool *pgxpool.Pool
	db   dbtx

	// Serializes check-then-write sequences issued by this process.
	mu sync.Mutex
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool, db: pool}
}

// LoadDocument returns the cached document for name, or domain.ErrCacheMiss.
func (r *DocumentRepository) LoadDocument(ctx context.Context, name string) (*domain.Document, error) {
	key := domain.CacheKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	doc := domain.Document{Key: key}
	err := r.db.QueryRow(ctx,
		`SELECT name, content, modified_time, created_at FROM documents WHERE key = $1`,
		key,
	).Scan(&doc.Name, &doc.Content, &doc.ModifiedTime, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT chunk_index, content, embedding FROM document_chunks
		 WHERE document_key = $1 ORDER BY chunk_index ASC`,
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	missing := false
	for rows.Next() {
		var c domain.Chunk
		var v *pgvector.Vector
		if err := rows.Scan(&c.Index, &c.Text, &v); err != nil {
			return nil, err
		}
		doc.Chunks = append(doc.Chunks, c)
		if v == nil {
			missing = true
			continue
		}
		doc.Embeddings = append(doc.Embeddings, domain.Vector(v.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if missing {
		doc.Embeddings = nil
	}

	return &doc, nil
}

// SaveDocument replaces the document, its chunks and drops its question set
// in one transaction.
func (r *DocumentRepository) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if err := domain.ValidateDocument(doc); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := saveDocument(ctx, tx, doc); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func saveDocument(ctx context.Context, db dbtx, doc *domain.Document) error {
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// Deleting the row cascades to its chunks and question set.
	if _, err := db.Exec(ctx, `DELETE FROM documents WHERE key = $1`, doc.Key); err != nil {
		return err
	}
	_, err := db.Exec(ctx,
		`INSERT INTO documents (key, name, content, modified_time, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		doc.Key, doc.Name, doc.Content, doc.ModifiedTime, createdAt,
	)
	if err != nil {
		return err
	}

	for i, c := range doc.Chunks {
		// Documents cached without vectors store NULL embeddings.
		var embedding *pgvector.Vector
		if len(doc.Embeddings) == len(doc.Chunks) {
			v := pgvector.NewVector(doc.Embeddings[i])
			embedding = &v
		}
		_, err := db.Exec(ctx,
			`INSERT INTO document_chunks (document_key, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4)`,
			doc.Key, c.Index, c.Text, embedding,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadQuestions returns the question set cached for name.
func (r *DocumentRepository) LoadQuestions(ctx context.Context, name string) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var raw []byte
	err := r.db.QueryRow(ctx,
		`SELECT questions FROM question_sets WHERE document_key = $1`,
		domain.CacheKey(name),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}

	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode cached questions: %w", err)
	}
	return questions, nil
}

// SaveQuestions upserts the question set for name. The document must already
// be cached.
func (r *DocumentRepository) SaveQuestions(ctx context.Context, name string, questions []domain.Question) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(ctx,
		`INSERT INTO question_sets (document_key, questions, saved_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (document_key) DO UPDATE SET questions = EXCLUDED.questions, saved_at = EXCLUDED.saved_at`,
		domain.CacheKey(name), raw, time.Now().UTC(),
	)
	return err
}

// Clear deletes every cached document and returns how many were removed.
func (r *DocumentRepository) Clear(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag, err := r.db.Exec(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Stats reports row counts and the on-disk size of the cache tables.
func (r *DocumentRepository) Stats(ctx context.Context) (*domain.CacheStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.CacheStats{Backend: "postgres"}
	err := r.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM question_sets),
			pg_total_relation_size('documents') + pg_total_relation_size('document_chunks') + pg_total_relation_size('question_sets')`,
	).Scan(&stats.Documents, &stats.QuestionSets, &stats.SizeBytes)
	if err != nil {
		return nil, err
	}
	stats.SizeMB = float64(stats.SizeBytes) / (1024 * 1024)
	return stats, nil
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ModifiedTimeTolerance is the clock-skew allowance when comparing a cached
// modification time against the source's.
const ModifiedTimeTolerance = time.Second

// Chunk is a word-window slice of a document's text
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Document is extracted text plus its chunk/embedding decomposition.
// Embeddings are aligned 1:1 with Chunks.
type Document struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	Chunks       []Chunk   `json:"chunks"`
	Embeddings   []Vector  `json:"embeddings"`
	ModifiedTime time.Time `json:"modified_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// CacheEntry is the persisted projection of a Document.
type CacheEntry = Document

// CacheKey derives the stable cache key of a document from its logical name.
func CacheKey(name string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(name)))
	return hex.EncodeToString(sum[:])[:24]
}

// Valid reports whether the entry may be reused for a source last modified at
// modTime.
func (d *Document) Valid(modTime time.Time) bool {
	if d == nil {
		return false
	}
	diff := d.ModifiedTime.Sub(modTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= ModifiedTimeTolerance
}

// ChunkTexts returns the text of every chunk in order.
func (d *Document) ChunkTexts() []string {
	texts := make([]string, len(d.Chunks))
	for i, c := range d.Chunks {
		texts[i] = c.Text
	}
	return texts
}

// ValidateDocument checks the structural invariants of a Document
func ValidateDocument(d *Document) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document cannot be nil")
	}
	if d.Key == "" {
		return NewDomainError(ErrCodeValidation, "document key is required")
	}
	if strings.TrimSpace(d.Content) == "" {
		return NewDomainError(ErrCodeValidation, "document content is required")
	}
	if len(d.Embeddings) != 0 && len(d.Embeddings) != len(d.Chunks) {
		return NewDomainError(ErrCodeValidation, "embeddings must align with chunks")
	}
	return nil
}

// CacheStats summarizes what a cache backend currently holds
type CacheStats struct {
	Backend      string  `json:"backend"`
	Documents    int     `json:"documents"`
	QuestionSets int     `json:"question_sets"`
	SizeBytes    int64   `json:"size_bytes"`
	SizeMB       float64 `json:"size_mb"`
}

// SourceFile is one file of a generation request
type SourceFile struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

// DisplayName is the logical name used as cache identity.
func (f SourceFile) DisplayName() string {
	if f.FileName != "" {
		return f.FileName
	}
	return f.URL
}

// FailedFile records a per-file failure reported alongside results
type FailedFile struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	Error    string `json:"error"`
}

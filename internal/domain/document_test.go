package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("lecture-01.pdf")
	b := CacheKey("lecture-01.pdf")
	c := CacheKey("lecture-02.pdf")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 24)
	assert.Equal(t, a, CacheKey("  lecture-01.pdf "))
}

func TestDocumentValid(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &Document{ModifiedTime: base}

	tests := []struct {
		name    string
		modTime time.Time
		want    bool
	}{
		{"identical", base, true},
		{"within tolerance ahead", base.Add(900 * time.Millisecond), true},
		{"within tolerance behind", base.Add(-time.Second), true},
		{"beyond tolerance", base.Add(1100 * time.Millisecond), false},
		{"far in the past", base.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doc.Valid(tt.modTime))
		})
	}

	var nilDoc *Document
	assert.False(t, nilDoc.Valid(base))
}

func TestValidateDocument(t *testing.T) {
	doc := &Document{
		Key:        "k",
		Content:    "text",
		Chunks:     []Chunk{{Index: 0, Text: "text"}},
		Embeddings: []Vector{{1, 0}},
	}
	assert.NoError(t, ValidateDocument(doc))

	doc.Embeddings = append(doc.Embeddings, Vector{0, 1})
	assert.Error(t, ValidateDocument(doc))

	assert.Error(t, ValidateDocument(&Document{Key: "k", Content: " "}))
	assert.Error(t, ValidateDocument(&Document{Content: "text"}))
	assert.Error(t, ValidateDocument(nil))
}

func TestSourceFileDisplayName(t *testing.T) {
	assert.Equal(t, "notes.pdf", SourceFile{URL: "https://example.com/x.pdf", FileName: "notes.pdf"}.DisplayName())
	assert.Equal(t, "https://example.com/x.pdf", SourceFile{URL: "https://example.com/x.pdf"}.DisplayName())
}

func TestVectorCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Vector{1, 2, 3}.Cosine(Vector{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Vector{1, 0}.Cosine(Vector{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Vector{1, 0}.Cosine(Vector{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Vector{1, 0}.Cosine(Vector{1, 0, 0}))
	assert.Equal(t, 0.0, Vector{0, 0}.Cosine(Vector{1, 0}))
	assert.Equal(t, 0.0, Vector{}.Cosine(Vector{}))
	assert.Equal(t, 3, Vector{1, 2, 3}.Dimensions())
}

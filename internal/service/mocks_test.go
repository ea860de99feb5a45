package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/quizgen/internal/cache"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCompleter is a mock implementation of Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	args := m.Called(ctx, prompt, maxTokens)
	return args.String(0), args.Error(1)
}

// MockSourceFetcher is a mock implementation of SourceFetcher
type MockSourceFetcher struct {
	mock.Mock
}

func (m *MockSourceFetcher) ModifiedTime(ctx context.Context, raw string) (time.Time, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockSourceFetcher) PDFLoader(raw, name string) Loader {
	args := m.Called(raw, name)
	return args.Get(0).(Loader)
}

// completerFunc adapts a function to Completer and counts calls.
type completerFunc struct {
	fn    func(prompt string) (string, error)
	calls atomic.Int32
}

func (c *completerFunc) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	c.calls.Add(1)
	return c.fn(prompt)
}

// fakeEmbedder hashes words into a small bag-of-words vector.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

const fakeDims = 32

func embedText(text string) domain.Vector {
	v := make(domain.Vector, fakeDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,;:!?")))
		v[h.Sum32()%fakeDims]++
	}
	return v
}

func (e *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) (domain.Vector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return embedText(text), nil
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([]domain.Vector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([]domain.Vector, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func (e *fakeEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newFSCache(t *testing.T) *cache.BlobCache {
	t.Helper()
	store, err := cache.NewFSStore(t.TempDir())
	require.NoError(t, err)
	return cache.NewBlobCache(store, "fs")
}

func newTestStore(t *testing.T, embedder Embedder) *ContentStore {
	t.Helper()
	return NewContentStore(newFSCache(t), embedder, ChunkConfig{MaxWords: 40, Overlap: 5, MinChars: 20}, nil)
}

func staticLoader(text string) Loader {
	return func(ctx context.Context) (string, error) { return text, nil }
}

func failingLoader(err error) Loader {
	return func(ctx context.Context) (string, error) { return "", err }
}

// sampleText returns a document with several distinct topics.
func sampleText() string {
	topics := []string{
		"Photosynthesis converts light energy into chemical energy stored in glucose inside plant chloroplasts.",
		"The mitochondria produce adenosine triphosphate through cellular respiration using oxygen and glucose.",
		"Plate tectonics explains earthquakes volcanoes and mountain building along boundaries of lithosphere plates.",
		"The water cycle moves moisture through evaporation condensation precipitation and collection in oceans.",
	}
	var sb strings.Builder
	for _, t := range topics {
		for i := 0; i < 4; i++ {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var countPattern = regexp.MustCompile(`Generate exactly (\d+)`)

func requestedCount(prompt string) int {
	m := countPattern.FindStringSubmatch(prompt)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func questionObject(i int) map[string]interface{} {
	choices := make([]map[string]interface{}, 4)
	for j := range choices {
		choices[j] = map[string]interface{}{
			"content":     fmt.Sprintf("Answer %d for question %d", j+1, i),
			"is_correct":  j == 0,
			"explanation": fmt.Sprintf("Reason %d", j+1),
		}
	}
	return map[string]interface{}{
		"question":    fmt.Sprintf("Generated question %d?", i),
		"difficulty":  "easy",
		"explanation": "Because the text says so.",
		"choices":     choices,
	}
}

func questionsJSON(n int) string {
	qs := make([]map[string]interface{}, n)
	for i := range qs {
		qs[i] = questionObject(i)
	}
	b, _ := json.Marshal(map[string]interface{}{"questions": qs})
	return string(b)
}

// exactGenerator answers every prompt with exactly the requested count.
func exactGenerator() *completerFunc {
	return &completerFunc{fn: func(prompt string) (string, error) {
		return questionsJSON(requestedCount(prompt)), nil
	}}
}

func garbageGenerator() *completerFunc {
	return &completerFunc{fn: func(string) (string, error) {
		return "I'm sorry, I cannot help with that request today.", nil
	}}
}

func failingGenerator() *completerFunc {
	return &completerFunc{fn: func(string) (string, error) {
		return "", &domain.GenerationError{Status: 500, Detail: "upstream error"}
	}}
}

var errBoom = errors.New("boom")

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func testDocument(t *testing.T) *domain.Document {
	t.Helper()
	store := newTestStore(t, &fakeEmbedder{})
	doc, _, err := store.GetOrBuild(context.Background(), "sample.pdf", time.Time{}, staticLoader(sampleText()))
	require.NoError(t, err)
	return doc
}

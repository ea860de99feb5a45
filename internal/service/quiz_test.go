package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	goodURL = "https://example.com/biology.pdf"
	badURL  = "https://example.com/missing.pdf"
)

func newTestQuizService(t *testing.T, fetcher SourceFetcher, gen Completer, questionCache bool) *QuizService {
	t.Helper()
	store := newTestStore(t, &fakeEmbedder{})
	orch := newTestOrchestrator(gen)
	return NewQuizService(store, fetcher, orch, NewSummarizer(nil, nil, nil), QuizConfig{QuestionCache: questionCache}, nil)
}

func goodFetcher() *MockSourceFetcher {
	f := new(MockSourceFetcher)
	f.On("ModifiedTime", mock.Anything, goodURL).Return(lastModified, nil)
	f.On("PDFLoader", goodURL, mock.Anything).Return(staticLoader(sampleText()))
	return f
}

func TestDistributeQuestions(t *testing.T) {
	assert.Equal(t, []int{4, 3, 3}, DistributeQuestions(10, 3))
	assert.Equal(t, []int{1, 1, 0}, DistributeQuestions(2, 3))
	assert.Equal(t, []int{300}, DistributeQuestions(300, 1))
	assert.Nil(t, DistributeQuestions(5, 0))
}

func TestQuizService_Validate(t *testing.T) {
	s := newTestQuizService(t, goodFetcher(), exactGenerator(), false)
	file := domain.SourceFile{URL: goodURL}

	tests := []struct {
		name string
		req  domain.QuizRequest
	}{
		{"no files", domain.QuizRequest{TotalQuestions: 5}},
		{"too many files", domain.QuizRequest{Files: make([]domain.SourceFile, 11), TotalQuestions: 5}},
		{"zero questions", domain.QuizRequest{Files: []domain.SourceFile{file}}},
		{"too many questions", domain.QuizRequest{Files: []domain.SourceFile{file}, TotalQuestions: 301}},
		{"blank url", domain.QuizRequest{Files: []domain.SourceFile{{URL: " "}}, TotalQuestions: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Generate(context.Background(), tt.req, nil)
			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
		})
	}
}

func TestQuizService_SingleFile(t *testing.T) {
	gen := exactGenerator()
	s := newTestQuizService(t, goodFetcher(), gen, false)

	req := domain.QuizRequest{
		Files:          []domain.SourceFile{{URL: goodURL, FileName: "biology.pdf"}},
		TotalQuestions: 12,
		ProjectID:      "proj-1",
		Name:           "Week 1",
	}
	res, err := s.Generate(context.Background(), req, nil)
	require.NoError(t, err)

	require.Len(t, res.Questions, 12)
	assert.Empty(t, res.FailedFiles)
	assert.NotNil(t, res.FailedFiles)
	assert.NotEmpty(t, res.Summary)
	assert.Equal(t, 12, res.Metadata.GeneratedCount)
	assert.Equal(t, 0, res.Metadata.FallbackCount)
	assert.Equal(t, 1, res.Metadata.ProcessedFiles)
	assert.Equal(t, "proj-1", res.Metadata.ProjectID)
	assert.Equal(t, map[string]int{"biology.pdf": 12}, res.Metadata.Distribution)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestQuizService_OneOfTwoFilesFails(t *testing.T) {
	fetcher := goodFetcher()
	fetcher.On("ModifiedTime", mock.Anything, badURL).
		Return(time.Time{}, &domain.DownloadError{URL: badURL, Status: 404})

	s := newTestQuizService(t, fetcher, exactGenerator(), false)
	req := domain.QuizRequest{
		Files: []domain.SourceFile{
			{URL: goodURL, FileName: "biology.pdf"},
			{URL: badURL, FileName: "missing.pdf"},
		},
		TotalQuestions: 10,
	}

	res, err := s.Generate(context.Background(), req, nil)
	require.NoError(t, err)

	require.Len(t, res.Questions, 10)
	require.Len(t, res.FailedFiles, 1)
	assert.Equal(t, "missing.pdf", res.FailedFiles[0].FileName)
	assert.Equal(t, badURL, res.FailedFiles[0].URL)
	assert.Contains(t, res.FailedFiles[0].Error, "404")

	assert.Equal(t, 5, res.Metadata.GeneratedCount)
	assert.Equal(t, 5, res.Metadata.FallbackCount)
	assert.Equal(t, 1, res.Metadata.ProcessedFiles)

	generated, fallback := 0, 0
	for i := range res.Questions {
		require.NoError(t, domain.ValidateQuestion(&res.Questions[i]))
		switch res.Questions[i].Source {
		case domain.SourceGenerated:
			generated++
		case domain.SourceFallback:
			fallback++
		}
	}
	assert.Equal(t, 5, generated)
	assert.Equal(t, 5, fallback)
}

func TestQuizService_AllFilesFail(t *testing.T) {
	fetcher := new(MockSourceFetcher)
	fetcher.On("ModifiedTime", mock.Anything, badURL).
		Return(time.Time{}, &domain.DownloadError{URL: badURL, Status: 404})
	fetcher.On("ModifiedTime", mock.Anything, goodURL).Return(lastModified, nil)
	fetcher.On("PDFLoader", goodURL, mock.Anything).
		Return(failingLoader(&domain.ExtractionError{Source: "scan.pdf", Reason: "unreadable pdf"}))

	s := newTestQuizService(t, fetcher, exactGenerator(), false)
	req := domain.QuizRequest{
		Files: []domain.SourceFile{
			{URL: goodURL, FileName: "scan.pdf"},
			{URL: badURL, FileName: "missing.pdf"},
		},
		TotalQuestions: 4,
	}

	_, err := s.Generate(context.Background(), req, nil)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeAllFilesFailed, domainErr.Code)
	assert.Contains(t, domainErr.Message, "scan.pdf")
	assert.Contains(t, domainErr.Message, "missing.pdf")
}

func TestQuizService_QuestionCacheReuse(t *testing.T) {
	gen := exactGenerator()
	s := newTestQuizService(t, goodFetcher(), gen, true)
	req := domain.QuizRequest{
		Files:          []domain.SourceFile{{URL: goodURL, FileName: "biology.pdf"}},
		TotalQuestions: 8,
	}
	ctx := context.Background()

	first, err := s.Generate(ctx, req, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), gen.calls.Load())

	req.TotalQuestions = 5
	second, err := s.Generate(ctx, req, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, first.Questions[:5], second.Questions)
	assert.Equal(t, 1, second.Metadata.CachedFiles)

	// More than is cached triggers a fresh generation.
	req.TotalQuestions = 9
	_, err = s.Generate(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestQuizService_FallbackQuestionsAreNotCached(t *testing.T) {
	gen := garbageGenerator()
	s := newTestQuizService(t, goodFetcher(), gen, true)
	req := domain.QuizRequest{
		Files:          []domain.SourceFile{{URL: goodURL, FileName: "biology.pdf"}},
		TotalQuestions: 3,
	}
	ctx := context.Background()

	_, err := s.Generate(ctx, req, nil)
	require.NoError(t, err)
	calls := gen.calls.Load()

	res, err := s.Generate(ctx, req, nil)
	require.NoError(t, err)
	assert.Greater(t, gen.calls.Load(), calls)
	assert.Equal(t, 3, res.Metadata.FallbackCount)
}

func TestQuizService_ReportsProgress(t *testing.T) {
	s := newTestQuizService(t, goodFetcher(), exactGenerator(), false)
	req := domain.QuizRequest{
		Files: []domain.SourceFile{
			{URL: goodURL, FileName: "a.pdf"},
			{URL: goodURL, FileName: "b.pdf"},
		},
		TotalQuestions: 4,
	}

	var mu sync.Mutex
	var seen []int
	_, err := s.Generate(context.Background(), req, func(p int, msg string) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, 5, seen[0])
	assert.Equal(t, 90, seen[len(seen)-1])
	for _, p := range seen {
		assert.True(t, p >= 0 && p <= 100)
	}
}

func TestQuizService_CancelledContext(t *testing.T) {
	s := newTestQuizService(t, goodFetcher(), exactGenerator(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Generate(ctx, domain.QuizRequest{
		Files:          []domain.SourceFile{{URL: goodURL}},
		TotalQuestions: 3,
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

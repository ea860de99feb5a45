package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/quizgen/internal/api"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuizService struct {
	mock.Mock
}

func (m *MockQuizService) Validate(req domain.QuizRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockQuizService) Generate(ctx context.Context, req domain.QuizRequest, progress service.ProgressFunc) (*domain.QuizResult, error) {
	args := m.Called(ctx, req, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizResult), args.Error(1)
}

type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Create(req domain.QuizRequest) *domain.Task {
	args := m.Called(req)
	return args.Get(0).(*domain.Task)
}

func (m *MockTaskStore) Get(id string) (*domain.Task, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockTaskStore) List() []*domain.Task {
	args := m.Called()
	return args.Get(0).([]*domain.Task)
}

func (m *MockTaskStore) Counts() map[domain.TaskStatus]int {
	args := m.Called()
	return args.Get(0).(map[domain.TaskStatus]int)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Clear(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockCacheService) Stats(ctx context.Context) (*domain.CacheStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CacheStats), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Answer(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResponse), args.Error(1)
}

type MockGeneratorStatus struct {
	mock.Mock
}

func (m *MockGeneratorStatus) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockGeneratorStatus) Model() string {
	args := m.Called()
	return args.String(0)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeData unwraps the success envelope into v.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleRequest() domain.QuizRequest {
	return domain.QuizRequest{
		Files: []domain.SourceFile{
			{URL: "https://example.com/a.pdf", FileName: "a.pdf"},
			{URL: "https://example.com/b.pdf", FileName: "b.pdf"},
		},
		TotalQuestions: 12,
		ProjectID:      "proj-1",
		Name:           "Week 1",
	}
}

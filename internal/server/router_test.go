package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/quizgen/internal/api/handlers"
	"github.com/cloo-solutions/quizgen/internal/api/middleware"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/jobs"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/service"
	"github.com/stretchr/testify/assert"
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

type testServer struct {
	handler  http.Handler
	quiz     *MockQuizService
	cache    *MockCacheService
	chat     *MockChatService
	registry *jobs.Registry
}

func newTestServer(t *testing.T, validator middleware.AuthValidator) *testServer {
	t.Helper()
	ts := &testServer{
		quiz:     new(MockQuizService),
		cache:    new(MockCacheService),
		chat:     new(MockChatService),
		registry: jobs.NewRegistry(),
	}
	ts.cache.On("Stats", mock.Anything).Return(&domain.CacheStats{Backend: "fs"}, nil).Maybe()

	ts.handler = NewRouter(RouterConfig{
		AuthValidator: validator,
		Logger:        logger.Nop(),
		MaxBodyBytes:  1024,
		QuizHandler:   handlers.NewQuizHandler(ts.quiz, ts.registry),
		TaskHandler:   handlers.NewTaskHandler(ts.registry),
		CacheHandler:  handlers.NewCacheHandler(ts.cache),
		ChatHandler:   handlers.NewChatHandler(ts.chat),
		HealthHandler: handlers.NewHealthHandler(ts.cache, ts.registry, nil),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func sampleRequest() domain.QuizRequest {
	return domain.QuizRequest{
		Files:          []domain.SourceFile{{URL: "https://example.com/a.pdf", FileName: "a.pdf"}},
		TotalQuestions: 5,
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	ts := newTestServer(t, middleware.StaticKey("secret"))

	w := ts.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_ProtectedRoutesRequireKey(t *testing.T) {
	ts := newTestServer(t, middleware.StaticKey("secret"))

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/generate-questions"},
		{http.MethodPost, "/generate-questions/async"},
		{http.MethodGet, "/task-status/abc"},
		{http.MethodGet, "/task-result/abc"},
		{http.MethodGet, "/tasks"},
		{http.MethodDelete, "/tasks/abc"},
		{http.MethodDelete, "/cache"},
		{http.MethodGet, "/cache/info"},
		{http.MethodPost, "/chat"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := ts.do(t, rt.method, rt.path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_AsyncLifecycle(t *testing.T) {
	ts := newTestServer(t, middleware.StaticKey("secret"))
	auth := map[string]string{"Authorization": "Bearer secret"}
	req := sampleRequest()
	ts.quiz.On("Validate", req).Return(nil)

	w := ts.do(t, http.MethodPost, "/generate-questions/async", req, auth)
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		Data handlers.AsyncResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	id := accepted.Data.TaskID
	require.NotEmpty(t, id)
	assert.Equal(t, domain.TaskStatusPending, accepted.Data.Status)

	w = ts.do(t, http.MethodGet, "/task-status/"+id, nil, auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/task-result/"+id, nil, auth)
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := ts.registry.Update(id, func(task *domain.Task) {
		task.Status = domain.TaskStatusCompleted
		task.Progress = 100
		task.Result = &domain.QuizResult{Summary: "done"}
	})
	require.NoError(t, err)

	w = ts.do(t, http.MethodGet, "/task-result/"+id, nil, auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/tasks", nil, auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/tasks/"+id, nil, auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/task-status/"+id, nil, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CacheRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cache.On("Clear", mock.Anything).Return(4, nil)

	w := ts.do(t, http.MethodDelete, "/cache", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":4`)

	w = ts.do(t, http.MethodGet, "/cache/info", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"fs"`)
}

func TestRouter_BodyLimit(t *testing.T) {
	ts := newTestServer(t, nil)

	big := service.ChatRequest{Message: string(bytes.Repeat([]byte("a"), 4096))}
	w := ts.do(t, http.MethodPost, "/chat", big, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	ts.chat.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
}

func TestRouter_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

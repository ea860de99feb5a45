package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChatHandler_Chat(t *testing.T) {
	svc := new(MockChatService)
	req := service.ChatRequest{
		File:    domain.SourceFile{URL: "https://example.com/a.pdf", FileName: "a.pdf"},
		Message: "What is photosynthesis?",
		Mode:    service.ChatModeDocument,
	}
	svc.On("Answer", mock.Anything, req).Return(&service.ChatResponse{
		Answer:  "It converts light into chemical energy.",
		Sources: []service.ChatSource{{Text: "passage", Score: 0.9}},
	}, nil)

	h := NewChatHandler(svc)
	w := httptest.NewRecorder()
	h.Chat(w, httptest.NewRequest(http.MethodPost, "/chat", jsonBody(t, req)))

	assert.Equal(t, http.StatusOK, w.Code)
	var got service.ChatResponse
	decodeData(t, w, &got)
	assert.Contains(t, got.Answer, "light")
	require.Len(t, got.Sources, 1)
	assert.Empty(t, got.Extended)
}

func TestChatHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", domain.NewDomainError(domain.ErrCodeValidation, "message is required"), http.StatusBadRequest},
		{"generator unavailable", domain.ErrGeneratorUnavailable, http.StatusServiceUnavailable},
		{"download failed", &domain.DownloadError{URL: "https://example.com/a.pdf", Status: 404}, http.StatusUnprocessableEntity},
		{"generation failed", domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer generation failed",
			&domain.GenerationError{Status: 503, Detail: "overloaded"}), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockChatService)
			svc.On("Answer", mock.Anything, mock.Anything).Return(nil, tt.err)

			h := NewChatHandler(svc)
			w := httptest.NewRecorder()
			h.Chat(w, httptest.NewRequest(http.MethodPost, "/chat", jsonBody(t, service.ChatRequest{Message: "hi"})))

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

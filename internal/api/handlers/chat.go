package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/api"
	"github.com/cloo-solutions/quizgen/internal/service"
)

type ChatService interface {
	Answer(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.svc.Answer(r.Context(), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resp)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/api"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/service"
)

type QuizService interface {
	Validate(req domain.QuizRequest) error
	Generate(ctx context.Context, req domain.QuizRequest, progress service.ProgressFunc) (*domain.QuizResult, error)
}

type TaskCreator interface {
	Create(req domain.QuizRequest) *domain.Task
}

type QuizHandler struct {
	svc   QuizService
	tasks TaskCreator
}

func NewQuizHandler(svc QuizService, tasks TaskCreator) *QuizHandler {
	return &QuizHandler{svc: svc, tasks: tasks}
}

// AsyncResponse acknowledges a queued generation request
type AsyncResponse struct {
	TaskID string            `json:"task_id"`
	Status domain.TaskStatus `json:"status"`
}

func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.QuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.Validate(req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Generate(r.Context(), req, nil)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// GenerateAsync validates the request and queues it for the task worker.
func (h *QuizHandler) GenerateAsync(w http.ResponseWriter, r *http.Request) {
	var req domain.QuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.Validate(req); err != nil {
		api.HandleError(w, err)
		return
	}

	task := h.tasks.Create(req)
	api.Success(w, http.StatusAccepted, AsyncResponse{TaskID: task.ID, Status: task.Status})
}

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cloo-solutions/quizgen/internal/api"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/pagination"
	"github.com/go-chi/chi/v5"
)

type TaskStore interface {
	Get(id string) (*domain.Task, error)
	Delete(id string) error
	List() []*domain.Task
	Counts() map[domain.TaskStatus]int
}

type TaskHandler struct {
	tasks TaskStore
}

func NewTaskHandler(tasks TaskStore) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type TaskListResponse struct {
	Tasks   []*domain.Task            `json:"tasks"`
	Counts  map[domain.TaskStatus]int `json:"counts"`
	Cursor  string                    `json:"cursor,omitempty"`
	HasMore bool                      `json:"has_more"`
}

type DeleteTaskResponse struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

// Status reports progress without the result payload.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	task, err := h.tasks.Get(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	task.Result = nil

	api.Success(w, http.StatusOK, task)
}

func (h *TaskHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	task, err := h.tasks.Get(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	switch task.Status {
	case domain.TaskStatusCompleted:
		api.Success(w, http.StatusOK, task.Result)
	case domain.TaskStatusFailed:
		api.HandleError(w, domain.NewDomainError(domain.ErrCodeTaskFailed, task.Error))
	default:
		api.HandleError(w, domain.NewDomainError(domain.ErrCodeTaskNotReady,
			fmt.Sprintf("task is %s (%d%%)", task.Status, task.Progress)))
	}
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteTaskResponse{TaskID: id, Deleted: true})
}

// List pages tasks newest first. Counts always cover every task.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := pagination.ParseLimit(query.Get("limit"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	cursor, err := pagination.DecodeCursor(query.Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	page := pagination.Paginate(h.tasks.List(), cursor, limit, taskKey)
	tasks := page.Items
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	api.Success(w, http.StatusOK, TaskListResponse{
		Tasks:   tasks,
		Counts:  h.tasks.Counts(),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func taskKey(t *domain.Task) (string, time.Time) {
	return t.ID, t.CreatedAt
}

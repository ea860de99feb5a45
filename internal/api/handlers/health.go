package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/api"
	"github.com/cloo-solutions/quizgen/internal/domain"
)

type CacheStatter interface {
	Stats(ctx context.Context) (*domain.CacheStats, error)
}

type TaskCounter interface {
	Counts() map[domain.TaskStatus]int
}

// GeneratorStatus describes the completion backend
type GeneratorStatus interface {
	Available() bool
	Model() string
}

type HealthHandler struct {
	cache     CacheStatter
	tasks     TaskCounter
	generator GeneratorStatus
}

func NewHealthHandler(cache CacheStatter, tasks TaskCounter, generator GeneratorStatus) *HealthHandler {
	return &HealthHandler{cache: cache, tasks: tasks, generator: generator}
}

type GeneratorHealth struct {
	Available bool   `json:"available"`
	Model     string `json:"model,omitempty"`
}

type HealthResponse struct {
	Status     string                    `json:"status"`
	Cache      *domain.CacheStats        `json:"cache,omitempty"`
	CacheError string                    `json:"cache_error,omitempty"`
	Generator  GeneratorHealth           `json:"generator"`
	Tasks      map[domain.TaskStatus]int `json:"tasks"`
}

// Health always answers 200; a missing generator or an unreadable cache
// only degrades the reported status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Tasks: map[domain.TaskStatus]int{}}

	if h.cache != nil {
		stats, err := h.cache.Stats(r.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.CacheError = err.Error()
		} else {
			resp.Cache = stats
		}
	}

	if h.generator != nil && h.generator.Available() {
		resp.Generator = GeneratorHealth{Available: true, Model: h.generator.Model()}
	} else {
		resp.Status = "degraded"
	}

	if h.tasks != nil {
		resp.Tasks = h.tasks.Counts()
	}

	api.Success(w, http.StatusOK, resp)
}

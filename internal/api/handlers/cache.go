package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/api"
	"github.com/cloo-solutions/quizgen/internal/domain"
)

type CacheService interface {
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*domain.CacheStats, error)
}

type CacheHandler struct {
	cache CacheService
}

func NewCacheHandler(cache CacheService) *CacheHandler {
	return &CacheHandler{cache: cache}
}

type ClearCacheResponse struct {
	Removed int `json:"removed"`
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.Clear(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ClearCacheResponse{Removed: removed})
}

func (h *CacheHandler) Info(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

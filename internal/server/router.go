package server

import (
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/api/handlers"
	"github.com/cloo-solutions/quizgen/internal/api/middleware"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxBodyBytes bounds JSON request bodies when RouterConfig leaves it unset.
const DefaultMaxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	AuthValidator middleware.AuthValidator
	Logger        *logger.Logger
	MaxBodyBytes  int64
	QuizHandler   *handlers.QuizHandler
	TaskHandler   *handlers.TaskHandler
	CacheHandler  *handlers.CacheHandler
	ChatHandler   *handlers.ChatHandler
	HealthHandler *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/generate-questions", cfg.QuizHandler.Generate)
		r.Post("/generate-questions/async", cfg.QuizHandler.GenerateAsync)

		r.Get("/task-status/{id}", cfg.TaskHandler.Status)
		r.Get("/task-result/{id}", cfg.TaskHandler.Result)
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", cfg.TaskHandler.List)
			r.Delete("/{id}", cfg.TaskHandler.Delete)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Delete("/", cfg.CacheHandler.Clear)
			r.Get("/info", cfg.CacheHandler.Info)
		})

		r.Post("/chat", cfg.ChatHandler.Chat)
	})

	return r
}

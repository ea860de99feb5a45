package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/quizgen/internal/api/handlers"
	"github.com/cloo-solutions/quizgen/internal/api/middleware"
	"github.com/cloo-solutions/quizgen/internal/config"
	"github.com/cloo-solutions/quizgen/internal/jobs"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/server"
	"github.com/cloo-solutions/quizgen/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the quizgen API server and the background task worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides QUIZGEN_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          cfg.SentryRelease,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		log.Warn("telemetry init failed (continuing without tracing)", "error", err)
	} else {
		defer shutdownTelemetry()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	app, err := NewApp(ctx, cfg, log, AppOptions{SkipMigrations: noMigrate})
	if err != nil {
		return err
	}
	defer app.Close()

	registry := jobs.NewRegistry()
	taskWorker := jobs.NewTaskWorker(registry, app.Quiz, cfg.TaskWorkers, log)
	worker := jobs.NewWorker(taskWorker, cfg.TaskPollInterval, log)
	go worker.Start(ctx)

	if cfg.APIKey == "" {
		log.Warn("API_KEY not set: the API accepts unauthenticated requests")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Port, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	worker.Stop()
	if err := taskWorker.Wait(shutdownCtx); err != nil {
		log.Warn("in-flight tasks did not finish before shutdown", "error", err)
	}

	log.Info("server exited")
	return nil
}

// Handler builds the HTTP API over the app's services. Async requests are
// queued on registry.
func (a *App) Handler(registry *jobs.Registry) http.Handler {
	var validator middleware.AuthValidator
	if a.Config.APIKey != "" {
		validator = middleware.StaticKey(a.Config.APIKey)
	}

	return server.NewRouter(server.RouterConfig{
		AuthValidator: validator,
		Logger:        a.Log,
		QuizHandler:   handlers.NewQuizHandler(a.Quiz, registry),
		TaskHandler:   handlers.NewTaskHandler(registry),
		CacheHandler:  handlers.NewCacheHandler(a.Store),
		ChatHandler:   handlers.NewChatHandler(a.Chat),
		HealthHandler: handlers.NewHealthHandler(a.Store, registry, a.AI),
	})
}

package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/quizgen/internal/cache"
	"github.com/cloo-solutions/quizgen/internal/config"
	"github.com/cloo-solutions/quizgen/internal/database"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/openai"
	"github.com/cloo-solutions/quizgen/internal/repository"
	"github.com/cloo-solutions/quizgen/internal/service"
	"github.com/cloo-solutions/quizgen/internal/storage"
	goopenai "github.com/sashabaranov/go-openai"
)

// App holds the components shared by the serve, cache and generate commands.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	AI      *openai.Client
	Cache   service.DocumentCache
	Store   *service.ContentStore
	Fetcher *service.Fetcher
	Quiz    *service.QuizService
	Chat    *service.ChatService

	closers []func()
}

type AppOptions struct {
	SkipMigrations bool
}

// NewApp connects the configured cache backend and builds the services on
// top of it. Without an OpenAI key the app still serves cached data and
// fallback questions.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts AppOptions) (*App, error) {
	app := &App{Config: cfg, Log: logger.OrNop(log)}

	s3Client, err := app.connectS3(ctx)
	if err != nil {
		return nil, err
	}

	docCache, err := app.openCache(ctx, s3Client, opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Cache = docCache

	var (
		completer service.Completer
		embedder  service.Embedder
	)
	if cfg.HasOpenAI() {
		app.AI = openai.NewClientWithConfig(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			Model:           cfg.OpenAIModel,
			EmbeddingModel:  goopenai.EmbeddingModel(cfg.EmbeddingModel),
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			MaxPromptChars:  cfg.PromptMaxChars,
			Timeout:         cfg.GenerationTimeout,
			RateLimit:       cfg.RateLimitPerSec,
			RateBurst:       cfg.RateLimitBurst,
		})
		completer = app.AI
		embedder = app.AI
	} else {
		app.Log.Warn("OPENAI_API_KEY not set: questions will come from fallback templates and chat is disabled")
	}

	var objects service.ObjectSource
	if s3Client != nil {
		objects = s3Client
	}
	app.Fetcher = service.NewFetcher(objects, service.FetcherConfig{
		Timeout:    cfg.DownloadTimeout,
		MaxBytes:   cfg.MaxDownloadBytes,
		AllowLocal: cfg.AllowLocalFiles,
	})

	app.Store = service.NewContentStore(docCache, embedder, service.ChunkConfig{
		MaxWords: cfg.ChunkSize,
		Overlap:  cfg.ChunkOverlap,
		MinChars: cfg.ChunkMinChars,
	}, app.Log)

	prompts := service.NewPromptBuilder(cfg.PromptMaxChars)
	retriever := service.NewRetriever(embedder)
	orchestrator := service.NewOrchestrator(completer, retriever, prompts, service.OrchestratorConfig{
		Retry: service.RetryPolicy{
			MaxAttempts:    cfg.RetryMaxAttempts,
			InitialBackoff: cfg.RetryInitialBackoff,
			MaxBackoff:     cfg.RetryMaxBackoff,
		},
		MaxTokens: cfg.MaxOutputTokens,
	}, app.Log)
	summarizer := service.NewSummarizer(completer, prompts, app.Log)

	app.Quiz = service.NewQuizService(app.Store, app.Fetcher, orchestrator, summarizer, service.QuizConfig{
		MaxWorkers:    cfg.MaxWorkers,
		MaxFiles:      cfg.MaxFiles,
		MaxQuestions:  cfg.MaxQuestions,
		QuestionCache: cfg.QuestionCache,
	}, app.Log)
	app.Chat = service.NewChatService(app.Store, app.Fetcher, retriever, completer, prompts, app.Log)

	return app, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) connectS3(ctx context.Context) (*storage.S3Client, error) {
	if !a.Config.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        a.Config.S3Endpoint,
		Region:          a.Config.S3Region,
		AccessKeyID:     a.Config.S3AccessKey,
		SecretAccessKey: a.Config.S3SecretKey,
		Bucket:          a.Config.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

func (a *App) openCache(ctx context.Context, s3Client *storage.S3Client, opts AppOptions) (service.DocumentCache, error) {
	cfg := a.Config
	switch cfg.CacheBackend {
	case config.CacheBackendS3:
		if s3Client == nil {
			return nil, fmt.Errorf("cache backend %q requires S3 settings", cfg.CacheBackend)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		a.Log.Info("cache: using S3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return cache.NewBlobCache(cache.NewS3Store(s3Client, cfg.S3Prefix), config.CacheBackendS3), nil

	case config.CacheBackendPostgres:
		pool, err := database.NewPool(ctx, database.Config{
			URL:            cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			ConnectTimeout: cfg.DatabaseConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if !opts.SkipMigrations {
			if err := database.Migrate(cfg.DatabaseURL, a.Log); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		a.Log.Info("cache: using postgres")
		return repository.NewDocumentRepository(pool), nil

	default:
		store, err := cache.NewFSStore(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache directory: %w", err)
		}
		a.Log.Info("cache: using filesystem", "dir", cfg.CacheDir)
		return cache.NewBlobCache(store, config.CacheBackendFS), nil
	}
}

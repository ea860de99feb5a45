package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Cache backends selectable through CACHE_BACKEND.
const (
	CacheBackendFS       = "fs"
	CacheBackendS3       = "s3"
	CacheBackendPostgres = "postgres"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	Debug         bool   `envconfig:"DEBUG" default:"false"`
	Environment   string `envconfig:"ENVIRONMENT" default:"development"`
	LogMode       string `envconfig:"LOG_MODE" default:"dev"`
	SentryDSN     string `envconfig:"SENTRY_DSN"`
	SentryRelease string `envconfig:"SENTRY_RELEASE"`

	// Optional static key required on every request except /health
	APIKey string `envconfig:"API_KEY"`

	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Temperature       float32       `envconfig:"TEMPERATURE" default:"0.7"`
	MaxOutputTokens   int           `envconfig:"MAX_OUTPUT_TOKENS" default:"2500"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`
	RateLimitPerSec   float64       `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
	RateLimitBurst    int           `envconfig:"RATE_LIMIT_BURST" default:"4"`

	PromptMaxChars int `envconfig:"PROMPT_MAX_CHARS" default:"8000"`
	ChunkSize      int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap   int `envconfig:"CHUNK_OVERLAP" default:"100"`
	ChunkMinChars  int `envconfig:"CHUNK_MIN_CHARS" default:"100"`

	RetryMaxAttempts    int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff time.Duration `envconfig:"RETRY_INITIAL_BACKOFF" default:"500ms"`
	RetryMaxBackoff     time.Duration `envconfig:"RETRY_MAX_BACKOFF" default:"5s"`

	MaxFiles     int `envconfig:"MAX_FILES" default:"10"`
	MaxQuestions int `envconfig:"MAX_QUESTIONS" default:"300"`
	MaxWorkers   int `envconfig:"MAX_WORKERS" default:"8"`
	TaskWorkers  int `envconfig:"TASK_WORKERS" default:"2"`

	TaskPollInterval time.Duration `envconfig:"TASK_POLL_INTERVAL" default:"250ms"`

	DownloadTimeout  time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"120s"`
	MaxDownloadBytes int64         `envconfig:"MAX_DOWNLOAD_BYTES" default:"104857600"`
	AllowLocalFiles  bool          `envconfig:"ALLOW_LOCAL_FILES" default:"false"`

	CacheBackend  string `envconfig:"CACHE_BACKEND" default:"fs"`
	CacheDir      string `envconfig:"CACHE_DIR" default:"cache"`
	QuestionCache bool   `envconfig:"QUESTION_CACHE" default:"true"`

	DatabaseURL            string        `envconfig:"DATABASE_URL"`
	DatabaseMaxConns       int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseConnectTimeout time.Duration `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"30s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"quizgen-cache"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"cache/"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("QUIZGEN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendFS:
	case CacheBackendS3:
		if !c.HasS3() {
			return fmt.Errorf("cache backend %q requires S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY", c.CacheBackend)
		}
	case CacheBackendPostgres:
		if !c.HasDatabase() {
			return fmt.Errorf("cache backend %q requires DATABASE_URL", c.CacheBackend)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	if c.MaxFiles < 1 || c.MaxFiles > 15 {
		return fmt.Errorf("MAX_FILES must be between 1 and 15, got %d", c.MaxFiles)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

package openai

import (
	"context"
	"errors"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultChatModel is used when no completion model is configured
	DefaultChatModel = openai.GPT4oMini
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the dimension of text-embedding-3-small
	DefaultEmbeddingDimensions = 1536

	// HardMaxOutputTokens is the ceiling no completion request may exceed,
	// whatever the caller or configuration asks for.
	HardMaxOutputTokens = 3000
	// DefaultMaxOutputTokens is the configured ceiling when none is set
	DefaultMaxOutputTokens = 2500
	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 60 * time.Second
	// DefaultMaxPromptChars is the prompt length past which prompts are cut
	DefaultMaxPromptChars = 12000

	defaultSystemPrompt = "You are an expert educator who writes accurate, well-formed multiple choice questions and answers strictly in the requested JSON format."
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API for embeddings and completions. A single
// Client is shared by all workers so they draw from one rate budget.
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	limiter    *rate.Limiter

	model          string
	systemPrompt   string
	temperature    float32
	maxTokens      int
	maxPromptChars int
	timeout        time.Duration
	dimensions     int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: client,
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts. The
// returned vectors are ordered like texts.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count does not match input count")
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.New("embedding index out of range")
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// CreateChatCompletion forwards to the underlying client.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return a.client.CreateChatCompletion(ctx, req)
}

type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	Temperature         float32
	MaxOutputTokens     int
	MaxPromptChars      int
	Timeout             time.Duration
	// RateLimit is the sustained number of requests per second; zero
	// disables limiting.
	RateLimit float64
	RateBurst int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	adapter := NewOpenAIAdapter(openai.NewClientWithConfig(clientCfg), cfg.EmbeddingModel)

	return newClient(adapter, adapter, cfg)
}

func newClient(embeddings EmbeddingAPI, chat ChatAPI, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	if maxTokens > HardMaxOutputTokens {
		maxTokens = HardMaxOutputTokens
	}
	maxPromptChars := cfg.MaxPromptChars
	if maxPromptChars <= 0 {
		maxPromptChars = DefaultMaxPromptChars
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		embeddings:     embeddings,
		chat:           chat,
		limiter:        limiter,
		model:          model,
		systemPrompt:   defaultSystemPrompt,
		temperature:    cfg.Temperature,
		maxTokens:      maxTokens,
		maxPromptChars: maxPromptChars,
		timeout:        timeout,
		dimensions:     dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Model returns the completion model name
func (c *Client) Model() string {
	return c.model
}

// Available reports whether the client can reach a completion endpoint.
func (c *Client) Available() bool {
	return c != nil && c.chat != nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/repair"
	"github.com/cloo-solutions/quizgen/internal/telemetry"
)

const (
	singleBatchMax = 10
	mediumBatch    = 10
	mediumMax      = 50
	largeBatch     = 15

	// sliceChunks is how many chunks feed one batch prompt.
	sliceChunks = 2

	// rankingQuery orders chunks by how much teachable material they carry.
	rankingQuery = "key concepts, definitions, principles and important facts"
)

var errShortBatch = errors.New("batch returned fewer questions than requested")

// Completer calls the remote completion endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// RetryPolicy controls how a short batch is retried. MaxAttempts counts the
// first call.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.MaxInterval = p.MaxBackoff
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Batch is one generation call's worth of work.
type Batch struct {
	Index   int
	Count   int
	Content string
}

// BatchSizes splits n into batch counts: one batch up to 10, batches of 10 up
// to 50 and batches of 15 above that. The last batch takes the remainder.
func BatchSizes(n int) []int {
	if n <= 0 {
		return nil
	}
	if n <= singleBatchMax {
		return []int{n}
	}

	size := mediumBatch
	if n > mediumMax {
		size = largeBatch
	}

	sizes := make([]int, 0, n/size+1)
	for left := n; left > 0; left -= size {
		if left < size {
			sizes = append(sizes, left)
			break
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// Report describes one Generate run.
type Report struct {
	Batches    int            `json:"batches"`
	Calls      int            `json:"calls"`
	Generated  int            `json:"generated"`
	Fallback   int            `json:"fallback"`
	Dropped    int            `json:"dropped"`
	Failures   int            `json:"failures"`
	Strategies map[string]int `json:"strategies"`
}

// Orchestrator turns a document into exactly n questions.
type Orchestrator struct {
	completer Completer
	retriever *Retriever
	prompts   *PromptBuilder
	policy    RetryPolicy
	maxTokens int
	log       *logger.Logger
}

// OrchestratorConfig groups the orchestrator's tunables.
type OrchestratorConfig struct {
	Retry     RetryPolicy
	MaxTokens int
}

func NewOrchestrator(completer Completer, retriever *Retriever, prompts *PromptBuilder, cfg OrchestratorConfig, log *logger.Logger) *Orchestrator {
	if prompts == nil {
		prompts = NewPromptBuilder(DefaultPromptMaxChars)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Orchestrator{
		completer: completer,
		retriever: retriever,
		prompts:   prompts,
		policy:    cfg.Retry,
		maxTokens: cfg.MaxTokens,
		log:       logger.OrNop(log),
	}
}

// Generate returns exactly n questions for doc. Batches run one after the
// other; a short batch is retried under the retry policy and the best attempt
// kept. Whatever is still missing is backfilled with fallback questions, so
// batch failures never surface as errors.
func (o *Orchestrator) Generate(ctx context.Context, doc *domain.Document, n int) ([]domain.Question, Report) {
	report := Report{Strategies: make(map[string]int)}
	if n <= 0 {
		return []domain.Question{}, report
	}

	order := o.chunkOrder(ctx, doc)
	sizes := BatchSizes(n)
	report.Batches = len(sizes)

	questions := make([]domain.Question, 0, n)
	var name string
	switch {
	case doc == nil:
		o.log.Warn("orchestrator: no document to generate from")
		sizes = nil
	case o.completer == nil:
		name = doc.Name
		o.log.Warn("orchestrator: no completion endpoint configured", "document", name)
		sizes = nil
	default:
		name = doc.Name
	}
	for i, size := range sizes {
		if ctx.Err() != nil {
			break
		}
		batch := Batch{Index: i, Count: size, Content: sliceContent(order, i)}
		got := o.runWithRetry(ctx, name, batch, &report)
		questions = append(questions, got...)
	}

	if len(questions) > n {
		questions = questions[:n]
	}
	report.Generated = len(questions)

	if missing := n - len(questions); missing > 0 {
		o.log.Warn("orchestrator: backfilling with fallback questions",
			"document", name, "requested", n, "generated", len(questions), "missing", missing)
		questions = append(questions, FallbackQuestions(missing, 0)...)
		report.Fallback = missing
	}

	return questions[:n], report
}

func (o *Orchestrator) runWithRetry(ctx context.Context, name string, batch Batch, report *Report) []domain.Question {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.Batch", telemetry.SpanAttributes{
		Document:  name,
		Operation: "generate_batch",
	})
	defer span.End()
	span.SetData("batch_index", batch.Index)
	span.SetData("batch_count", batch.Count)

	var best []domain.Question
	attempt := 0
	op := func() error {
		attempt++
		got, err := o.runBatch(ctx, batch, report)
		if len(got) > len(best) {
			best = got
		}
		if len(best) >= batch.Count {
			return nil
		}

		o.log.Warn("orchestrator: batch short",
			"document", name, "batch", batch.Index, "attempt", attempt,
			"wanted", batch.Count, "got", len(got), "error", err)
		if err != nil {
			return err
		}
		return errShortBatch
	}

	if err := backoff.Retry(op, o.policy.backOff(ctx)); err != nil {
		report.Failures++
		span.SetData("error", err.Error())
	}
	span.SetData("attempts", attempt)
	span.SetData("questions", len(best))

	if len(best) > batch.Count {
		best = best[:batch.Count]
	}
	return best
}

func (o *Orchestrator) runBatch(ctx context.Context, batch Batch, report *Report) ([]domain.Question, error) {
	prompt := o.prompts.Build(batch.Count, batch.Content)

	report.Calls++
	text, err := o.completer.Complete(ctx, prompt, o.maxTokens)
	if err != nil {
		return nil, err
	}

	res := repair.Parse(text)
	report.Dropped += res.Dropped
	if res.Err != nil {
		return nil, res.Err
	}
	report.Strategies[res.Strategy]++
	return res.Questions, nil
}

// chunkOrder ranks chunks by relevance when the document carries embeddings
// and falls back to document order otherwise.
func (o *Orchestrator) chunkOrder(ctx context.Context, doc *domain.Document) []domain.Chunk {
	if doc == nil || len(doc.Chunks) == 0 {
		return nil
	}
	if o.retriever == nil || len(doc.Embeddings) != len(doc.Chunks) {
		return doc.Chunks
	}

	ranked, err := o.retriever.TopK(ctx, doc, rankingQuery, len(doc.Chunks))
	if err != nil {
		o.log.Warn("orchestrator: ranking failed, using document order", "document", doc.Name, "error", err)
		return doc.Chunks
	}

	order := make([]domain.Chunk, len(ranked))
	for i, sc := range ranked {
		order[i] = sc.Chunk
	}
	return order
}

// sliceContent picks the chunks for batch i by rotating through order, so
// consecutive batches see different material.
func sliceContent(order []domain.Chunk, i int) string {
	if len(order) == 0 {
		return ""
	}

	k := sliceChunks
	if k > len(order) {
		k = len(order)
	}

	parts := make([]string, 0, k)
	start := (i * k) % len(order)
	for j := 0; j < k; j++ {
		parts = append(parts, order[(start+j)%len(order)].Text)
	}
	return strings.Join(parts, "\n\n")
}

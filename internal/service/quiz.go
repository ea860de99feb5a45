package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxWorkers   = 8
	DefaultMaxFiles     = 10
	DefaultMaxQuestions = 300

	summaryExcerptChars = 1000
	summaryMaxDocuments = 5
)

// SourceFetcher resolves request files into loaders.
type SourceFetcher interface {
	ModifiedTime(ctx context.Context, raw string) (time.Time, error)
	PDFLoader(raw, name string) Loader
}

// QuestionGenerator produces exactly n questions for a document.
type QuestionGenerator interface {
	Generate(ctx context.Context, doc *domain.Document, n int) ([]domain.Question, Report)
}

// ProgressFunc receives progress updates between 0 and 100.
type ProgressFunc func(progress int, message string)

// QuizConfig groups the quiz service tunables.
type QuizConfig struct {
	MaxWorkers    int
	MaxFiles      int
	MaxQuestions  int
	QuestionCache bool
}

// QuizService turns a multi-file request into one quiz.
type QuizService struct {
	store      *ContentStore
	fetcher    SourceFetcher
	generator  QuestionGenerator
	summarizer *Summarizer
	cfg        QuizConfig
	log        *logger.Logger
	now        func() time.Time
}

func NewQuizService(store *ContentStore, fetcher SourceFetcher, generator QuestionGenerator, summarizer *Summarizer, cfg QuizConfig, log *logger.Logger) *QuizService {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	return &QuizService{
		store:      store,
		fetcher:    fetcher,
		generator:  generator,
		summarizer: summarizer,
		cfg:        cfg,
		log:        logger.OrNop(log),
		now:        time.Now,
	}
}

// Validate checks req against the request bounds.
func (s *QuizService) Validate(req domain.QuizRequest) error {
	if len(req.Files) < 1 || len(req.Files) > s.cfg.MaxFiles {
		return domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("files must contain between 1 and %d entries", s.cfg.MaxFiles))
	}
	if req.TotalQuestions < 1 || req.TotalQuestions > s.cfg.MaxQuestions {
		return domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("total_questions must be between 1 and %d", s.cfg.MaxQuestions))
	}
	for i, f := range req.Files {
		if strings.TrimSpace(f.URL) == "" {
			return domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("files[%d].url is required", i))
		}
	}
	return nil
}

// DistributeQuestions splits total evenly over files; the first files take
// the remainder.
func DistributeQuestions(total, files int) []int {
	if files <= 0 {
		return nil
	}
	out := make([]int, files)
	base, rem := total/files, total%files
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// workerCount bounds the pool by the number of files, CPUs and max.
func workerCount(files, max int) int {
	n := files
	if cpu := runtime.NumCPU(); cpu < n {
		n = cpu
	}
	if max < n {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}

type fileOutcome struct {
	file      domain.SourceFile
	doc       *domain.Document
	questions []domain.Question
	docHit    bool
	quizHit   bool
	fallback  int
	err       error
}

// Generate processes every file of req in parallel and assembles exactly
// req.TotalQuestions questions. Files that cannot be downloaded or extracted
// are reported in FailedFiles; their share is backfilled. When every file
// fails the request fails with ALL_FILES_FAILED.
func (s *QuizService) Generate(ctx context.Context, req domain.QuizRequest, progress ProgressFunc) (*domain.QuizResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(int, string) {}
	}

	ctx, span := telemetry.StartSpan(ctx, "QuizService.Generate", telemetry.SpanAttributes{
		ProjectID: req.ProjectID,
		Operation: "generate_quiz",
	})
	defer span.End()

	start := s.now()
	counts := DistributeQuestions(req.TotalQuestions, len(req.Files))
	outcomes := make([]fileOutcome, len(req.Files))

	progress(5, fmt.Sprintf("processing %d file(s)", len(req.Files)))

	var (
		mu   sync.Mutex
		done int
	)
	g := new(errgroup.Group)
	g.SetLimit(workerCount(len(req.Files), s.cfg.MaxWorkers))
	for i, file := range req.Files {
		i, file := i, file
		g.Go(func() error {
			outcomes[i] = s.processFile(ctx, file, counts[i])

			mu.Lock()
			done++
			progress(5+done*80/len(req.Files), fmt.Sprintf("processed %d/%d file(s)", done, len(req.Files)))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.SetError(err)
		return nil, err
	}

	result := &domain.QuizResult{
		Questions:   make([]domain.Question, 0, req.TotalQuestions),
		FailedFiles: []domain.FailedFile{},
		Metadata: domain.QuizMetadata{
			ProjectID:      req.ProjectID,
			Name:           req.Name,
			RequestedCount: req.TotalQuestions,
			Distribution:   make(map[string]int, len(req.Files)),
		},
	}

	var names []string
	var excerpts []string
	for i, o := range outcomes {
		name := o.file.DisplayName()
		result.Metadata.Distribution[name] = counts[i]

		if o.err != nil {
			result.FailedFiles = append(result.FailedFiles, domain.FailedFile{
				FileName: name,
				URL:      o.file.URL,
				Error:    o.err.Error(),
			})
			continue
		}

		result.Metadata.ProcessedFiles++
		if o.docHit {
			result.Metadata.CachedFiles++
		}
		result.Questions = append(result.Questions, o.questions...)
		result.Metadata.FallbackCount += o.fallback

		names = append(names, name)
		if len(excerpts) < summaryMaxDocuments {
			excerpts = append(excerpts, truncateRunes(o.doc.Content, summaryExcerptChars, ""))
		}
	}

	if len(result.FailedFiles) == len(req.Files) {
		err := allFilesFailed(result.FailedFiles)
		span.SetError(err)
		return nil, err
	}

	if missing := req.TotalQuestions - len(result.Questions); missing > 0 {
		s.log.Warn("quiz: backfilling failed files' share", "missing", missing, "failed_files", len(result.FailedFiles))
		result.Questions = append(result.Questions, FallbackQuestions(missing, result.Metadata.FallbackCount)...)
		result.Metadata.FallbackCount += missing
	}
	if len(result.Questions) > req.TotalQuestions {
		result.Questions = result.Questions[:req.TotalQuestions]
	}
	result.Metadata.GeneratedCount = len(result.Questions) - result.Metadata.FallbackCount

	progress(90, "generating summary")
	result.Summary = s.summarizer.Summarize(ctx, names, strings.Join(excerpts, "\n"))

	result.Metadata.ProcessingSeconds = s.now().Sub(start).Seconds()
	s.log.Info("quiz: generated",
		"project_id", req.ProjectID,
		"requested", req.TotalQuestions,
		"generated", result.Metadata.GeneratedCount,
		"fallback", result.Metadata.FallbackCount,
		"failed_files", len(result.FailedFiles),
		"seconds", result.Metadata.ProcessingSeconds,
	)
	return result, nil
}

func (s *QuizService) processFile(ctx context.Context, file domain.SourceFile, count int) fileOutcome {
	out := fileOutcome{file: file}
	name := file.DisplayName()
	log := s.log.With("document", name)

	modTime, err := s.fetcher.ModifiedTime(ctx, file.URL)
	if err != nil {
		log.Warn("quiz: source unreachable", "error", err)
		out.err = err
		return out
	}

	doc, hit, err := s.store.GetOrBuild(ctx, name, modTime, s.fetcher.PDFLoader(file.URL, name))
	if err != nil {
		if domain.IsPerFileError(err) {
			log.Warn("quiz: file failed", "error", err)
		} else {
			log.Error("quiz: file failed unexpectedly", "error", err)
			telemetry.CaptureError(ctx, err)
		}
		out.err = err
		return out
	}
	out.doc, out.docHit = doc, hit

	if count <= 0 {
		return out
	}

	if s.cfg.QuestionCache && hit {
		if cached, err := s.store.CachedQuestions(ctx, name); err == nil && len(cached) >= count {
			log.Info("quiz: serving cached questions", "count", count)
			out.questions = cached[:count]
			out.quizHit = true
			return out
		}
	}

	questions, report := s.generator.Generate(ctx, doc, count)
	out.questions = questions
	out.fallback = report.Fallback
	log.Info("quiz: document done",
		"requested", count,
		"batches", report.Batches,
		"calls", report.Calls,
		"fallback", report.Fallback,
		"dropped", report.Dropped,
	)

	if s.cfg.QuestionCache {
		s.cacheGenerated(ctx, name, questions)
	}
	return out
}

// cacheGenerated stores only model-generated questions, so a cached set never
// replays fallback questions.
func (s *QuizService) cacheGenerated(ctx context.Context, name string, questions []domain.Question) {
	generated := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Source == domain.SourceGenerated {
			generated = append(generated, q)
		}
	}
	if len(generated) == 0 {
		return
	}
	if err := s.store.StoreQuestions(ctx, name, generated); err != nil {
		s.log.Warn("quiz: question cache write failed", "document", name, "error", err)
	}
}

func allFilesFailed(failed []domain.FailedFile) error {
	msgs := make([]string, len(failed))
	for i, f := range failed {
		msgs[i] = fmt.Sprintf("%s: %s", f.FileName, f.Error)
	}
	return domain.NewDomainError(domain.ErrCodeAllFilesFailed,
		"all files failed to process: "+strings.Join(msgs, "; "))
}

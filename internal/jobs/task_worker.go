package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/service"
	"github.com/cloo-solutions/quizgen/internal/telemetry"
)

// DefaultConcurrency is the number of tasks run at once.
const DefaultConcurrency = 2

// QuizGenerator runs one quiz request
type QuizGenerator interface {
	Generate(ctx context.Context, req domain.QuizRequest, progress service.ProgressFunc) (*domain.QuizResult, error)
}

// TaskWorker claims pending tasks from the registry and runs them. It
// implements JobProcessor so a Worker drives it. Finished tasks stay in the
// registry until they are deleted explicitly.
type TaskWorker struct {
	registry *Registry
	quiz     QuizGenerator
	log      *logger.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewTaskWorker creates a TaskWorker running at most concurrency tasks.
func NewTaskWorker(registry *Registry, quiz QuizGenerator, concurrency int, log *logger.Logger) *TaskWorker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &TaskWorker{
		registry: registry,
		quiz:     quiz,
		log:      logger.OrNop(log),
		slots:    make(chan struct{}, concurrency),
	}
}

// ProcessJobs implements the JobProcessor interface. It starts as many
// pending tasks as there are free slots; it does not wait for them.
func (w *TaskWorker) ProcessJobs(ctx context.Context) error {
	free := cap(w.slots) - len(w.slots)
	tasks := w.registry.ClaimPending(free)
	if len(tasks) == 0 {
		return nil
	}

	// Tasks outlive the poll loop so shutdown can drain them.
	runCtx := context.WithoutCancel(ctx)
	for _, task := range tasks {
		w.slots <- struct{}{}
		w.wg.Add(1)
		go func(task *domain.Task) {
			defer func() {
				<-w.slots
				w.wg.Done()
			}()
			w.run(runCtx, task)
		}(task)
	}
	return nil
}

// Wait blocks until every started task has finished or ctx is done.
func (w *TaskWorker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *TaskWorker) run(ctx context.Context, task *domain.Task) {
	log := w.log.With("task_id", task.ID)
	ctx, span := telemetry.StartSpan(ctx, "TaskWorker.Run", telemetry.SpanAttributes{
		TaskID:    task.ID,
		ProjectID: task.Request.ProjectID,
		Operation: "run_task",
	})
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task panicked: %v", r)
			log.Error("task failed", "error", err)
			telemetry.CaptureError(ctx, err)
			w.fail(task.ID, err)
		}
	}()

	log.Info("task started", "files", len(task.Request.Files), "total_questions", task.Request.TotalQuestions)

	progress := func(p int, msg string) {
		_, _ = w.registry.Update(task.ID, func(t *domain.Task) {
			if p > t.Progress {
				t.Progress = p
			}
			t.Message = msg
		})
	}

	result, err := w.quiz.Generate(ctx, task.Request, progress)
	if err != nil {
		log.Warn("task failed", "error", err)
		span.SetError(err)
		w.fail(task.ID, err)
		return
	}

	_, err = w.registry.Update(task.ID, func(t *domain.Task) {
		t.Status = domain.TaskStatusCompleted
		t.Progress = 100
		t.Message = "completed"
		t.Result = result
	})
	if err != nil {
		log.Info("task removed before completion")
		return
	}
	log.Info("task completed", "questions", len(result.Questions), "failed_files", len(result.FailedFiles))
}

func (w *TaskWorker) fail(id string, cause error) {
	_, _ = w.registry.Update(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusFailed
		t.Message = "failed"
		t.Error = cause.Error()
	})
}

package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/quizgen/internal/logger"
)

// DefaultPollInterval applies when NewWorker gets a non-positive interval.
const DefaultPollInterval = 250 * time.Millisecond

type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls a JobProcessor once on start and then on every tick until
// its context ends or Stop is called.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	log          *logger.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration, log *logger.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		log:          logger.OrNop(log),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks running the poll loop. It must be called at most once.
func (w *Worker) Start(ctx context.Context) {
	w.started.Store(true)
	defer close(w.doneChan)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log.Info("worker started", "poll_interval", w.pollInterval)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.log.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.log.Error("error processing jobs", "error", err)
	}
}

// Stop ends the poll loop and waits for the current poll to return. It is
// safe to call more than once, and before Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	if !w.started.Load() {
		return
	}
	<-w.doneChan
	w.log.Info("worker shutdown complete")
}

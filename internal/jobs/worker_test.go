package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockQuizGenerator is a mock implementation of QuizGenerator
type MockQuizGenerator struct {
	mock.Mock
}

func (m *MockQuizGenerator) Generate(ctx context.Context, req domain.QuizRequest, progress service.ProgressFunc) (*domain.QuizResult, error) {
	args := m.Called(ctx, req, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizResult), args.Error(1)
}

func testRequest() domain.QuizRequest {
	return domain.QuizRequest{
		Files:          []domain.SourceFile{{URL: "https://example.com/a.pdf", FileName: "a.pdf"}},
		TotalQuestions: 5,
	}
}

func waitForStatus(t *testing.T, r *Registry, id string, want domain.TaskStatus) *domain.Task {
	t.Helper()
	var task *domain.Task
	require.Eventually(t, func() bool {
		got, err := r.Get(id)
		if err != nil {
			return false
		}
		task = got
		return got.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return task
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

type countingProcessor struct {
	calls atomic.Int32
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.calls.Add(1)
	return errors.New("boom")
}

// TestWorker_ProcessorErrorKeepsPolling tests that a failing poll does not stop the loop
func TestWorker_ProcessorErrorKeepsPolling(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return processor.calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	wg.Wait()
}

func TestWorker_PollsImmediatelyOnStart(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	require.Eventually(t, func() bool {
		return processor.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	worker := NewWorker(&countingProcessor{}, 0, nil)
	assert.Equal(t, DefaultPollInterval, worker.pollInterval)

	worker.Stop()

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after an earlier Stop")
	}
	worker.Stop()
}

func TestTaskWorker_ProcessJobs_NoPendingTasks(t *testing.T) {
	registry := NewRegistry()
	quiz := new(MockQuizGenerator)

	worker := NewTaskWorker(registry, quiz, 2, nil)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	quiz.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskWorker_ProcessJobs_Success(t *testing.T) {
	registry := NewRegistry()
	quiz := new(MockQuizGenerator)

	result := &domain.QuizResult{
		Questions:   []domain.Question{{Question: "q"}},
		FailedFiles: []domain.FailedFile{},
	}
	quiz.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			progress := args.Get(2).(service.ProgressFunc)
			progress(40, "halfway")
			progress(20, "late update")
		}).
		Return(result, nil)

	task := registry.Create(testRequest())

	worker := NewTaskWorker(registry, quiz, 2, nil)
	require.NoError(t, worker.ProcessJobs(context.Background()))
	require.NoError(t, worker.Wait(context.Background()))

	got := waitForStatus(t, registry, task.ID, domain.TaskStatusCompleted)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Result)
	assert.Len(t, got.Result.Questions, 1)
	quiz.AssertExpectations(t)
}

func TestTaskWorker_ProcessJobs_Failure(t *testing.T) {
	registry := NewRegistry()
	quiz := new(MockQuizGenerator)

	quiz.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeAllFilesFailed, "all files failed to process"))

	task := registry.Create(testRequest())

	worker := NewTaskWorker(registry, quiz, 1, nil)
	require.NoError(t, worker.ProcessJobs(context.Background()))
	require.NoError(t, worker.Wait(context.Background()))

	got := waitForStatus(t, registry, task.ID, domain.TaskStatusFailed)
	assert.Contains(t, got.Error, "ALL_FILES_FAILED")
	assert.Nil(t, got.Result)
}

func TestTaskWorker_ProcessJobs_PanicMarksFailed(t *testing.T) {
	registry := NewRegistry()
	quiz := new(MockQuizGenerator)

	quiz.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("unexpected") }).
		Return(nil, nil)

	task := registry.Create(testRequest())

	worker := NewTaskWorker(registry, quiz, 1, nil)
	require.NoError(t, worker.ProcessJobs(context.Background()))
	require.NoError(t, worker.Wait(context.Background()))

	got := waitForStatus(t, registry, task.ID, domain.TaskStatusFailed)
	assert.Contains(t, got.Error, "panicked")
}

func TestTaskWorker_ProcessJobs_RespectsConcurrency(t *testing.T) {
	registry := NewRegistry()
	quiz := new(MockQuizGenerator)

	release := make(chan struct{})
	quiz.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&domain.QuizResult{}, nil)

	for i := 0; i < 3; i++ {
		registry.Create(testRequest())
	}

	worker := NewTaskWorker(registry, quiz, 2, nil)
	require.NoError(t, worker.ProcessJobs(context.Background()))

	counts := registry.Counts()
	assert.Equal(t, 2, counts[domain.TaskStatusProcessing])
	assert.Equal(t, 1, counts[domain.TaskStatusPending])

	// No free slot: the third task stays pending.
	require.NoError(t, worker.ProcessJobs(context.Background()))
	assert.Equal(t, 1, registry.Counts()[domain.TaskStatusPending])

	close(release)
	require.NoError(t, worker.Wait(context.Background()))

	require.NoError(t, worker.ProcessJobs(context.Background()))
	require.NoError(t, worker.Wait(context.Background()))
	assert.Equal(t, 3, registry.Counts()[domain.TaskStatusCompleted])
}

func TestTaskWorker_DeletedWhileRunning(t *testing.T) {
	registry := NewRegistry()
	quiz := new(MockQuizGenerator)

	task := registry.Create(testRequest())
	quiz.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { _ = registry.Delete(task.ID) }).
		Return(&domain.QuizResult{}, nil)

	worker := NewTaskWorker(registry, quiz, 1, nil)
	require.NoError(t, worker.ProcessJobs(context.Background()))
	require.NoError(t, worker.Wait(context.Background()))

	_, err := registry.Get(task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

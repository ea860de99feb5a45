package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/google/uuid"
)

// Registry holds every asynchronous task of the process. Readers always get
// deep copies; writers go through Update.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	now   func() time.Time
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*domain.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a pending task for req
func (r *Registry) Create(req domain.QuizRequest) *domain.Task {
	task := domain.NewTask(uuid.NewString(), req, r.now())

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	return task.Clone()
}

// Get returns a copy of the task with the given id
func (r *Registry) Get(id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Update applies fn to a copy of the task under the write lock. The copy
// replaces the stored task only if it is still a valid task with the same id.
func (r *Registry) Update(id string, fn func(t *domain.Task)) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	next := task.Clone()
	fn(next)
	if next.ID != id {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "task id cannot change")
	}
	if err := domain.ValidateTask(next); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid task update", err)
	}
	next.UpdatedAt = r.now()
	r.tasks[id] = next
	return next.Clone(), nil
}

// Delete removes the task with the given id
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

// List returns every task, newest first, without results.
func (r *Registry) List() []*domain.Task {
	r.mu.RLock()
	out := make([]*domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		cp := *task
		cp.Result = nil
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Counts returns the number of tasks per status
func (r *Registry) Counts() map[domain.TaskStatus]int {
	counts := map[domain.TaskStatus]int{
		domain.TaskStatusPending:    0,
		domain.TaskStatusProcessing: 0,
		domain.TaskStatusCompleted:  0,
		domain.TaskStatusFailed:     0,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, task := range r.tasks {
		counts[task.Status]++
	}
	return counts
}

// ClaimPending moves up to limit pending tasks, oldest first, to processing
// and returns copies of them.
func (r *Registry) ClaimPending(limit int) []*domain.Task {
	if limit <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*domain.Task, 0)
	for _, task := range r.tasks {
		if task.Status == domain.TaskStatusPending {
			pending = append(pending, task)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := r.now()
	claimed := make([]*domain.Task, len(pending))
	for i, task := range pending {
		task.Status = domain.TaskStatusProcessing
		task.Message = "processing"
		task.UpdatedAt = now
		claimed[i] = task.Clone()
	}
	return claimed
}

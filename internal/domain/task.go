package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the status of an asynchronous generation task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// QuizRequest is a question generation request over one or more files
type QuizRequest struct {
	Files          []SourceFile `json:"files"`
	TotalQuestions int          `json:"total_questions"`
	ProjectID      string       `json:"project_id"`
	Name           string       `json:"name"`
}

// QuizMetadata describes how a QuizResult was produced
type QuizMetadata struct {
	ProjectID         string         `json:"project_id,omitempty"`
	Name              string         `json:"name,omitempty"`
	RequestedCount    int            `json:"requested_count"`
	GeneratedCount    int            `json:"generated_count"`
	FallbackCount     int            `json:"fallback_count"`
	ProcessedFiles    int            `json:"processed_files"`
	CachedFiles       int            `json:"cached_files"`
	ProcessingSeconds float64        `json:"processing_seconds"`
	Distribution      map[string]int `json:"distribution,omitempty"`
}

// QuizResult is the outcome of a generation request
type QuizResult struct {
	Questions   []Question   `json:"questions"`
	Summary     string       `json:"summary"`
	FailedFiles []FailedFile `json:"failed_files"`
	Metadata    QuizMetadata `json:"metadata"`
}

// Task tracks an asynchronous generation request
type Task struct {
	ID        string      `json:"task_id"`
	Status    TaskStatus  `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Error     string      `json:"error,omitempty"`
	Request   QuizRequest `json:"-"`
	Result    *QuizResult `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewTask creates a pending Task for req
func NewTask(id string, req QuizRequest, now time.Time) *Task {
	return &Task{
		ID:        id,
		Status:    TaskStatusPending,
		Message:   "queued",
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so readers never share memory with the writer.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Request.Files = append([]SourceFile(nil), t.Request.Files...)
	if t.Result != nil {
		res := *t.Result
		res.Questions = cloneQuestions(t.Result.Questions)
		res.FailedFiles = append([]FailedFile(nil), t.Result.FailedFiles...)
		if t.Result.Metadata.Distribution != nil {
			res.Metadata.Distribution = make(map[string]int, len(t.Result.Metadata.Distribution))
			for k, v := range t.Result.Metadata.Distribution {
				res.Metadata.Distribution[k] = v
			}
		}
		cp.Result = &res
	}
	return &cp
}

// Done reports whether the task reached a terminal status
func (t *Task) Done() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

func cloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q
		out[i].Choices = append([]Choice(nil), q.Choices...)
	}
	return out
}

// ValidateTask validates a Task instance
func ValidateTask(t *Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if !isValidTaskStatus(t.Status) {
		return fmt.Errorf("task Status is invalid: %s", t.Status)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("task Progress must be between 0 and 100, got %d", t.Progress)
	}
	return nil
}

func isValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing,
		TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

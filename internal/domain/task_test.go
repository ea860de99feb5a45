package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	now := time.Now()
	req := QuizRequest{Files: []SourceFile{{URL: "https://example.com/a.pdf"}}, TotalQuestions: 5}
	task := NewTask("task-1", req, now)

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, now, task.CreatedAt)
	assert.Nil(t, task.Result)
	assert.False(t, task.Done())
}

func TestTaskStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   TaskStatus
		expected string
	}{
		{"Pending", TaskStatusPending, "pending"},
		{"Processing", TaskStatusProcessing, "processing"},
		{"Completed", TaskStatusCompleted, "completed"},
		{"Failed", TaskStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestTaskClone_IsDeep(t *testing.T) {
	task := NewTask("task-1", QuizRequest{Files: []SourceFile{{URL: "u"}}}, time.Now())
	task.Result = &QuizResult{
		Questions:   []Question{*validQuestion()},
		FailedFiles: []FailedFile{{FileName: "f"}},
		Metadata:    QuizMetadata{Distribution: map[string]int{"f": 1}},
	}

	cp := task.Clone()
	cp.Request.Files[0].URL = "changed"
	cp.Result.Questions[0].Choices[0].Content = "changed"
	cp.Result.FailedFiles[0].FileName = "changed"
	cp.Result.Metadata.Distribution["f"] = 9

	assert.Equal(t, "u", task.Request.Files[0].URL)
	assert.Equal(t, "Network layer", task.Result.Questions[0].Choices[0].Content)
	assert.Equal(t, "f", task.Result.FailedFiles[0].FileName)
	assert.Equal(t, 1, task.Result.Metadata.Distribution["f"])

	var nilTask *Task
	assert.Nil(t, nilTask.Clone())
}

func TestValidateTask(t *testing.T) {
	task := NewTask("task-1", QuizRequest{}, time.Now())
	require.NoError(t, ValidateTask(task))

	task.Progress = 101
	assert.Error(t, ValidateTask(task))

	task.Progress = 50
	task.Status = "unknown"
	assert.Error(t, ValidateTask(task))

	task.Status = TaskStatusCompleted
	task.ID = ""
	assert.Error(t, ValidateTask(task))

	assert.Error(t, ValidateTask(nil))
}

func TestErrorTypes(t *testing.T) {
	extract := &ExtractionError{Source: "a.pdf", Reason: "no text"}
	assert.Equal(t, "extract a.pdf: no text", extract.Error())
	assert.True(t, IsPerFileError(extract))

	download := &DownloadError{URL: "https://x/a.pdf", Status: 404}
	assert.Equal(t, "download https://x/a.pdf: status 404", download.Error())
	assert.True(t, IsPerFileError(download))

	gen := &GenerationError{Detail: GenerationTimeoutDetail}
	assert.True(t, gen.Timeout())
	assert.False(t, IsPerFileError(gen))

	gen = &GenerationError{Status: 429, Detail: "rate limited"}
	assert.False(t, gen.Timeout())
	assert.Contains(t, gen.Error(), "429")
}

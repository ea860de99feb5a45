package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultPollInterval = 2 * time.Second

type SourceFile struct {
	URL      string `json:"url"`
	FileName string `json:"file_name,omitempty"`
}

type GenerateRequest struct {
	Files          []SourceFile `json:"files"`
	TotalQuestions int          `json:"total_questions"`
	ProjectID      string       `json:"project_id,omitempty"`
	Name           string       `json:"name,omitempty"`
}

type Choice struct {
	Content     string `json:"content"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

type Question struct {
	Question    string   `json:"question"`
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation"`
	Choices     []Choice `json:"choices"`
	Source      string   `json:"source"`
}

type FailedFile struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	Error    string `json:"error"`
}

type QuizResult struct {
	Questions   []Question     `json:"questions"`
	Summary     string         `json:"summary"`
	FailedFiles []FailedFile   `json:"failed_files"`
	Metadata    map[string]any `json:"metadata"`
}

type Task struct {
	ID        string    `json:"task_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Task) Done() bool {
	return t.Status == "completed" || t.Status == "failed"
}

// GenerateCmd creates the generate command.
func GenerateCmd() *cobra.Command {
	var (
		files     []string
		questions int
		projectID string
		name      string
		async     bool
		wait      bool
		poll      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz from one or more PDFs",
		Long: `Generate multiple-choice questions from PDFs reachable by the server.

Each --file is a URL (http, https, s3 or file when the server allows it),
optionally followed by =name to set the display name used for caching.
URLs with a query string cannot carry a name:

  quizgen generate --file https://example.com/bio.pdf=Biology --questions 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := parseFileArgs(files)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			req := GenerateRequest{Files: sources, TotalQuestions: questions, ProjectID: projectID, Name: name}
			if !async {
				var result QuizResult
				if err := api.PostInto(ctx, "/generate-questions", req, &result); err != nil {
					return fmt.Errorf("failed to generate questions: %w", err)
				}
				return writeResult(cmd.OutOrStdout(), outputJSON, &result)
			}

			var task Task
			if err := api.PostInto(ctx, "/generate-questions/async", req, &task); err != nil {
				return fmt.Errorf("failed to submit task: %w", err)
			}
			if !wait {
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), task)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s %s\n", task.ID, task.Status)
				return nil
			}

			progress := func(t Task) {
				if !outputJSON {
					fmt.Fprintf(cmd.ErrOrStderr(), "\r[%3d%%] %-60s", t.Progress, t.Message)
				}
			}
			result, err := WaitForResult(ctx, api, task.ID, poll, progress)
			if !outputJSON {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), outputJSON, result)
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Source PDF URL, optionally URL=name (repeatable)")
	cmd.Flags().IntVarP(&questions, "questions", "n", 10, "Total number of questions")
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID recorded in the result metadata")
	cmd.Flags().StringVar(&name, "name", "", "Quiz name recorded in the result metadata")
	cmd.Flags().BoolVar(&async, "async", false, "Submit as a background task")
	cmd.Flags().BoolVar(&wait, "wait", false, "With --async, poll until the task finishes")
	cmd.Flags().DurationVar(&poll, "poll", defaultPollInterval, "Polling interval for --wait")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// parseFileArgs turns URL or URL=name arguments into source files.
func parseFileArgs(args []string) ([]SourceFile, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one --file is required")
	}
	files := make([]SourceFile, 0, len(args))
	for _, arg := range args {
		url, name := arg, ""
		// URLs with a query string cannot carry a name.
		if !strings.Contains(arg, "?") {
			if i := strings.LastIndex(arg, "="); i >= 0 {
				url, name = arg[:i], arg[i+1:]
			}
		}
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, fmt.Errorf("empty file URL in %q", arg)
		}
		files = append(files, SourceFile{URL: url, FileName: strings.TrimSpace(name)})
	}
	return files, nil
}

// WaitForResult polls a task until it finishes and returns its result.
func WaitForResult(ctx context.Context, api *APIClient, id string, interval time.Duration, onProgress func(Task)) (*QuizResult, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var task Task
		if err := api.GetInto(ctx, "/task-status/"+id, &task); err != nil {
			return nil, fmt.Errorf("failed to poll task %s: %w", id, err)
		}
		if onProgress != nil {
			onProgress(task)
		}

		switch task.Status {
		case "completed":
			var result QuizResult
			if err := api.GetInto(ctx, "/task-result/"+id, &result); err != nil {
				return nil, fmt.Errorf("failed to fetch result of task %s: %w", id, err)
			}
			return &result, nil
		case "failed":
			return nil, fmt.Errorf("task %s failed: %s", id, task.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func writeResult(out io.Writer, outputJSON bool, result *QuizResult) error {
	if outputJSON {
		return writeJSON(out, result)
	}

	if result.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n\n", result.Summary)
	}
	for i, q := range result.Questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Question)
		for j, choice := range q.Choices {
			marker := " "
			if choice.IsCorrect {
				marker = "*"
			}
			fmt.Fprintf(out, "   %s %c) %s\n", marker, 'a'+j, choice.Content)
		}
		if q.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", q.Explanation)
		}
		fmt.Fprintln(out)
	}
	for _, f := range result.FailedFiles {
		name := f.FileName
		if name == "" {
			name = f.URL
		}
		fmt.Fprintf(out, "Failed: %s: %s\n", name, f.Error)
	}
	return nil
}

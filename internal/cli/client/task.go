package client

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type TaskList struct {
	Tasks   []Task         `json:"tasks"`
	Counts  map[string]int `json:"counts"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

func taskListPath(limit int, cursor string) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) == 0 {
		return "/tasks"
	}
	return "/tasks?" + q.Encode()
}

// TaskCmd groups the background task commands.
func TaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Inspect background generation tasks",
	}

	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskResultCmd())
	cmd.AddCommand(taskWaitCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskDeleteCmd())

	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task_id>",
		Short: "Show task progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var task Task
			if err := api.GetInto(cmd.Context(), "/task-status/"+args[0], &task); err != nil {
				return fmt.Errorf("failed to get task: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, task)
			}
			fmt.Fprintf(out, "Task: %s\n", task.ID)
			fmt.Fprintf(out, "Status: %s (%d%%)\n", task.Status, task.Progress)
			fmt.Fprintf(out, "Message: %s\n", task.Message)
			if task.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", task.Error)
			}
			return nil
		},
	}
}

func taskResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <task_id>",
		Short: "Print the result of a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var result QuizResult
			if err := api.GetInto(cmd.Context(), "/task-result/"+args[0], &result); err != nil {
				return fmt.Errorf("failed to get task result: %w", err)
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return writeResult(cmd.OutOrStdout(), outputJSON, &result)
		},
	}
}

func taskWaitCmd() *cobra.Command {
	var poll = defaultPollInterval

	cmd := &cobra.Command{
		Use:   "wait <task_id>",
		Short: "Wait for a task and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			result, err := WaitForResult(cmd.Context(), api, args[0], poll, nil)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return writeResult(cmd.OutOrStdout(), outputJSON, result)
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", defaultPollInterval, "Polling interval")
	return cmd
}

func taskListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var list TaskList
			if err := api.GetInto(cmd.Context(), taskListPath(limit, cursor), &list); err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, list)
			}
			if len(list.Tasks) == 0 {
				fmt.Fprintln(out, "No tasks")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tCREATED")
			for _, t := range list.Tasks {
				fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n", t.ID, t.Status, t.Progress, t.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if list.HasMore {
				fmt.Fprintf(out, "\nMore tasks: quizgen task list --cursor %s\n", list.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum tasks per page (server default when 0)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task_id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete(cmd.Context(), "/tasks/"+args[0]); err != nil {
				return fmt.Errorf("failed to delete task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}

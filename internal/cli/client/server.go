package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

type CacheStats struct {
	Backend      string  `json:"backend"`
	Documents    int     `json:"documents"`
	QuestionSets int     `json:"question_sets"`
	SizeBytes    int64   `json:"size_bytes"`
	SizeMB       float64 `json:"size_mb"`
}

type Health struct {
	Status     string      `json:"status"`
	Cache      *CacheStats `json:"cache,omitempty"`
	CacheError string      `json:"cache_error,omitempty"`
	Generator  struct {
		Available bool   `json:"available"`
		Model     string `json:"model,omitempty"`
	} `json:"generator"`
	Tasks map[string]int `json:"tasks"`
}

// HealthCmd reports the server status.
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var health Health
			if err := api.GetInto(cmd.Context(), "/health", &health); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, health)
			}
			fmt.Fprintf(out, "Status: %s\n", health.Status)
			if health.Generator.Available {
				fmt.Fprintf(out, "Generator: %s\n", health.Generator.Model)
			} else {
				fmt.Fprintln(out, "Generator: unavailable")
			}
			if health.Cache != nil {
				writeCacheStats(cmd, health.Cache)
			} else if health.CacheError != "" {
				fmt.Fprintf(out, "Cache: %s\n", health.CacheError)
			}
			for status, n := range health.Tasks {
				fmt.Fprintf(out, "Tasks %s: %d\n", status, n)
			}
			return nil
		},
	}
}

// RemoteCacheCmd inspects and clears the server cache over HTTP.
func RemoteCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the server cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var stats CacheStats
			if err := api.GetInto(cmd.Context(), "/cache/info", &stats); err != nil {
				return fmt.Errorf("failed to get cache info: %w", err)
			}
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			writeCacheStats(cmd, &stats)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached document and question set",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var cleared struct {
				Removed int `json:"removed"`
			}
			resp, err := api.Delete(cmd.Context(), "/cache")
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			if err := resp.Decode(&cleared); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", cleared.Removed)
			return nil
		},
	})

	return cmd
}

func writeCacheStats(cmd *cobra.Command, stats *CacheStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache backend: %s\n", stats.Backend)
	fmt.Fprintf(out, "Documents: %d\n", stats.Documents)
	fmt.Fprintf(out, "Question sets: %d\n", stats.QuestionSets)
	fmt.Fprintf(out, "Size: %.2f MB\n", stats.SizeMB)
}

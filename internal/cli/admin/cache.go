package admin

import (
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/quizgen/internal/config"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/spf13/cobra"
)

// CacheCmd inspects and clears the configured cache backend directly,
// without going through a running server.
func CacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the document cache",
	}

	cmd.PersistentFlags().Bool("json", false, "Output as JSON")
	cmd.AddCommand(cacheInfoCmd())
	cmd.AddCommand(cacheClearCmd())

	return cmd
}

func cacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openLocalApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read cache stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				data, _ := json.MarshalIndent(stats, "", "  ")
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintf(out, "Backend: %s\n", stats.Backend)
			fmt.Fprintf(out, "Documents: %d\n", stats.Documents)
			fmt.Fprintf(out, "Question sets: %d\n", stats.QuestionSets)
			fmt.Fprintf(out, "Size: %d bytes (%.2f MB)\n", stats.SizeBytes, stats.SizeMB)
			return nil
		},
	}
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached document and question set",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openLocalApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			removed, err := app.Store.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", removed)
			return nil
		},
	}
}

// openLocalApp builds an App from the environment with logging kept quiet
// unless --verbose is set.
func openLocalApp(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openAppWithConfig(cmd, cfg)
}

func openAppWithConfig(cmd *cobra.Command, cfg *config.Config) (*App, error) {
	log := logger.Nop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		l, err := logger.New(cfg.LogMode)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = l
	}
	return NewApp(cmd.Context(), cfg, log, AppOptions{})
}

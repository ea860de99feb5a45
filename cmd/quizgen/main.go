package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/quizgen/internal/cli"
	"github.com/cloo-solutions/quizgen/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "quizgen",
		Short: "Quizgen CLI - multiple-choice quizzes from PDFs",
		Long: `Quizgen CLI talks to a running quizgend server.

Environment variables:
  QUIZGEN_API_URL   Server URL (default: http://localhost:8080)
  QUIZGEN_API_KEY   API key, when the server requires one`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "Server URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.GenerateCmd())
	rootCmd.AddCommand(client.TaskCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.RemoteCacheCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/quizgen/internal/cli"
	"github.com/cloo-solutions/quizgen/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quizgend",
		Short: "Quizgen daemon and CLI",
		Long:  "Quizgen daemon for serving the question generation API and managing its cache",
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr while running local commands")
	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.CacheCmd())
	rootCmd.AddCommand(admin.GenerateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

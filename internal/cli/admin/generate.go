package admin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/config"
	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/spf13/cobra"
)

// GenerateCmd runs one generation request in-process. Plain paths are read
// from the local filesystem.
func GenerateCmd() *cobra.Command {
	var (
		questions int
		name      string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "generate <pdf>...",
		Short: "Generate a quiz locally without starting the server",
		Long: `Generate a quiz from local PDF paths or http(s)/s3 URLs and write it as JSON.

  quizgend generate notes.pdf slides.pdf -n 20 -o quiz.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			req := domain.QuizRequest{TotalQuestions: questions, Name: name}
			for _, arg := range args {
				file, local, err := sourceFor(arg)
				if err != nil {
					return err
				}
				if local {
					cfg.AllowLocalFiles = true
				}
				req.Files = append(req.Files, file)
			}

			app, err := openAppWithConfig(cmd, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			progress := func(p int, msg string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r[%3d%%] %-60s", p, msg)
			}
			result, err := app.Quiz.Generate(cmd.Context(), req, progress)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			if output == "" || output == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d questions to %s (%d fallback, %d failed files)\n",
				len(result.Questions), output, result.Metadata.FallbackCount, len(result.FailedFiles))
			return nil
		},
	}

	cmd.Flags().IntVarP(&questions, "questions", "n", 10, "Total number of questions")
	cmd.Flags().StringVar(&name, "name", "", "Quiz name recorded in the result metadata")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")

	return cmd
}

// sourceFor maps a CLI argument to a source file. Arguments without a
// scheme are local paths and become file:// URLs named after their base name.
func sourceFor(arg string) (domain.SourceFile, bool, error) {
	if strings.Contains(arg, "://") {
		return domain.SourceFile{URL: arg}, strings.HasPrefix(arg, "file://"), nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return domain.SourceFile{}, false, fmt.Errorf("invalid path %q: %w", arg, err)
	}
	return domain.SourceFile{URL: "file://" + filepath.ToSlash(abs), FileName: filepath.Base(abs)}, true, nil
}

package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type ChatRequest struct {
	File    SourceFile `json:"file"`
	Message string     `json:"message"`
	Mode    string     `json:"mode,omitempty"`
}

type ChatSource struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type ChatResponse struct {
	Answer   string       `json:"answer"`
	Extended string       `json:"extended,omitempty"`
	Sources  []ChatSource `json:"sources"`
}

// ChatCmd asks a question about one document.
func ChatCmd() *cobra.Command {
	var (
		file        string
		extended    bool
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask a question about a PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := parseFileArgs([]string{file})
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := ChatRequest{File: files[0], Message: strings.Join(args, " "), Mode: "document"}
			if extended {
				req.Mode = "extended"
			}

			var resp ChatResponse
			if err := api.PostInto(cmd.Context(), "/chat", req, &resp); err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, resp)
			}
			fmt.Fprintln(out, resp.Answer)
			if resp.Extended != "" {
				fmt.Fprintf(out, "\nBeyond the document:\n%s\n", resp.Extended)
			}
			if showSources {
				for i, s := range resp.Sources {
					fmt.Fprintf(out, "\n[%d] (%.2f) %s\n", i+1, s.Score, s.Text)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Source PDF URL, optionally URL=name")
	cmd.Flags().BoolVar(&extended, "extended", false, "Add general knowledge beyond the document")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the passages the answer was grounded on")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

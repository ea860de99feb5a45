package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage server credentials",
		Long:  "Store, clear and inspect the server URL and API key used by the quizgen CLI",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string
	var prompt bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the server URL and API key",
		Long:  "Store the server URL and API key in the global config (~/.config/quizgen/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt && apiKey == "" {
				key, err := readKey(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				apiKey = key
			}
			return runAuthLogin(cmd.OutOrStdout(), apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (leave empty for servers without authentication)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "Server URL")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Read the API key from stdin")

	return cmd
}

func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed")
			return nil
		},
	}
}

func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which server the CLI talks to",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			outputJSON, _ := cmd.Flags().GetBool("output")
			creds, err := ResolveCredentials(flagKey, flagURL)
			if err != nil {
				return err
			}
			return writeAuthStatus(cmd.OutOrStdout(), outputJSON, creds)
		},
	}
}

func readKey(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter API key: ")
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(input), nil
}

func runAuthLogin(out io.Writer, apiKey, apiURL string) error {
	if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
		return fmt.Errorf("invalid server URL %q (expected http:// or https://)", apiURL)
	}

	config := &GlobalConfig{
		APIKey: strings.TrimSpace(apiKey),
		APIURL: strings.TrimRight(apiURL, "/"),
	}
	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "Saved credentials for %s\n", config.APIURL)
	return nil
}

func writeAuthStatus(out io.Writer, outputJSON bool, creds Credentials) error {
	if outputJSON {
		status := map[string]interface{}{
			"api_url":    creds.APIURL,
			"url_source": string(creds.URLSource),
			"key_source": string(creds.KeySource),
			"has_key":    creds.APIKey != "",
		}
		if creds.APIKey != "" {
			status["api_key"] = maskAPIKey(creds.APIKey)
		}
		return writeJSON(out, status)
	}

	fmt.Fprintf(out, "API URL: %s (from %s)\n", creds.APIURL, creds.URLSource)
	if creds.APIKey == "" {
		fmt.Fprintln(out, "API Key: (none)")
	} else {
		fmt.Fprintf(out, "API Key: %s (from %s)\n", maskAPIKey(creds.APIKey), creds.KeySource)
	}
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// envConfigDir overrides the directory holding config.json.
const envConfigDir = "QUIZGEN_CONFIG_DIR"

// GlobalConfig is what `quizgen auth login` stores.
type GlobalConfig struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url"`
}

func GetConfigDir() (string, error) {
	if dir := os.Getenv(envConfigDir); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "quizgen"), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadGlobalConfig returns nil and no error when nothing has been saved.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return &config, nil
}

// SaveGlobalConfig replaces config.json atomically; the file is readable by
// the owner only since it may hold an API key.
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.json")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.Remove(configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
	SourceNone         CredentialSource = "none"
)

// Credentials is the server URL and optional key a command will use, with
// where each came from.
type Credentials struct {
	APIKey    string
	KeySource CredentialSource
	APIURL    string
	URLSource CredentialSource
}

// ResolveCredentials resolves the key and URL independently, each in the
// order flag, env, global config. The URL falls back to defaultAPIURL; the
// key may stay empty when the server runs without authentication.
func ResolveCredentials(flagKey, flagURL string) (Credentials, error) {
	config, err := LoadGlobalConfig()
	if err != nil {
		return Credentials{}, err
	}
	if config == nil {
		config = &GlobalConfig{}
	}

	creds := Credentials{}
	creds.APIKey, creds.KeySource = firstSet(flagKey, os.Getenv(envAPIKey), config.APIKey, "")
	creds.APIURL, creds.URLSource = firstSet(flagURL, os.Getenv(envAPIURL), config.APIURL, defaultAPIURL)
	return creds, nil
}

func firstSet(flag, env, stored, fallback string) (string, CredentialSource) {
	switch {
	case flag != "":
		return flag, SourceFlag
	case env != "":
		return env, SourceEnv
	case stored != "":
		return stored, SourceGlobalConfig
	case fallback != "":
		return fallback, SourceDefault
	}
	return "", SourceNone
}

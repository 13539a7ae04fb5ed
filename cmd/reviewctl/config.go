package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tony-angelo/aletheia-codex/pkg/client"
	"github.com/tony-angelo/aletheia-codex/pkg/logging"
)

// Config holds CLI configuration loaded from environment
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	timeout := client.DefaultTimeout
	if raw := os.Getenv("REVIEW_API_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			timeout = parsed
		}
	}

	return &Config{
		BaseURL: getEnv("REVIEW_API_URL", "http://localhost:3004"),
		Token:   os.Getenv("REVIEW_API_TOKEN"),
		Timeout: timeout,
	}
}

// envTokenProvider serves the bearer token configured through the environment.
type envTokenProvider struct {
	token string
}

func (p envTokenProvider) Token(context.Context) (string, error) {
	return p.token, nil
}

func newClient(cfg *Config) *client.Client {
	return client.NewClient(client.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, envTokenProvider{token: cfg.Token}, logging.NewNop())
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}

// Package llm provides the speech and language collaborators: audio
// transcription and transaction extraction through hosted model APIs.
package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds configuration for the model clients.
type Config struct {
	Provider           string
	APIKey             string
	Model              string
	TranscriptionModel string
	BaseURL            string
	MaxRetries         int
	RetryDelay         time.Duration
	RequestTimeout     time.Duration
	Temperature        float64
	MaxTokens          int
}

// DefaultConfig returns the configuration the bot ships with: Groq with
// the models the extraction prompt was tuned against.
func DefaultConfig() Config {
	return Config{
		Provider:           ProviderGroq,
		Model:              "meta-llama/llama-4-maverick-17b-128e-instruct",
		TranscriptionModel: "whisper-large-v3",
		Temperature:        0.1,
		MaxTokens:          512,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		RequestTimeout:     60 * time.Second,
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderGroq, ProviderOpenAI, ProviderGemini:
	case "":
		return fmt.Errorf("LLM provider is required")
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.Provider)
	}

	if c.APIKey == "" {
		return fmt.Errorf("%s API key is required", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	return nil
}

// baseURL returns the chat-completions endpoint root for OpenAI-wire
// providers.
func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if strings.ToLower(c.Provider) == ProviderGroq {
		return "https://api.groq.com/openai/v1"
	}
	return "https://api.openai.com/v1"
}

// modelOrDefault returns the configured chat model, falling back to the
// provider's default.
func (c *Config) modelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	switch strings.ToLower(c.Provider) {
	case ProviderGroq:
		return "meta-llama/llama-4-maverick-17b-128e-instruct"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

// transcriptionModelOrDefault returns the configured transcription model,
// falling back to the provider's default.
func (c *Config) transcriptionModelOrDefault() string {
	if c.TranscriptionModel != "" {
		return c.TranscriptionModel
	}
	switch strings.ToLower(c.Provider) {
	case ProviderGroq:
		return "whisper-large-v3"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "whisper-1"
	}
}

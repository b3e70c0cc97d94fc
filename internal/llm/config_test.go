package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderGroq, cfg.Provider)
	assert.Equal(t, "meta-llama/llama-4-maverick-17b-128e-instruct", cfg.Model)
	assert.Equal(t, "whisper-large-v3", cfg.TranscriptionModel)
	assert.InDelta(t, 0.1, cfg.Temperature, 0.001)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid groq",
			config: Config{Provider: ProviderGroq, APIKey: "key"},
		},
		{
			name:   "valid gemini",
			config: Config{Provider: ProviderGemini, APIKey: "key"},
		},
		{
			name:   "provider case-insensitive",
			config: Config{Provider: "Groq", APIKey: "key"},
		},
		{
			name:    "missing provider",
			config:  Config{APIKey: "key"},
			wantErr: "provider is required",
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "mistral", APIKey: "key"},
			wantErr: "unsupported LLM provider",
		},
		{
			name:    "missing API key",
			config:  Config{Provider: ProviderGroq},
			wantErr: "API key is required",
		},
		{
			name:    "temperature too high",
			config:  Config{Provider: ProviderGroq, APIKey: "key", Temperature: 2.5},
			wantErr: "temperature",
		},
		{
			name:    "negative temperature",
			config:  Config{Provider: ProviderGroq, APIKey: "key", Temperature: -0.1},
			wantErr: "temperature",
		},
		{
			name:    "negative max tokens",
			config:  Config{Provider: ProviderGroq, APIKey: "key", MaxTokens: -1},
			wantErr: "max tokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "groq default",
			config: Config{Provider: ProviderGroq},
			want:   "https://api.groq.com/openai/v1",
		},
		{
			name:   "openai default",
			config: Config{Provider: ProviderOpenAI},
			want:   "https://api.openai.com/v1",
		},
		{
			name:   "override wins",
			config: Config{Provider: ProviderGroq, BaseURL: "http://localhost:8080/v1/"},
			want:   "http://localhost:8080/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.baseURL())
		})
	}
}

func TestConfigModelFallbacks(t *testing.T) {
	groq := Config{Provider: ProviderGroq}
	assert.Equal(t, "meta-llama/llama-4-maverick-17b-128e-instruct", groq.modelOrDefault())
	assert.Equal(t, "whisper-large-v3", groq.transcriptionModelOrDefault())

	openai := Config{Provider: ProviderOpenAI}
	assert.Equal(t, "gpt-4o-mini", openai.modelOrDefault())
	assert.Equal(t, "whisper-1", openai.transcriptionModelOrDefault())

	gemini := Config{Provider: ProviderGemini}
	assert.Equal(t, "gemini-2.0-flash", gemini.modelOrDefault())
	assert.Equal(t, "gemini-2.0-flash", gemini.transcriptionModelOrDefault())

	custom := Config{Provider: ProviderGroq, Model: "llama-3.3-70b", TranscriptionModel: "whisper-large-v3-turbo"}
	assert.Equal(t, "llama-3.3-70b", custom.modelOrDefault())
	assert.Equal(t, "whisper-large-v3-turbo", custom.transcriptionModelOrDefault())
}

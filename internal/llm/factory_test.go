package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassifier(t *testing.T) {
	ctx := context.Background()

	t.Run("groq", func(t *testing.T) {
		classifier, err := NewClassifier(ctx, Config{Provider: ProviderGroq, APIKey: "key"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, classifier)
	})

	t.Run("openai", func(t *testing.T) {
		classifier, err := NewClassifier(ctx, Config{Provider: ProviderOpenAI, APIKey: "key"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, classifier)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClassifier(ctx, Config{Provider: "mistral", APIKey: "key"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})

	t.Run("gemini without key", func(t *testing.T) {
		_, err := NewClassifier(ctx, Config{Provider: ProviderGemini}, nil)
		require.Error(t, err)
	})
}

func TestNewTranscriber(t *testing.T) {
	ctx := context.Background()

	t.Run("groq", func(t *testing.T) {
		transcriber, err := NewTranscriber(ctx, Config{Provider: ProviderGroq, APIKey: "key"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, transcriber)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewTranscriber(ctx, Config{Provider: "whispercpp", APIKey: "key"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported transcription provider")
	})
}

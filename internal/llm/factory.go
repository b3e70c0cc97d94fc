package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// NewClassifier creates a classifier for the configured provider.
func NewClassifier(ctx context.Context, cfg Config, logger *slog.Logger) (service.Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderGroq, ProviderOpenAI:
		return newOpenAIClient(cfg, logger)
	case ProviderGemini:
		return newGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewTranscriber creates a transcriber for the configured provider.
func NewTranscriber(ctx context.Context, cfg Config, logger *slog.Logger) (service.Transcriber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderGroq, ProviderOpenAI:
		return newOpenAIClient(cfg, logger)
	case ProviderGemini:
		return newGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s", cfg.Provider)
	}
}

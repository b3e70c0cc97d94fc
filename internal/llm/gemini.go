package llm

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// geminiClient runs extraction and transcription through the Gemini API.
// Audio goes inline as a blob part next to the instruction text.
type geminiClient struct {
	client             *genai.Client
	logger             *slog.Logger
	model              string
	transcriptionModel string
}

// newGeminiClient creates a Gemini API client.
func newGeminiClient(ctx context.Context, cfg Config, logger *slog.Logger) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiClient{
		client:             client,
		model:              cfg.modelOrDefault(),
		transcriptionModel: cfg.transcriptionModelOrDefault(),
		logger:             logger,
	}, nil
}

// Classify sends the transcript for extraction.
func (c *geminiClient) Classify(ctx context.Context, req service.ClassifyRequest) (*model.RawClassification, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt + "\n\n" + buildUserPrompt(req)},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to generate classification: %w", err), Retryable: true}
	}

	content := resp.Text()
	if content == "" {
		return nil, &common.RetryableError{Err: fmt.Errorf("empty response from model"), Retryable: true}
	}

	raw, err := parseClassification(content)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: true}
	}
	if raw.SourceText == "" {
		raw.SourceText = req.Text
	}

	c.logger.Debug("text classified",
		"model", c.model,
		"type", raw.Type,
		"category", raw.Category)

	return raw, nil
}

// Transcribe sends the audio inline and asks for a verbatim transcript.
func (c *geminiClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: empty audio payload", common.ErrUnsupportedAudio),
			Retryable: false,
		}
	}

	mimeType, err := audioMIMEType(filename)
	if err != nil {
		return "", &common.RetryableError{Err: err, Retryable: false}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Transcribe this voice note verbatim, in its original language. Respond with the transcript text only, no commentary."},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     audio,
					},
				},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.transcriptionModel, contents, nil)
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("failed to transcribe audio: %w", err), Retryable: true}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: transcription produced no text", common.ErrUnsupportedAudio),
			Retryable: false,
		}
	}

	c.logger.Debug("audio transcribed",
		"model", c.transcriptionModel,
		"bytes", len(audio),
		"chars", len(text))

	return text, nil
}

// audioMIMEType maps the voice-note containers messengers produce onto
// MIME types the API accepts.
func audioMIMEType(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case "", ".ogg", ".oga", ".opus":
		// Voice notes arrive as Ogg/Opus, often without an extension.
		return "audio/ogg", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".wav":
		return "audio/wav", nil
	case ".m4a", ".mp4", ".aac":
		return "audio/mp4", nil
	case ".flac":
		return "audio/flac", nil
	default:
		return "", fmt.Errorf("%w: unrecognized audio extension %q", common.ErrUnsupportedAudio, filepath.Ext(filename))
	}
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// openAIClient speaks the OpenAI wire format, which Groq also serves.
// One client covers both chat completions and audio transcription.
type openAIClient struct {
	httpClient         *http.Client
	logger             *slog.Logger
	apiKey             string
	model              string
	transcriptionModel string
	baseURL            string
	temperature        float64
	maxTokens          int
}

// newOpenAIClient creates a client for an OpenAI-compatible API.
func newOpenAIClient(cfg Config, logger *slog.Logger) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	return &openAIClient{
		apiKey:             cfg.APIKey,
		model:              cfg.modelOrDefault(),
		transcriptionModel: cfg.transcriptionModelOrDefault(),
		baseURL:            cfg.baseURL(),
		temperature:        temperature,
		maxTokens:          maxTokens,
		logger:             logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// chatResponse is the subset of the completions payload the client reads.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}

// Classify sends the transcript for extraction and decodes the JSON
// object the model answers with.
func (c *openAIClient) Classify(ctx context.Context, req service.ClassifyRequest) (*model.RawClassification, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(req)},
		},
		"temperature":     c.temperature,
		"max_tokens":      c.maxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err), Retryable: true}
	}
	if len(response.Choices) == 0 {
		return nil, &common.RetryableError{Err: fmt.Errorf("no completion choices returned"), Retryable: true}
	}

	raw, err := parseClassification(response.Choices[0].Message.Content)
	if err != nil {
		// A garbled generation is worth one more attempt.
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

// transcriptionResponse is the transcription endpoint's payload.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the transcription endpoint and returns the
// recognized text.
func (c *openAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: empty audio payload", common.ErrUnsupportedAudio),
			Retryable: false,
		}
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}
	if resp.StatusCode == http.StatusBadRequest {
		// The API rejected the file itself: wrong container, codec, or
		// a payload that is not audio at all.
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: %s", common.ErrUnsupportedAudio, truncateBody(body)),
			Retryable: false,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode, body)
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err), Retryable: true}
	}

	text := strings.TrimSpace(tr.Text)
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

// apiError classifies an HTTP failure: rate limits and server errors are
// retryable, everything else is a caller problem and must not be retried.
func apiError(status int, body []byte) error {
	err := fmt.Errorf("API error (status %d): %s", status, truncateBody(body))
	switch {
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("%w: %v", common.ErrRateLimit, err), Retryable: true}
	case status >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

func truncateBody(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

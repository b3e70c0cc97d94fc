package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/moneytalks-bot/moneytalks/internal/engine"
	"github.com/moneytalks-bot/moneytalks/internal/llm"
	"github.com/moneytalks-bot/moneytalks/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration. Precedence:
// 1. Viper configuration (config file or MONEYTALKS_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig() (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		config.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		config.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		config.RefreshToken = v
	}
	if v := viper.GetString("sheets.income_sheet"); v != "" {
		config.IncomeSheet = v
	}
	if v := viper.GetString("sheets.expense_sheet"); v != "" {
		config.ExpenseSheet = v
	}
	if v := viper.GetString("sheets.category_column"); v != "" {
		config.CategoryColumn = v
	}
	if v := viper.GetString("sheets.marker_column"); v != "" {
		config.MarkerColumn = v
	}
	if v := viper.GetString("sheets.user_column"); v != "" {
		config.UserColumn = v
	}
	if v := viper.GetInt("sheets.retry_attempts"); v > 0 {
		config.RetryAttempts = v
	}
	if v := viper.GetDuration("sheets.retry_delay"); v > 0 {
		config.RetryDelay = v
	}
	if v := viper.GetDuration("sheets.request_timeout"); v > 0 {
		config.RequestTimeout = v
	}

	// Fall back to direct environment variables for credentials.
	if config.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
			config.ServiceAccountPath = ExpandPath(v)
		}
	}
	if config.ClientID == "" {
		config.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if config.RefreshToken == "" {
		config.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadLLMConfig loads model API configuration. The API key falls back to
// the provider's conventional environment variable.
func LoadLLMConfig() (llm.Config, error) {
	config := llm.DefaultConfig()

	if v := viper.GetString("llm.provider"); v != "" {
		config.Provider = v
	}
	if v := viper.GetString("llm.api_key"); v != "" {
		config.APIKey = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		config.Model = v
	}
	if v := viper.GetString("llm.transcription_model"); v != "" {
		config.TranscriptionModel = v
	}
	if v := viper.GetString("llm.base_url"); v != "" {
		config.BaseURL = v
	}
	if viper.IsSet("llm.temperature") {
		config.Temperature = viper.GetFloat64("llm.temperature")
	}
	if v := viper.GetInt("llm.max_tokens"); v > 0 {
		config.MaxTokens = v
	}
	if v := viper.GetInt("llm.max_retries"); v > 0 {
		config.MaxRetries = v
	}
	if v := viper.GetDuration("llm.retry_delay"); v > 0 {
		config.RetryDelay = v
	}
	if v := viper.GetDuration("llm.request_timeout"); v > 0 {
		config.RequestTimeout = v
	}

	if config.APIKey == "" {
		switch strings.ToLower(config.Provider) {
		case llm.ProviderGroq:
			config.APIKey = os.Getenv("GROQ_API_KEY")
		case llm.ProviderOpenAI:
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		case llm.ProviderGemini:
			config.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if err := config.Validate(); err != nil {
		return llm.Config{}, err
	}

	return config, nil
}

// LoadEngineConfig loads pipeline timeouts and retry policy.
func LoadEngineConfig() engine.Config {
	config := engine.DefaultConfig()

	if v := viper.GetDuration("engine.transcribe_timeout"); v > 0 {
		config.TranscribeTimeout = v
	}
	if v := viper.GetDuration("engine.classify_timeout"); v > 0 {
		config.ClassifyTimeout = v
	}
	if v := viper.GetDuration("engine.append_timeout"); v > 0 {
		config.AppendTimeout = v
	}
	if v := viper.GetInt("engine.max_retries"); v > 0 {
		config.Retry.MaxAttempts = v
	}
	if v := viper.GetDuration("engine.retry_delay"); v > 0 {
		config.Retry.InitialDelay = v
	}
	if v := viper.GetDuration("engine.max_retry_delay"); v > 0 {
		config.Retry.MaxDelay = v
	}

	return config
}

// DataPaths locates the bot's local state on disk.
type DataPaths struct {
	GroupsPath  string
	JournalPath string
}

// LoadDataPaths loads storage locations, defaulting to the XDG data
// directory.
func LoadDataPaths() DataPaths {
	paths := DataPaths{
		GroupsPath:  ExpandPath("$HOME/.local/share/moneytalks/groups.json"),
		JournalPath: ExpandPath("$HOME/.local/share/moneytalks/journal.db"),
	}

	if v := viper.GetString("storage.groups_path"); v != "" {
		paths.GroupsPath = ExpandPath(v)
	}
	if v := viper.GetString("storage.journal_path"); v != "" {
		paths.JournalPath = ExpandPath(v)
	}

	return paths
}

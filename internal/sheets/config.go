// Package sheets provides the Google Sheets ledger transport: appending
// transaction rows, discovering category sets, and removing rows by marker.
package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/model"
)

// Config holds the configuration for the Google Sheets client.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	IncomeSheet        string
	ExpenseSheet       string
	CategoryColumn     string
	MarkerColumn       string
	UserColumn         string
	RetryAttempts      int
	RetryDelay         time.Duration
	RequestTimeout     time.Duration
}

// DefaultConfig returns a Config with sensible defaults. The sheet names
// match the ledger template the bot was built around.
func DefaultConfig() Config {
	return Config{
		IncomeSheet:    "Доходы факт",
		ExpenseSheet:   "Расходы факт",
		CategoryColumn: "C",
		MarkerColumn:   "L",
		UserColumn:     "M",
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// LoadFromEnv loads the authentication settings from environment variables.
func (c *Config) LoadFromEnv() error {
	// OAuth2 credentials
	c.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	c.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	c.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")

	// Service account path (alternative to OAuth2)
	c.ServiceAccountPath = os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")

	// Validate that we have at least one auth method
	if c.ServiceAccountPath == "" && (c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "") {
		return fmt.Errorf("missing Google Sheets authentication: provide either service account path or OAuth2 credentials")
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Check authentication
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.IncomeSheet == "" || c.ExpenseSheet == "" {
		return fmt.Errorf("income and expense sheet names must be set")
	}

	for _, col := range []string{c.CategoryColumn, c.MarkerColumn, c.UserColumn} {
		if !validColumn(col) {
			return fmt.Errorf("invalid column reference %q", col)
		}
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}

// SectionFor returns the sheet a transaction of the given type lands in.
func (c *Config) SectionFor(t model.TransactionType) string {
	if t == model.TypeIncome {
		return c.IncomeSheet
	}
	return c.ExpenseSheet
}

// Sections lists both ledger sections with their transaction types.
func (c *Config) Sections() map[model.TransactionType]string {
	return map[model.TransactionType]string{
		model.TypeIncome:  c.IncomeSheet,
		model.TypeExpense: c.ExpenseSheet,
	}
}

func validColumn(col string) bool {
	if col == "" || len(col) > 2 {
		return false
	}
	for i := 0; i < len(col); i++ {
		if col[i] < 'A' || col[i] > 'Z' {
			return false
		}
	}
	return true
}

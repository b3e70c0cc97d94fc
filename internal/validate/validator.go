// Package validate turns untrusted classifier output into ledger-ready
// transactions, rejecting anything outside the group's registered
// categories and accepted value ranges.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/dates"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// Limits bounds the values a transaction may carry.
type Limits struct {
	Currencies       []string
	FallbackCurrency string
	FallbackLanguage string
	MaxCommentRunes  int
}

// DefaultLimits returns the accepted value ranges the bot ships with.
func DefaultLimits() Limits {
	return Limits{
		Currencies:       []string{"USD", "EUR", "RSD", "RUB"},
		FallbackCurrency: "USD",
		FallbackLanguage: "ru",
		MaxCommentRunes:  256,
	}
}

// Validator implements service.Validator. Checks run in a fixed order and
// stop at the first disqualifying field.
type Validator struct {
	registry  service.CategoryProvider
	logger    *slog.Logger
	resolvers map[string]*dates.Resolver
	limits    Limits
	mu        sync.Mutex
}

// New creates a validator checking categories against registry. Zero
// fields in limits fall back to DefaultLimits values.
func New(registry service.CategoryProvider, limits Limits, logger *slog.Logger) *Validator {
	defaults := DefaultLimits()
	if len(limits.Currencies) == 0 {
		limits.Currencies = defaults.Currencies
	}
	if limits.FallbackCurrency == "" {
		limits.FallbackCurrency = defaults.FallbackCurrency
	}
	if limits.FallbackLanguage == "" {
		limits.FallbackLanguage = defaults.FallbackLanguage
	}
	if limits.MaxCommentRunes <= 0 {
		limits.MaxCommentRunes = defaults.MaxCommentRunes
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		registry:  registry,
		limits:    limits,
		logger:    logger,
		resolvers: make(map[string]*dates.Resolver),
	}
}

// Validate checks raw against the group's configuration and returns the
// transaction fit for commit. Field-level failures are
// *common.ValidationError; infrastructure failures (category source down,
// unknown language) pass through unwrapped.
func (v *Validator) Validate(ctx context.Context, raw *model.RawClassification, group *model.Group, ref time.Time) (model.ValidatedTransaction, error) {
	var zero model.ValidatedTransaction

	if raw == nil {
		return zero, common.NewValidationError("classification", "", "no result to validate")
	}
	if group == nil {
		return zero, fmt.Errorf("%w: nil group", common.ErrInvalidConfig)
	}

	txType, ok := model.ParseTransactionType(raw.Type)
	if !ok {
		return zero, common.NewValidationError("type", raw.Type, "must be income or expense")
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		return zero, common.NewValidationError("category", "", "missing")
	}
	spec, found, err := v.registry.Lookup(ctx, group, txType, category)
	if err != nil {
		return zero, fmt.Errorf("failed to look up category: %w", err)
	}
	if !found {
		return zero, common.NewValidationError("category", category, fmt.Sprintf("not registered for %s", txType))
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return zero, err
	}

	currency, err := v.resolveCurrency(raw.Currency, group)
	if err != nil {
		return zero, err
	}

	resolver, err := v.resolverFor(v.languageFor(group))
	if err != nil {
		return zero, err
	}

	date, monthLabel, err := resolver.Resolve(raw.Date, ref)
	dateInferred := false
	if err != nil {
		if !errors.Is(err, common.ErrUnparseableDate) {
			return zero, err
		}
		// The phrase meant nothing to the grammar. Fall back to the
		// event date rather than rejecting the whole transaction.
		date, monthLabel, _ = resolver.Resolve("", ref)
		dateInferred = true
		v.logger.Warn("date expression not understood, using event date",
			"expression", raw.Date)
	}

	return model.ValidatedTransaction{
		Date:         date,
		Type:         txType,
		Category:     spec.Name,
		Currency:     currency,
		MonthLabel:   monthLabel,
		Comment:      capComment(raw.Comment, v.limits.MaxCommentRunes),
		Amount:       amount,
		DateInferred: dateInferred,
	}, nil
}

// resolveCurrency normalizes the classifier's currency tag, substituting
// the group default when the utterance named none.
func (v *Validator) resolveCurrency(raw string, group *model.Group) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(group.Currency))
	}
	if code == "" {
		code = v.limits.FallbackCurrency
	}

	if !validCurrencyTag(code) {
		return "", common.NewValidationError("currency", raw, "must be a 3-letter code")
	}
	for _, accepted := range v.limits.Currencies {
		if code == accepted {
			return code, nil
		}
	}
	return "", common.NewValidationError("currency", code,
		fmt.Sprintf("must be one of %s", strings.Join(v.limits.Currencies, ", ")))
}

// resolverFor memoizes one date resolver per language.
func (v *Validator) resolverFor(lang string) (*dates.Resolver, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if r, ok := v.resolvers[lang]; ok {
		return r, nil
	}
	r, err := dates.NewResolver(lang)
	if err != nil {
		return nil, err
	}
	v.resolvers[lang] = r
	return r, nil
}

func (v *Validator) languageFor(group *model.Group) string {
	if group.Language != "" {
		return group.Language
	}
	return v.limits.FallbackLanguage
}

func parseAmount(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, common.NewValidationError("amount", s, "missing")
	}

	// Voice transcripts in comma-decimal locales produce "25,50".
	normalized := strings.ReplaceAll(trimmed, ",", ".")
	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, common.NewValidationError("amount", s, "not a number")
	}
	if amount <= 0 {
		return 0, common.NewValidationError("amount", s, "must be positive")
	}
	return amount, nil
}

func validCurrencyTag(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

func capComment(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}

package validate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
)

// stubProvider serves a fixed category set.
type stubProvider struct {
	err   error
	specs []model.CategorySpec
}

func (s *stubProvider) CategoriesFor(_ context.Context, _ *model.Group) ([]model.CategorySpec, error) {
	return s.specs, s.err
}

func (s *stubProvider) Lookup(_ context.Context, _ *model.Group, txType model.TransactionType, name string) (model.CategorySpec, bool, error) {
	if s.err != nil {
		return model.CategorySpec{}, false, s.err
	}
	name = strings.TrimSpace(name)
	for _, spec := range s.specs {
		if spec.Type == txType && strings.EqualFold(spec.Name, name) {
			return spec, true, nil
		}
	}
	return model.CategorySpec{}, false, nil
}

func (s *stubProvider) Refresh(_ context.Context, _ *model.Group) error {
	return s.err
}

func testProvider() *stubProvider {
	return &stubProvider{specs: []model.CategorySpec{
		{Type: model.TypeIncome, Name: "Зарплата"},
		{Type: model.TypeExpense, Name: "Продукты"},
		{Type: model.TypeExpense, Name: "Транспорт"},
	}}
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return New(testProvider(), Limits{}, slog.Default())
}

func ruGroup() *model.Group {
	return &model.Group{ID: "group-1", SpreadsheetID: "sheet-1", Language: "ru", Currency: "USD"}
}

var testRef = time.Date(2024, 3, 10, 15, 4, 0, 0, time.UTC)

func rawTransaction() *model.RawClassification {
	return &model.RawClassification{
		Type:     "expense",
		Category: "Продукты",
		Amount:   "25.50",
		Currency: "USD",
		Date:     "2024-03-09",
		Comment:  "обед",
	}
}

func TestValidateAccepts(t *testing.T) {
	v := newTestValidator(t)

	raw := &model.RawClassification{
		Type:     "Expense",
		Category: "  продукты ",
		Amount:   "25.50",
		Currency: "usd",
		Date:     "вчера",
		Comment:  "  обед в кафе  ",
	}

	tx, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	require.NoError(t, err)

	assert.Equal(t, model.TypeExpense, tx.Type)
	assert.Equal(t, "Продукты", tx.Category, "canonical spelling replaces the classifier's")
	assert.InDelta(t, 25.50, tx.Amount, 0.001)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, "Март", tx.MonthLabel)
	assert.Equal(t, "обед в кафе", tx.Comment)
	assert.False(t, tx.DateInferred)
}

func TestValidateRejectsUnknownType(t *testing.T) {
	v := newTestValidator(t)

	for _, badType := range []string{"", "transfer", "расход"} {
		raw := rawTransaction()
		raw.Type = badType

		_, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
		require.Error(t, err, "type %q", badType)

		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "type", verr.Field)
	}
}

func TestValidateRejectsUnregisteredCategory(t *testing.T) {
	v := newTestValidator(t)

	raw := rawTransaction()
	raw.Category = "Казино"

	_, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
	assert.Equal(t, "Казино", verr.Value)
	assert.Contains(t, verr.Reason, "expense")
}

func TestValidateRejectsCategoryFromWrongSection(t *testing.T) {
	v := newTestValidator(t)

	raw := rawTransaction()
	raw.Type = "income"
	raw.Category = "Продукты"

	_, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
}

func TestValidateRejectsMissingCategory(t *testing.T) {
	v := newTestValidator(t)

	raw := rawTransaction()
	raw.Category = "   "

	_, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
	assert.Equal(t, "missing", verr.Reason)
}

func TestValidateAmount(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name       string
		amount     string
		want       float64
		wantReason string
	}{
		{name: "plain number", amount: "25", want: 25},
		{name: "decimal point", amount: "25.50", want: 25.5},
		{name: "decimal comma", amount: "25,50", want: 25.5},
		{name: "surrounding whitespace", amount: " 7 ", want: 7},
		{name: "missing", amount: "", wantReason: "missing"},
		{name: "words", amount: "twenty five", wantReason: "not a number"},
		{name: "zero", amount: "0", wantReason: "must be positive"},
		{name: "negative", amount: "-5", wantReason: "must be positive"},
		{name: "overflow", amount: "1e400", wantReason: "not a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawTransaction()
			raw.Amount = tt.amount

			tx, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
			if tt.wantReason != "" {
				var verr *common.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "amount", verr.Field)
				assert.Equal(t, tt.wantReason, verr.Reason)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, tx.Amount, 0.001)
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name          string
		currency      string
		groupCurrency string
		want          string
		wantErr       bool
	}{
		{name: "lowercase accepted", currency: "eur", want: "EUR"},
		{name: "omitted uses group default", currency: "", groupCurrency: "RSD", want: "RSD"},
		{name: "omitted without group default", currency: "", want: "USD"},
		{name: "outside accepted set", currency: "GBP", wantErr: true},
		{name: "not a tag", currency: "dollars", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawTransaction()
			raw.Currency = tt.currency
			group := ruGroup()
			group.Currency = tt.groupCurrency

			tx, err := v.Validate(context.Background(), raw, group, testRef)
			if tt.wantErr {
				var verr *common.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "currency", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tx.Currency)
		})
	}
}

func TestValidateCustomCurrencySet(t *testing.T) {
	v := New(testProvider(), Limits{Currencies: []string{"USD", "GBP"}}, slog.Default())

	raw := rawTransaction()
	raw.Currency = "GBP"

	tx, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "GBP", tx.Currency)

	raw.Currency = "RUB"
	_, err = v.Validate(context.Background(), raw, ruGroup(), testRef)
	require.Error(t, err)
}

func TestValidateInfersDateFromUnknownPhrase(t *testing.T) {
	v := newTestValidator(t)

	raw := rawTransaction()
	raw.Date = "в прошлый вторник"

	tx, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	require.NoError(t, err)
	assert.True(t, tx.DateInferred)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, "Март", tx.MonthLabel)
}

func TestValidateEmptyDateUsesReference(t *testing.T) {
	v := newTestValidator(t)

	raw := rawTransaction()
	raw.Date = ""

	tx, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	require.NoError(t, err)
	assert.False(t, tx.DateInferred, "empty date is the classifier's way of saying today")
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), tx.Date)
}

func TestValidateEnglishGroup(t *testing.T) {
	v := newTestValidator(t)

	group := ruGroup()
	group.Language = "en"

	raw := rawTransaction()
	raw.Date = "yesterday"

	tx, err := v.Validate(context.Background(), raw, group, testRef)
	require.NoError(t, err)
	assert.Equal(t, "March", tx.MonthLabel)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), tx.Date)
}

func TestValidateUnknownGroupLanguage(t *testing.T) {
	v := newTestValidator(t)

	group := ruGroup()
	group.Language = "de"

	_, err := v.Validate(context.Background(), rawTransaction(), group, testRef)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestValidateCapsComment(t *testing.T) {
	v := newTestValidator(t)

	raw := rawTransaction()
	raw.Comment = strings.Repeat("ы", 300)

	tx, err := v.Validate(context.Background(), raw, ruGroup(), testRef)
	require.NoError(t, err)
	assert.Equal(t, 256, utf8.RuneCountInString(tx.Comment))
}

func TestValidatePropagatesProviderFailure(t *testing.T) {
	provider := &stubProvider{err: common.ErrConfigSheetMissing}
	v := New(provider, Limits{}, slog.Default())

	_, err := v.Validate(context.Background(), rawTransaction(), ruGroup(), testRef)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfigSheetMissing)

	var verr *common.ValidationError
	assert.False(t, errors.As(err, &verr), "infrastructure failures are not validation failures")
}

func TestValidateNilClassification(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Validate(context.Background(), nil, ruGroup(), testRef)
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "classification", verr.Field)
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/sheets"
)

const (
	incomeSection  = "Доходы факт"
	expenseSection = "Расходы факт"
)

func testSections() map[model.TransactionType]string {
	return map[model.TransactionType]string{
		model.TypeIncome:  incomeSection,
		model.TypeExpense: expenseSection,
	}
}

func testGroup() *model.Group {
	return &model.Group{ID: "group-1", SpreadsheetID: "sheet-1"}
}

func scriptedSource(income, expense []string) *sheets.MockTransport {
	mock := sheets.NewMockTransport()
	mock.ReadCategoriesFunc = func(_ context.Context, _, section string) ([]string, error) {
		if section == incomeSection {
			return income, nil
		}
		return expense, nil
	}
	return mock
}

func TestCategoriesForPopulatesOnFirstCall(t *testing.T) {
	mock := scriptedSource([]string{"Зарплата", "Фриланс"}, []string{"Продукты", "Транспорт"})
	reg := New(mock, testSections(), slog.Default())

	specs, err := reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)

	want := []model.CategorySpec{
		{Type: model.TypeIncome, Name: "Зарплата"},
		{Type: model.TypeIncome, Name: "Фриланс"},
		{Type: model.TypeExpense, Name: "Продукты"},
		{Type: model.TypeExpense, Name: "Транспорт"},
	}
	assert.Equal(t, want, specs)
	assert.Len(t, mock.ReadCalls(), 2)

	// Second call is served from cache.
	_, err = reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)
	assert.Len(t, mock.ReadCalls(), 2)
}

func TestCategoriesForReadsBothSections(t *testing.T) {
	mock := scriptedSource([]string{"Зарплата"}, []string{"Продукты"})
	reg := New(mock, testSections(), slog.Default())

	_, err := reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)

	calls := mock.ReadCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, incomeSection, calls[0].Section)
	assert.Equal(t, expenseSection, calls[1].Section)
	assert.Equal(t, "sheet-1", calls[0].SpreadsheetID)
}

func TestLookup(t *testing.T) {
	mock := scriptedSource([]string{"Зарплата"}, []string{"Продукты", "Кафе и рестораны"})
	reg := New(mock, testSections(), slog.Default())

	tests := []struct {
		name    string
		txType  model.TransactionType
		query   string
		want    string
		wantHit bool
	}{
		{name: "exact match", txType: model.TypeExpense, query: "Продукты", want: "Продукты", wantHit: true},
		{name: "case folded", txType: model.TypeExpense, query: "продукты", want: "Продукты", wantHit: true},
		{name: "whitespace trimmed", txType: model.TypeExpense, query: "  кафе и рестораны ", want: "Кафе и рестораны", wantHit: true},
		{name: "wrong type", txType: model.TypeIncome, query: "Продукты", wantHit: false},
		{name: "unknown name", txType: model.TypeExpense, query: "Казино", wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok, err := reg.Lookup(context.Background(), testGroup(), tt.txType, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.want, spec.Name)
				assert.Equal(t, tt.txType, spec.Type)
			}
		})
	}
}

func TestRefreshInvalidatesCache(t *testing.T) {
	var mu sync.Mutex
	expense := []string{"Продукты"}

	mock := sheets.NewMockTransport()
	mock.ReadCategoriesFunc = func(_ context.Context, _, section string) ([]string, error) {
		if section == incomeSection {
			return []string{"Зарплата"}, nil
		}
		mu.Lock()
		defer mu.Unlock()
		return expense, nil
	}
	reg := New(mock, testSections(), slog.Default())

	specs, err := reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)
	require.Len(t, specs, 2)

	// The ledger changes, but the cache still serves the old set.
	mu.Lock()
	expense = []string{"Продукты", "Здоровье"}
	mu.Unlock()

	specs, err = reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)
	assert.Len(t, specs, 2)

	require.NoError(t, reg.Refresh(context.Background(), testGroup()))

	specs, err = reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)
	assert.Len(t, specs, 3)
	assert.Len(t, mock.ReadCalls(), 4)
}

func TestConfigSheetMissingSurfaces(t *testing.T) {
	mock := sheets.NewMockTransport()
	mock.ReadCategoriesFunc = func(_ context.Context, _, section string) ([]string, error) {
		if section == incomeSection {
			return []string{"Зарплата"}, nil
		}
		return nil, fmt.Errorf("no validation rule: %w", common.ErrConfigSheetMissing)
	}
	reg := New(mock, testSections(), slog.Default())

	_, err := reg.CategoriesFor(context.Background(), testGroup())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfigSheetMissing)

	// The failed fetch must not poison the cache.
	_, ok, err := reg.Lookup(context.Background(), testGroup(), model.TypeIncome, "Зарплата")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestConcurrentColdReadsFetchOnce(t *testing.T) {
	mock := scriptedSource([]string{"Зарплата"}, []string{"Продукты"})
	reg := New(mock, testSections(), slog.Default())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.CategoriesFor(context.Background(), testGroup())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, mock.ReadCalls(), 2)
}

func TestGroupsAreCachedIndependently(t *testing.T) {
	mock := scriptedSource([]string{"Зарплата"}, []string{"Продукты"})
	reg := New(mock, testSections(), slog.Default())

	_, err := reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)

	other := &model.Group{ID: "group-2", SpreadsheetID: "sheet-2"}
	_, err = reg.CategoriesFor(context.Background(), other)
	require.NoError(t, err)

	calls := mock.ReadCalls()
	assert.Len(t, calls, 4)
	assert.Equal(t, "sheet-2", calls[2].SpreadsheetID)
}

func TestCategoriesForReturnsCopy(t *testing.T) {
	mock := scriptedSource([]string{"Зарплата"}, []string{"Продукты"})
	reg := New(mock, testSections(), slog.Default())

	specs, err := reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)
	specs[0].Name = "mutated"

	again, err := reg.CategoriesFor(context.Background(), testGroup())
	require.NoError(t, err)
	assert.Equal(t, "Зарплата", again[0].Name)
}

func TestValidatesGroup(t *testing.T) {
	reg := New(sheets.NewMockTransport(), testSections(), slog.Default())

	_, err := reg.CategoriesFor(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = reg.CategoriesFor(context.Background(), &model.Group{ID: "g"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	err = reg.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestMissingSectionConfig(t *testing.T) {
	sections := map[model.TransactionType]string{model.TypeIncome: incomeSection}
	reg := New(sheets.NewMockTransport(), sections, slog.Default())

	_, err := reg.CategoriesFor(context.Background(), testGroup())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.False(t, errors.Is(err, common.ErrConfigSheetMissing))
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneytalks-bot/moneytalks/internal/model"
)

func TestGroupsCmdSubcommands(t *testing.T) {
	cmd := groupsCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"create", "join", "leave", "invite", "show", "set-language", "set-currency"} {
		assert.True(t, names[want], "groups should have a %q subcommand", want)
	}
}

func TestProcessCmdFlags(t *testing.T) {
	cmd := processCmd()

	for _, name := range []string{"member", "username", "text", "audio", "event-id"} {
		assert.NotNil(t, cmd.Flag(name), "process should have a --%s flag", name)
	}
}

func TestHistoryCmdDefaults(t *testing.T) {
	cmd := historyCmd()

	limit := cmd.Flag("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "10", limit.DefValue)

	var hasUndo bool
	for _, sub := range cmd.Commands() {
		if sub.Name() == "undo" {
			hasUndo = true
		}
	}
	assert.True(t, hasUndo, "history should have an undo subcommand")
}

func TestSplitByType(t *testing.T) {
	specs := []model.CategorySpec{
		{Type: model.TypeIncome, Name: "Зарплата"},
		{Type: model.TypeExpense, Name: "Продукты"},
		{Type: model.TypeExpense, Name: "Транспорт"},
	}

	income, expense := splitByType(specs)
	assert.Equal(t, []string{"Зарплата"}, income)
	assert.Equal(t, []string{"Продукты", "Транспорт"}, expense)
}

func TestRenderGroupShowsDefaults(t *testing.T) {
	group := &model.Group{
		ID:            "g1",
		Title:         "Family budget",
		SpreadsheetID: "sheet-id",
		Members:       []int64{100, 200},
		OwnerID:       100,
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	out := renderGroup(group)
	assert.Contains(t, out, "docs.google.com/spreadsheets/d/sheet-id")
	assert.Contains(t, out, "2 (owner 100)")
	assert.Contains(t, out, "ru")
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, "none issued")
	assert.Contains(t, out, "2025-06-01")
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Income", typeLabel(model.TypeIncome))
	assert.Equal(t, "Expense", typeLabel(model.TypeExpense))
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/config"
	"github.com/moneytalks-bot/moneytalks/internal/engine"
	"github.com/moneytalks-bot/moneytalks/internal/groups"
	"github.com/moneytalks-bot/moneytalks/internal/ledger"
	"github.com/moneytalks-bot/moneytalks/internal/llm"
	"github.com/moneytalks-bot/moneytalks/internal/registry"
	"github.com/moneytalks-bot/moneytalks/internal/service"
	"github.com/moneytalks-bot/moneytalks/internal/sheets"
	"github.com/moneytalks-bot/moneytalks/internal/storage"
	"github.com/moneytalks-bot/moneytalks/internal/validate"
)

func initGroupStore() (*groups.Store, error) {
	paths := config.LoadDataPaths()

	store, err := groups.NewStore(paths.GroupsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open group store: %w", err)
	}

	return store, nil
}

func initJournal(ctx context.Context) (*storage.Journal, error) {
	paths := config.LoadDataPaths()

	journal, err := storage.NewJournal(paths.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open commit journal: %w", err)
	}

	if err := journal.Migrate(ctx); err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to migrate commit journal: %w", err)
	}

	return journal, nil
}

func initSheetsClient(ctx context.Context) (*sheets.Client, *sheets.Config, error) {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := sheets.NewClient(ctx, *cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return client, cfg, nil
}

func retryOptions(cfg *sheets.Config) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  cfg.RetryAttempts,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// app bundles the wired pipeline and the stores the commands close after use.
type app struct {
	pipeline *engine.Pipeline
	store    *groups.Store
	journal  *storage.Journal
	registry *registry.Registry
	client   *sheets.Client
	cfg      *sheets.Config
}

func initPipeline(ctx context.Context) (*app, error) {
	store, err := initGroupStore()
	if err != nil {
		return nil, err
	}

	journal, err := initJournal(ctx)
	if err != nil {
		return nil, err
	}

	client, sheetsCfg, err := initSheetsClient(ctx)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	transcriber, err := llm.NewTranscriber(ctx, llmCfg, slog.Default())
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	classifier, err := llm.NewClassifier(ctx, llmCfg, slog.Default())
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	reg := registry.New(client, sheetsCfg.Sections(), slog.Default())
	validator := validate.New(reg, validate.Limits{}, slog.Default())
	writer := ledger.NewWriter(client, journal, sheetsCfg.Sections(), retryOptions(sheetsCfg), slog.Default())
	pipeline := engine.NewWithConfig(store, reg, validator, transcriber, classifier, writer, config.LoadEngineConfig(), slog.Default())

	return &app{
		pipeline: pipeline,
		store:    store,
		journal:  journal,
		registry: reg,
		client:   client,
		cfg:      sheetsCfg,
	}, nil
}

func (a *app) Close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

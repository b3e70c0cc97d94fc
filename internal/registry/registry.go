// Package registry caches the category sets each group maintains in its
// ledger. Categories are discovered from the spreadsheet once per group
// and served from memory until an explicit refresh.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// cacheEntry holds one group's discovered category set.
type cacheEntry struct {
	fetchedAt time.Time
	specs     []model.CategorySpec
}

// Registry implements service.CategoryProvider on top of a
// service.CategorySource (the sheets transport in production).
type Registry struct {
	source    service.CategorySource
	logger    *slog.Logger
	sections  map[model.TransactionType]string
	cache     map[string]cacheEntry
	refreshMu map[string]*sync.Mutex
	mu        sync.RWMutex
}

// New creates a registry reading categories from source. sections maps
// each transaction type to the ledger sheet holding its entries.
func New(source service.CategorySource, sections map[model.TransactionType]string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source:    source,
		sections:  sections,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
		refreshMu: make(map[string]*sync.Mutex),
	}
}

// CategoriesFor returns the group's registered categories, fetching them
// from the ledger on first use.
func (r *Registry) CategoriesFor(ctx context.Context, group *model.Group) ([]model.CategorySpec, error) {
	if err := validateGroup(group); err != nil {
		return nil, err
	}

	if specs, ok := r.cached(group.ID); ok {
		return specs, nil
	}

	mu := r.refreshMutex(group.ID)
	mu.Lock()
	defer mu.Unlock()

	// Another caller may have populated the cache while we waited.
	if specs, ok := r.cached(group.ID); ok {
		return specs, nil
	}

	if err := r.fetch(ctx, group); err != nil {
		return nil, err
	}

	specs, _ := r.cached(group.ID)
	return specs, nil
}

// Lookup finds the canonical spec for a category name within the type's
// set. Matching ignores case and surrounding whitespace; the returned
// spec carries the spelling registered in the ledger.
func (r *Registry) Lookup(ctx context.Context, group *model.Group, txType model.TransactionType, name string) (model.CategorySpec, bool, error) {
	specs, err := r.CategoriesFor(ctx, group)
	if err != nil {
		return model.CategorySpec{}, false, err
	}

	name = strings.TrimSpace(name)
	for _, spec := range specs {
		if spec.Type == txType && strings.EqualFold(spec.Name, name) {
			return spec, true, nil
		}
	}
	return model.CategorySpec{}, false, nil
}

// Refresh re-reads the group's categories from the ledger, replacing the
// cached set. Concurrent refreshes of the same group serialize; other
// groups are unaffected.
func (r *Registry) Refresh(ctx context.Context, group *model.Group) error {
	if err := validateGroup(group); err != nil {
		return err
	}

	mu := r.refreshMutex(group.ID)
	mu.Lock()
	defer mu.Unlock()

	return r.fetch(ctx, group)
}

// fetch reads both sections from the ledger and swaps the cache entry.
// Callers must hold the group's refresh mutex.
func (r *Registry) fetch(ctx context.Context, group *model.Group) error {
	var specs []model.CategorySpec
	for _, txType := range []model.TransactionType{model.TypeIncome, model.TypeExpense} {
		section := r.sections[txType]
		if section == "" {
			return fmt.Errorf("%w: no ledger section configured for %s", common.ErrInvalidConfig, txType)
		}

		names, err := r.source.ReadCategories(ctx, group.SpreadsheetID, section)
		if err != nil {
			return fmt.Errorf("failed to read %s categories: %w", txType, err)
		}

		for _, name := range names {
			specs = append(specs, model.CategorySpec{Type: txType, Name: name})
		}
	}

	r.mu.Lock()
	r.cache[group.ID] = cacheEntry{specs: specs, fetchedAt: time.Now()}
	r.mu.Unlock()

	r.logger.Debug("categories refreshed",
		"group_id", group.ID,
		"count", len(specs))

	return nil
}

// cached returns a copy of the group's cache entry, if present.
func (r *Registry) cached(groupID string) ([]model.CategorySpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[groupID]
	if !ok {
		return nil, false
	}

	specs := make([]model.CategorySpec, len(entry.specs))
	copy(specs, entry.specs)
	return specs, true
}

// refreshMutex returns the mutex serializing refreshes of one group.
func (r *Registry) refreshMutex(groupID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	mu, ok := r.refreshMu[groupID]
	if !ok {
		mu = &sync.Mutex{}
		r.refreshMu[groupID] = mu
	}
	return mu
}

func validateGroup(group *model.Group) error {
	if group == nil {
		return fmt.Errorf("%w: nil group", common.ErrInvalidConfig)
	}
	if group.SpreadsheetID == "" {
		return fmt.Errorf("%w: group %s has no spreadsheet", common.ErrInvalidConfig, group.ID)
	}
	return nil
}

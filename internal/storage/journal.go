// Package storage provides the local persistence layer: a SQLite journal
// of completed ledger appends keyed by idempotency key.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// Journal records every successful ledger append. It is consulted before
// each write so replayed events answer from the local record instead of
// producing a second spreadsheet row, and it feeds the history command.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// NewJournal opens (or creates) the journal database at dbPath.
func NewJournal(dbPath string) (*Journal, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Journal{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Lookup returns the receipt recorded for key, or nil when the key has
// never been committed.
func (j *Journal) Lookup(ctx context.Context, key string) (*model.CommitReceipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}

	var receipt model.CommitReceipt
	err := j.db.QueryRowContext(ctx,
		`SELECT row_marker, section, committed_at FROM ledger_commits WHERE idempotency_key = ?`,
		key,
	).Scan(&receipt.RowMarker, &receipt.Section, &receipt.CommittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up commit %s: %w", key, err)
	}

	receipt.CommittedAt = receipt.CommittedAt.UTC()
	return &receipt, nil
}

// Record stores the receipt for a completed append. Recording a key twice
// returns ErrDuplicateEntry; the original record is never overwritten.
func (j *Journal) Record(ctx context.Context, key, groupID string, tx model.ValidatedTransaction, receipt model.CommitReceipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	if err := validateString(groupID, "groupID"); err != nil {
		return err
	}

	result, err := j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_commits (
			idempotency_key, group_id, section, category, amount,
			currency, tx_date, month_label, comment, row_marker, committed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, groupID, receipt.Section, tx.Category, tx.Amount,
		tx.Currency, tx.Date.UTC(), tx.MonthLabel, tx.Comment,
		receipt.RowMarker, receipt.CommittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record commit %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check commit insert: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("commit %s: %w", key, common.ErrDuplicateEntry)
	}

	return nil
}

// RecentCommits returns the group's committed rows, newest first.
func (j *Journal) RecentCommits(ctx context.Context, groupID string, limit int) ([]service.JournalEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(groupID, "groupID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT idempotency_key, group_id, section, category, amount,
		       currency, tx_date, month_label, comment, row_marker, committed_at
		FROM ledger_commits
		WHERE group_id = ?
		ORDER BY committed_at DESC, idempotency_key DESC
		LIMIT ?`,
		groupID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent commits: %w", err)
	}
	defer rows.Close()

	var entries []service.JournalEntry
	for rows.Next() {
		var e service.JournalEntry
		if err := rows.Scan(
			&e.Key, &e.GroupID, &e.Section, &e.Category, &e.Amount,
			&e.Currency, &e.TxDate, &e.MonthLabel, &e.Comment, &e.RowMarker, &e.CommittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan commit row: %w", err)
		}
		e.TxDate = e.TxDate.UTC()
		e.CommittedAt = e.CommittedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commit rows: %w", err)
	}

	return entries, nil
}

// DeleteCommit removes the record for key, freeing it for a future append.
// Used by the undo flow after the ledger row itself is gone.
func (j *Journal) DeleteCommit(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	result, err := j.db.ExecContext(ctx, `DELETE FROM ledger_commits WHERE idempotency_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete commit %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check commit delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("commit %s: %w", key, common.ErrNotFound)
	}

	return nil
}

// FindByMarker returns the journal entry whose row marker matches.
func (j *Journal) FindByMarker(ctx context.Context, marker string) (*service.JournalEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(marker, "marker"); err != nil {
		return nil, err
	}

	var e service.JournalEntry
	err := j.db.QueryRowContext(ctx, `
		SELECT idempotency_key, group_id, section, category, amount,
		       currency, tx_date, month_label, comment, row_marker, committed_at
		FROM ledger_commits
		WHERE row_marker = ?`,
		marker,
	).Scan(
		&e.Key, &e.GroupID, &e.Section, &e.Category, &e.Amount,
		&e.Currency, &e.TxDate, &e.MonthLabel, &e.Comment, &e.RowMarker, &e.CommittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("marker %s: %w", marker, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find commit by marker %s: %w", marker, err)
	}

	e.TxDate = e.TxDate.UTC()
	e.CommittedAt = e.CommittedAt.UTC()
	return &e, nil
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

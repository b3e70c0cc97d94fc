// Package ledger commits validated transactions to the external ledger
// exactly once per idempotency key, journaling every write locally.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// lockStripes bounds the key-lock table. Two keys sharing a stripe
// serialize needlessly but never deadlock.
const lockStripes = 64

// Writer implements service.LedgerWriter on top of a transport and a
// commit journal.
type Writer struct {
	transport service.LedgerTransport
	journal   service.Journal
	logger    *slog.Logger
	sections  map[model.TransactionType]string
	retry     service.RetryOptions
	locks     [lockStripes]sync.Mutex
}

// NewWriter creates a writer appending through transport and recording
// commits in journal. sections maps each transaction type to its ledger
// sheet.
func NewWriter(transport service.LedgerTransport, journal service.Journal, sections map[model.TransactionType]string, retry service.RetryOptions, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		transport: transport,
		journal:   journal,
		sections:  sections,
		retry:     retry,
		logger:    logger,
	}
}

// Append commits tx to the group's ledger. The idempotency key doubles as
// the row marker written to the sheet, so the external ledger carries the
// key alongside the data. Replaying a key that already committed returns
// the original receipt with Duplicate set and performs no write.
func (w *Writer) Append(ctx context.Context, group *model.Group, tx model.ValidatedTransaction, idempotencyKey, username string) (model.CommitReceipt, error) {
	var zero model.CommitReceipt

	if group == nil || group.SpreadsheetID == "" {
		return zero, fmt.Errorf("%w: group has no spreadsheet", common.ErrInvalidConfig)
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return zero, fmt.Errorf("%w: empty idempotency key", common.ErrInvalidConfig)
	}
	section, ok := w.sections[tx.Type]
	if !ok || section == "" {
		return zero, fmt.Errorf("%w: no ledger section for %s", common.ErrInvalidConfig, tx.Type)
	}

	lock := w.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := w.journal.Lookup(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("failed to consult journal: %w", err)
	}
	if existing != nil {
		receipt := *existing
		receipt.Duplicate = true
		w.logger.Info("duplicate commit suppressed",
			"group_id", group.ID,
			"key", key,
			"row", receipt.Row)
		return receipt, nil
	}

	row := service.LedgerRow{
		Date:       tx.Date,
		MonthLabel: tx.MonthLabel,
		Category:   tx.Category,
		Comment:    tx.Comment,
		Currency:   tx.Currency,
		Marker:     key,
		Username:   username,
		Amount:     tx.Amount,
	}

	var rowIndex int64
	appendOp := func() error {
		idx, err := w.transport.AppendRow(ctx, group.SpreadsheetID, section, row)
		if err != nil {
			return err
		}
		rowIndex = idx
		return nil
	}
	if err := common.WithRetry(ctx, appendOp, w.retry); err != nil {
		return zero, fmt.Errorf("failed to append ledger row: %w", err)
	}

	receipt := model.CommitReceipt{
		CommittedAt: time.Now().UTC(),
		RowMarker:   key,
		Section:     section,
		Row:         rowIndex,
	}

	if err := w.journal.Record(ctx, key, group.ID, tx, receipt); err != nil {
		// Another process sharing the journal may have won the race;
		// the row is theirs and ours is the duplicate.
		if errors.Is(err, common.ErrDuplicateEntry) {
			if winner, lerr := w.journal.Lookup(ctx, key); lerr == nil && winner != nil {
				duplicate := *winner
				duplicate.Duplicate = true
				return duplicate, nil
			}
		}
		return zero, fmt.Errorf("failed to record commit: %w", err)
	}

	w.logger.Info("transaction committed",
		"group_id", group.ID,
		"section", section,
		"row", rowIndex,
		"category", tx.Category,
		"amount", tx.Amount,
		"currency", tx.Currency,
		"key", key)

	return receipt, nil
}

// lockFor maps a key onto its mutex stripe.
func (w *Writer) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &w.locks[h.Sum32()%lockStripes]
}

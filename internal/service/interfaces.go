// Package service defines the interfaces between pipeline components.
package service

import (
	"context"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/model"
)

// GroupStore is the membership directory: groups, members, invites.
// A member id belongs to at most one group at a time; every method that
// would break that invariant fails instead of silently migrating.
type GroupStore interface {
	CreateGroup(ctx context.Context, title, spreadsheetID string, ownerID int64) (*model.Group, error)
	Group(ctx context.Context, groupID string) (*model.Group, error)
	GroupForMember(ctx context.Context, memberID int64) (*model.Group, error)
	AddMember(ctx context.Context, groupID string, memberID int64) error
	RemoveMember(ctx context.Context, groupID string, memberID int64) error
	IssueInvite(ctx context.Context, groupID string) (string, error)
	JoinByInvite(ctx context.Context, code string, memberID int64) (*model.Group, error)
	SetLanguage(ctx context.Context, groupID, language string) error
	SetCurrency(ctx context.Context, groupID, currency string) error
}

// CategorySource fetches the raw category names configured in a ledger
// section. Implemented by the sheets transport.
type CategorySource interface {
	ReadCategories(ctx context.Context, spreadsheetID, section string) ([]string, error)
}

// CategoryProvider serves the registered category sets for a group,
// cached between explicit refreshes.
type CategoryProvider interface {
	CategoriesFor(ctx context.Context, group *model.Group) ([]model.CategorySpec, error)
	Lookup(ctx context.Context, group *model.Group, txType model.TransactionType, name string) (model.CategorySpec, bool, error)
	Refresh(ctx context.Context, group *model.Group) error
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ClassifyRequest carries the utterance plus everything the model needs to
// ground its answer: the reference instant for relative dates, the group's
// registered categories, and the month names of the group's language.
type ClassifyRequest struct {
	Reference         time.Time
	Text              string
	Language          string
	DefaultCurrency   string
	IncomeCategories  []string
	ExpenseCategories []string
	MonthNames        []string
}

// Classifier extracts a structured transaction from free-form text.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*model.RawClassification, error)
}

// Validator turns an untrusted classification into a record fit for the
// ledger, or explains exactly which field disqualified it.
type Validator interface {
	Validate(ctx context.Context, raw *model.RawClassification, group *model.Group, ref time.Time) (model.ValidatedTransaction, error)
}

// LedgerRow is one spreadsheet row ready for append.
type LedgerRow struct {
	Date       time.Time
	MonthLabel string
	Category   string
	Comment    string
	Currency   string
	Marker     string
	Username   string
	Amount     float64
}

// LedgerTransport appends and removes rows in the external ledger.
type LedgerTransport interface {
	CategorySource
	AppendRow(ctx context.Context, spreadsheetID, section string, row LedgerRow) (int64, error)
	DeleteRowByMarker(ctx context.Context, spreadsheetID, section, marker string) error
}

// LedgerWriter commits a validated transaction at most once per
// idempotency key. Replaying a key returns the original receipt with
// Duplicate set instead of writing a second row. username labels the row
// with its author in the ledger.
type LedgerWriter interface {
	Append(ctx context.Context, group *model.Group, tx model.ValidatedTransaction, idempotencyKey, username string) (model.CommitReceipt, error)
}

// JournalEntry is one committed row as recorded in the local journal.
type JournalEntry struct {
	CommittedAt time.Time
	TxDate      time.Time
	Key         string
	GroupID     string
	Section     string
	Category    string
	Currency    string
	MonthLabel  string
	Comment     string
	RowMarker   string
	Amount      float64
}

// Journal is the durable record of completed appends, keyed by
// idempotency key. It is consulted before every write and appended to
// after every successful one.
type Journal interface {
	Lookup(ctx context.Context, key string) (*model.CommitReceipt, error)
	Record(ctx context.Context, key, groupID string, tx model.ValidatedTransaction, receipt model.CommitReceipt) error
	RecentCommits(ctx context.Context, groupID string, limit int) ([]JournalEntry, error)
	DeleteCommit(ctx context.Context, key string) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

package model

import "time"

// Event is one inbound unit of work from the chat transport: either an audio
// recording or already-textual content, tagged with the identity of the
// member it came from. ReceivedAt is the event's true arrival time and is
// used as the reference instant for date resolution, so retries of the same
// event resolve to the same calendar date.
type Event struct {
	ReceivedAt time.Time
	ID         string
	Username   string
	Text       string
	AudioName  string
	Audio      []byte
	MemberID   int64
}

// IsAudio reports whether the event carries audio that needs transcription.
func (e *Event) IsAudio() bool {
	return len(e.Audio) > 0
}

// Stage identifies how far through the pipeline an event travelled.
type Stage string

// Pipeline stages, in processing order. No stage is re-entered.
const (
	StageReceived      Stage = "received"
	StageGroupResolved Stage = "group_resolved"
	StageTranscribed   Stage = "transcribed"
	StageClassified    Stage = "classified"
	StageValidated     Stage = "validated"
	StageCommitted     Stage = "committed"
)

// RejectionKind classifies why an event was rejected, mirroring the error
// taxonomy the transport layer renders to users.
type RejectionKind string

const (
	RejectNotInGroup    RejectionKind = "not_in_group"
	RejectValidation    RejectionKind = "validation"
	RejectTransient     RejectionKind = "transient"
	RejectPermission    RejectionKind = "permission"
	RejectConfiguration RejectionKind = "configuration"
)

// Rejection explains a terminal pipeline failure: which stage gave up, what
// kind of problem it was, and where applicable the offending field and value.
type Rejection struct {
	Kind   RejectionKind
	Stage  Stage
	Field  string
	Value  string
	Reason string
}

// CommitReceipt records a successful ledger append. Duplicate is set when the
// idempotency key had already been committed and no new row was written.
type CommitReceipt struct {
	CommittedAt time.Time
	RowMarker   string
	Section     string
	Row         int64
	Duplicate   bool
}

// Outcome is the structured result handed back to the transport layer:
// either a committed record with its receipt, or a rejection with a
// human-renderable reason. Exactly one of Record/Reject is set.
type Outcome struct {
	Record  *ValidatedTransaction
	Receipt *CommitReceipt
	Reject  *Rejection
	EventID string
	Stage   Stage
}

// Committed reports whether the event reached the ledger.
func (o *Outcome) Committed() bool {
	return o.Reject == nil && o.Receipt != nil
}

// Package engine orchestrates the event pipeline: group resolution,
// transcription, classification, validation, and ledger commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/dates"
	"github.com/moneytalks-bot/moneytalks/internal/model"
	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// defaultLanguage applies when a group never chose one.
const defaultLanguage = "ru"

// Config holds the orchestration knobs: per-stage timeouts and the retry
// policy applied to external calls.
type Config struct {
	TranscribeTimeout time.Duration
	ClassifyTimeout   time.Duration
	AppendTimeout     time.Duration
	Retry             service.RetryOptions
}

// DefaultConfig returns stage timeouts sized for hosted model APIs.
func DefaultConfig() Config {
	return Config{
		TranscribeTimeout: 60 * time.Second,
		ClassifyTimeout:   30 * time.Second,
		AppendTimeout:     30 * time.Second,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Pipeline runs inbound events end to end. Instances are safe for
// concurrent ProcessEvent calls.
type Pipeline struct {
	groups      service.GroupStore
	registry    service.CategoryProvider
	validator   service.Validator
	transcriber service.Transcriber
	classifier  service.Classifier
	writer      service.LedgerWriter
	logger      *slog.Logger
	resolvers   map[string]*dates.Resolver
	cfg         Config
	mu          sync.Mutex
}

// New creates a pipeline with the default configuration.
func New(groups service.GroupStore, registry service.CategoryProvider, validator service.Validator, transcriber service.Transcriber, classifier service.Classifier, writer service.LedgerWriter, logger *slog.Logger) *Pipeline {
	return NewWithConfig(groups, registry, validator, transcriber, classifier, writer, DefaultConfig(), logger)
}

// NewWithConfig creates a pipeline with custom timeouts and retry policy.
func NewWithConfig(groups service.GroupStore, registry service.CategoryProvider, validator service.Validator, transcriber service.Transcriber, classifier service.Classifier, writer service.LedgerWriter, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = def.TranscribeTimeout
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = def.ClassifyTimeout
	}
	if cfg.AppendTimeout <= 0 {
		cfg.AppendTimeout = def.AppendTimeout
	}

	return &Pipeline{
		groups:      groups,
		registry:    registry,
		validator:   validator,
		transcriber: transcriber,
		classifier:  classifier,
		writer:      writer,
		cfg:         cfg,
		resolvers:   make(map[string]*dates.Resolver),
		logger:      logger,
	}
}

// ProcessEvent runs one event through the pipeline and returns its terminal
// outcome. Every failure is folded into a rejection the transport layer can
// render; nothing propagates as an unstructured error. In-flight work is
// never abandoned mid-stage: each stage completes or fails, and the outcome
// reports where processing ended.
func (p *Pipeline) ProcessEvent(ctx context.Context, event model.Event) model.Outcome {
	start := time.Now()

	outcome := p.run(ctx, event)

	logger := p.logger.With(
		"event_id", event.ID,
		"member_id", event.MemberID,
		"stage", string(outcome.Stage),
		"duration", time.Since(start))
	if outcome.Committed() {
		logger.Info("event committed",
			"marker", outcome.Receipt.RowMarker,
			"section", outcome.Receipt.Section,
			"duplicate", outcome.Receipt.Duplicate)
	} else {
		logger.Info("event rejected",
			"kind", string(outcome.Reject.Kind),
			"reason", outcome.Reject.Reason)
	}

	return outcome
}

func (p *Pipeline) run(ctx context.Context, event model.Event) model.Outcome {
	if !event.IsAudio() && strings.TrimSpace(event.Text) == "" {
		return p.reject(event, model.StageReceived,
			common.NewValidationError("text", "", "event carries no audio or text"))
	}

	// The arrival instant anchors relative dates, so a retried event
	// resolves to the same calendar date as the first attempt.
	ref := event.ReceivedAt
	if ref.IsZero() {
		ref = time.Now().UTC()
	}

	group, err := p.groups.GroupForMember(ctx, event.MemberID)
	if err != nil {
		return p.reject(event, model.StageGroupResolved, err)
	}

	text := strings.TrimSpace(event.Text)
	if event.IsAudio() {
		text, err = p.transcribe(ctx, event)
		if err != nil {
			return p.reject(event, model.StageTranscribed, err)
		}
	}

	raw, err := p.classify(ctx, group, text, ref)
	if err != nil {
		return p.reject(event, model.StageClassified, err)
	}

	tx, err := p.validator.Validate(ctx, raw, group, ref)
	if err != nil {
		return p.reject(event, model.StageValidated, err)
	}

	receipt, err := p.append(ctx, group, tx, event)
	if err != nil {
		return p.reject(event, model.StageCommitted, err)
	}

	return model.Outcome{
		EventID: event.ID,
		Stage:   model.StageCommitted,
		Record:  &tx,
		Receipt: &receipt,
	}
}

// transcribe converts the event's audio to text, retrying transient
// service failures.
func (p *Pipeline) transcribe(ctx context.Context, event model.Event) (string, error) {
	var text string
	op := func() error {
		opCtx, cancel := context.WithTimeout(ctx, p.cfg.TranscribeTimeout)
		defer cancel()

		result, err := p.transcriber.Transcribe(opCtx, event.Audio, event.AudioName)
		if err != nil {
			return err
		}
		text = result
		return nil
	}

	if err := common.WithRetry(ctx, op, p.cfg.Retry); err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	p.logger.Debug("audio transcribed", "event_id", event.ID, "chars", len(text))
	return text, nil
}

// classify asks the model for a structured transaction, grounding the
// prompt in the group's registered categories and localized month names.
func (p *Pipeline) classify(ctx context.Context, group *model.Group, text string, ref time.Time) (*model.RawClassification, error) {
	specs, err := p.registry.CategoriesFor(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to load group categories: %w", err)
	}

	var income, expense []string
	for _, spec := range specs {
		switch spec.Type {
		case model.TypeIncome:
			income = append(income, spec.Name)
		case model.TypeExpense:
			expense = append(expense, spec.Name)
		}
	}

	resolver, err := p.resolverFor(group.Language)
	if err != nil {
		return nil, err
	}

	req := service.ClassifyRequest{
		Reference:         ref,
		Text:              text,
		Language:          resolver.Language(),
		DefaultCurrency:   group.Currency,
		IncomeCategories:  income,
		ExpenseCategories: expense,
		MonthNames:        resolver.MonthNames(),
	}

	var raw *model.RawClassification
	op := func() error {
		opCtx, cancel := context.WithTimeout(ctx, p.cfg.ClassifyTimeout)
		defer cancel()

		result, err := p.classifier.Classify(opCtx, req)
		if err != nil {
			return err
		}
		raw = result
		return nil
	}

	if err := common.WithRetry(ctx, op, p.cfg.Retry); err != nil {
		return nil, fmt.Errorf("failed to classify transcript: %w", err)
	}
	return raw, nil
}

// append commits the validated transaction. The writer carries its own
// retry policy, so only the timeout is applied here.
func (p *Pipeline) append(ctx context.Context, group *model.Group, tx model.ValidatedTransaction, event model.Event) (model.CommitReceipt, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.AppendTimeout)
	defer cancel()

	return p.writer.Append(opCtx, group, tx, event.ID, event.Username)
}

func (p *Pipeline) resolverFor(lang string) (*dates.Resolver, error) {
	if lang == "" {
		lang = defaultLanguage
	}
	lang = strings.ToLower(lang)

	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.resolvers[lang]; ok {
		return r, nil
	}
	r, err := dates.NewResolver(lang)
	if err != nil {
		return nil, err
	}
	p.resolvers[lang] = r
	return r, nil
}

// reject folds err into the rejection taxonomy. The most specific sentinel
// checks run first; unknown errors default to transient unless they were
// explicitly marked non-retryable, which signals a setup problem no retry
// can fix.
func (p *Pipeline) reject(event model.Event, stage model.Stage, err error) model.Outcome {
	rejection := model.Rejection{Stage: stage, Reason: err.Error()}

	var validationErr *common.ValidationError
	var retryableErr *common.RetryableError
	switch {
	case errors.Is(err, common.ErrNotInGroup):
		rejection.Kind = model.RejectNotInGroup
	case errors.As(err, &validationErr):
		rejection.Kind = model.RejectValidation
		rejection.Field = validationErr.Field
		rejection.Value = validationErr.Value
		rejection.Reason = validationErr.Reason
	case errors.Is(err, common.ErrUnsupportedAudio):
		rejection.Kind = model.RejectValidation
		rejection.Field = "audio"
	case errors.Is(err, common.ErrPermissionDenied):
		rejection.Kind = model.RejectPermission
	case errors.Is(err, common.ErrConfigSheetMissing),
		errors.Is(err, common.ErrInvalidConfig),
		errors.Is(err, common.ErrMissingConfig),
		errors.Is(err, common.ErrNotFound):
		rejection.Kind = model.RejectConfiguration
	case errors.As(err, &retryableErr) && !retryableErr.Retryable:
		rejection.Kind = model.RejectConfiguration
	default:
		rejection.Kind = model.RejectTransient
	}

	return model.Outcome{
		EventID: event.ID,
		Stage:   stage,
		Reject:  &rejection,
	}
}

package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/llm"
	applog "spendwise/internal/log"
)

// ErrEmptyMessage is returned when the user message is blank.
var ErrEmptyMessage = errors.New("message is required")

// Service answers one chat turn grounded in the owner's ledger.
type Service struct {
	agg    *Aggregator
	relay  llm.Relay
	clock  func() time.Time
	logger *applog.Logger
	sl     *applog.StructuredLogger
}

func NewService(agg *Aggregator, relay llm.Relay, logger *applog.Logger) *Service {
	logger = logger.WithComponent(applog.ComponentAssistant)
	return &Service{
		agg:    agg,
		relay:  relay,
		clock:  time.Now,
		logger: logger,
		sl:     applog.NewStructuredLogger(logger),
	}
}

// Ask builds the owner's context for the current month, composes the system
// prompt and relays message with the client supplied history.
func (s *Service) Ask(ctx context.Context, ownerID int64, message string, history []llm.Turn) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	now := s.clock()
	period := core.PeriodOf(now)
	fields := applog.NewFields().WithOwner(ownerID).WithPeriod(period.Year, period.Month)

	snapshot, err := s.agg.BuildContext(ctx, ownerID, now)
	if err != nil {
		s.sl.LogError(ctx, "Failed to build expense context", err, applog.ComponentAssistant, applog.OpAggregate,
			fields.WithErrorType(applog.ErrorTypeDatabase))
		return "", err
	}

	prompt := ComposeSystemPrompt(snapshot)

	start := time.Now()
	reply, err := s.relay.Converse(ctx, prompt, history, message)
	if err != nil {
		s.sl.LogError(ctx, "Assistant request failed", err, applog.ComponentAssistant, applog.OpConverse,
			fields.WithErrorType(applog.ErrorTypeUpstream))
		return "", err
	}

	s.logger.InfoContext(ctx, "Assistant reply generated",
		append(fields.WithOperation(applog.OpConverse).ToSlice(),
			"history_turns", len(history),
			applog.FieldDuration, time.Since(start).Milliseconds())...)
	return reply, nil
}

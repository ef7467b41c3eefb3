package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/assistant"
	"spendwise/internal/cache"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

// ContextBuilder rebuilds an owner's expense context; *assistant.Aggregator satisfies it.
type ContextBuilder interface {
	BuildContext(ctx context.Context, ownerID int64, ref time.Time) (assistant.ExpenseContext, error)
}

// Alert reports a budget at or past 80% of its limit.
type Alert struct {
	OwnerID  int64
	Period   core.Period
	Category core.Category
	Amount   decimal.Decimal
	Spent    decimal.Decimal
	Status   assistant.Status
}

// Alert state is bounded; an evicted budget may be reported again.
const (
	alertStateSize = 10000
	alertStateTTL  = 62 * 24 * time.Hour
)

type alertKey struct {
	owner    int64
	period   core.Period
	category core.Category
}

// BudgetWatcher consumes ledger events and logs budgets that are near or
// over their limit for the month an event touched.
type BudgetWatcher struct {
	contexts ContextBuilder
	logger   *applog.Logger

	last *cache.LRU[alertKey, assistant.Status]

	processed atomic.Int64
	alerted   atomic.Int64
}

func NewBudgetWatcher(contexts ContextBuilder, logger *applog.Logger) *BudgetWatcher {
	return &BudgetWatcher{
		contexts: contexts,
		logger:   logger.WithComponent(applog.ComponentWorker),
		last:     cache.NewLRU[alertKey, assistant.Status](alertStateSize, alertStateTTL),
	}
}

// Check returns the alerts for one owner and month.
func (w *BudgetWatcher) Check(ctx context.Context, ownerID int64, period core.Period) ([]Alert, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	ref := time.Date(period.Year, time.Month(period.Month), 1, 12, 0, 0, 0, time.UTC)
	snapshot, err := w.contexts.BuildContext(ctx, ownerID, ref)
	if err != nil {
		return nil, fmt.Errorf("build context for %s: %w", period, err)
	}

	var alerts []Alert
	for _, b := range snapshot.Budgets {
		status := b.Status()
		if status == assistant.OnTrack {
			continue
		}
		alerts = append(alerts, Alert{
			OwnerID:  ownerID,
			Period:   period,
			Category: b.Category,
			Amount:   b.Amount,
			Spent:    b.Spent,
			Status:   status,
		})
	}
	return alerts, nil
}

// HandleLedgerEvent is the consumer callback. Each alert is logged once per
// status change so repeated writes in the same month stay quiet.
func (w *BudgetWatcher) HandleLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	w.processed.Add(1)
	w.logger.DebugContext(ctx, "Processing ledger event",
		applog.FieldEvent, string(evt.Kind),
		applog.FieldOwnerID, evt.OwnerID,
		applog.FieldYear, evt.Year,
		applog.FieldMonth, evt.Month)

	period := evt.Period()
	alerts, err := w.Check(ctx, evt.OwnerID, period)
	if err != nil {
		return err
	}

	active := make(map[alertKey]bool, len(alerts))
	for _, a := range alerts {
		key := alertKey{owner: a.OwnerID, period: a.Period, category: a.Category}
		active[key] = true
		if !w.changed(key, a.Status) {
			continue
		}
		w.alerted.Add(1)
		w.logger.WarnContext(ctx, "Budget alert",
			applog.FieldOwnerID, a.OwnerID,
			applog.FieldCategory, string(a.Category),
			applog.FieldYear, a.Period.Year,
			applog.FieldMonth, a.Period.Month,
			"limit", core.FormatAmount(a.Amount),
			"spent", core.FormatAmount(a.Spent),
			"status", string(a.Status))
	}
	w.forgetRecovered(evt.OwnerID, period, active)
	return nil
}

func (w *BudgetWatcher) changed(key alertKey, status assistant.Status) bool {
	if prev, ok := w.last.Get(key); ok && prev == status {
		return false
	}
	w.last.Set(key, status)
	return true
}

func (w *BudgetWatcher) forgetRecovered(owner int64, period core.Period, active map[alertKey]bool) {
	w.last.DeleteFunc(func(key alertKey) bool {
		return key.owner == owner && key.period == period && !active[key]
	})
}

// Prune drops alert state older than alertStateTTL.
func (w *BudgetWatcher) Prune() int {
	return w.last.CleanExpired()
}

// Stats returns how many events were handled and how many alerts were raised.
func (w *BudgetWatcher) Stats() (processed, alerted int64) {
	return w.processed.Load(), w.alerted.Load()
}

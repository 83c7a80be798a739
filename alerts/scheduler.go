// Package alerts runs the background sweep that checks active price
// alerts against the latest trade and fires each alert at most once.
package alerts

import (
	"context"
	"sync"
	"time"

	"signal-engine/models"
	"signal-engine/observability"

	"github.com/google/uuid"
)

// AlertStore is the slice of the repository the scheduler needs.
type AlertStore interface {
	GetActiveAlerts(ctx context.Context) ([]models.PriceAlert, error)
	MarkAlertTriggered(ctx context.Context, id uuid.UUID) error
}

// QuoteSource provides the latest trade price per symbol.
type QuoteSource interface {
	GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error)
}

// Scheduler periodically sweeps active alerts. One sweep runs at a time;
// a slow sweep delays the next tick rather than overlapping it.
type Scheduler struct {
	store    AlertStore
	quotes   QuoteSource
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that sweeps at the given interval
func NewScheduler(store AlertStore, quotes QuoteSource, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		store:    store,
		quotes:   quotes,
		interval: interval,
	}
}

// Start launches the sweep loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	observability.Info("alert scheduler started", "interval", s.interval)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	observability.Info("alert scheduler stopped")
}

// Sweep evaluates every active alert once. Each symbol's price is fetched
// a single time per sweep; a failed fetch skips that symbol's alerts and
// leaves them active for the next pass.
func (s *Scheduler) Sweep(ctx context.Context) {
	metrics := observability.GetMetrics()

	alerts, err := s.store.GetActiveAlerts(ctx)
	if err != nil {
		observability.Error("failed to load active alerts", "error", err)
		metrics.RecordAlertCheck("error")
		return
	}
	metrics.SetActiveAlerts(len(alerts))
	if len(alerts) == 0 {
		metrics.RecordAlertCheck("success")
		return
	}

	bySymbol := make(map[string][]models.PriceAlert)
	for _, alert := range alerts {
		bySymbol[alert.Symbol] = append(bySymbol[alert.Symbol], alert)
	}

	for symbol, group := range bySymbol {
		quote, err := s.quotes.GetLatestTrade(ctx, symbol)
		if err != nil {
			observability.WithSymbol(symbol).Warn("skipping alerts, price fetch failed", "error", err)
			continue
		}

		for _, alert := range group {
			if !alert.ShouldTrigger(quote.Last) {
				continue
			}
			if err := s.store.MarkAlertTriggered(ctx, alert.ID); err != nil {
				observability.WithSymbol(symbol).Error("failed to mark alert triggered",
					"alert_id", alert.ID, "error", err)
				continue
			}
			metrics.RecordAlertFired(string(alert.Condition))
			observability.WithSymbol(symbol).Info("price alert fired",
				"alert_id", alert.ID,
				"condition", alert.Condition,
				"threshold", alert.Threshold,
				"price", quote.Last)
		}
	}

	metrics.RecordAlertCheck("success")
}

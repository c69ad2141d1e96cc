package jobs

import (
	"context"
	"log/slog"
	"time"

	"tickethub/internal/models"
)

const DefaultReconcileInterval = 30 * time.Second

// PromotableEvents lists events that have free capacity and a pending waitlist.
type PromotableEvents interface {
	ListPromotable(ctx context.Context) ([]models.Event, error)
}

// Promoter fills free capacity of an event from its waitlist.
type Promoter interface {
	PromoteAvailable(ctx context.Context, eventID int64) ([]models.Promotion, error)
}

// WaitlistReconcileJob periodically promotes waitlisted requesters into
// capacity that was freed without a promotion following it.
type WaitlistReconcileJob struct {
	events   PromotableEvents
	promoter Promoter
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

// NewWaitlistReconcileJob creates a new reconcile job
func NewWaitlistReconcileJob(events PromotableEvents, promoter Promoter, interval time.Duration) *WaitlistReconcileJob {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &WaitlistReconcileJob{
		events:   events,
		promoter: promoter,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the background job
func (j *WaitlistReconcileJob) Start(ctx context.Context) {
	slog.Info("Starting waitlist reconcile job", "check_interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go func() {
		// Run initial check immediately
		j.Reconcile(ctx)

		for {
			select {
			case <-j.ticker.C:
				j.Reconcile(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				slog.Info("Waitlist reconcile job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *WaitlistReconcileJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

// Reconcile runs one pass and returns the number of promotions made.
func (j *WaitlistReconcileJob) Reconcile(ctx context.Context) int {
	events, err := j.events.ListPromotable(ctx)
	if err != nil {
		slog.Error("Failed to list promotable events", "error", err)
		return 0
	}

	if len(events) == 0 {
		slog.Debug("No promotable events found")
		return 0
	}

	slog.Info("Found events with free capacity and waiting requesters", "count", len(events))

	total := 0
	for _, event := range events {
		promotions, err := j.promoter.PromoteAvailable(ctx, event.ID)
		if err != nil {
			// Continue with other events even if one fails
			slog.Error("Failed to promote waitlist",
				"error", err,
				"event_id", event.ID)
			continue
		}
		total += len(promotions)
		slog.Info("Reconciled waitlist",
			"event_id", event.ID,
			"promoted", len(promotions))
	}

	return total
}

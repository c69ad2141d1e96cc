package service

import (
	"context"
	"fmt"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/logger"
	"tickethub/internal/metrics"
	"tickethub/internal/models"
	"tickethub/internal/repository"
)

// WaitlistQueue keeps a FIFO per event. Positions are assigned under the
// event lock as max+1 and never change afterwards.
type WaitlistQueue struct {
	store     repository.Store
	eventsSvc *EventService
	ledger    *CapacityLedger
	events    *notifier
}

func NewWaitlistQueue(store repository.Store, eventsSvc *EventService, ledger *CapacityLedger, events *notifier) *WaitlistQueue {
	return &WaitlistQueue{
		store:     store,
		eventsSvc: eventsSvc,
		ledger:    ledger,
		events:    events,
	}
}

func (q *WaitlistQueue) Enqueue(ctx context.Context, eventID int64, email string) (*models.WaitlistEntry, error) {
	if err := validID("event", eventID); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var entry *models.WaitlistEntry
	err = q.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		var err error
		entry, err = q.enqueue(ctx, r, ev, email)
		return err
	})
	if err != nil {
		return nil, err
	}

	q.joined(ctx, entry)
	return entry, nil
}

// enqueue must run under the event lock.
func (q *WaitlistQueue) enqueue(ctx context.Context, r repository.Repos, ev *models.Event, email string) (*models.WaitlistEntry, error) {
	_, err := r.Waitlist.FindPending(ctx, ev.ID, email)
	if err == nil {
		return nil, apperrors.ErrDuplicateEntry
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check waitlist: %w", err)
	}

	last, err := r.Waitlist.MaxPosition(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read waitlist position: %w", err)
	}

	entry := &models.WaitlistEntry{
		EventID:        ev.ID,
		RequesterEmail: email,
		Position:       last + 1,
	}
	if err := r.Waitlist.Create(ctx, entry); err != nil {
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	return entry, nil
}

func (q *WaitlistQueue) joined(ctx context.Context, entry *models.WaitlistEntry) {
	metrics.WaitlistJoined.Inc()
	logger.WithContext(ctx).Info("Joined waitlist",
		"entry_id", entry.ID,
		"event_id", entry.EventID,
		"position", entry.Position)

	q.events.publish(ctx, models.EventWaitlistJoined, models.WaitlistJoinedEvent{
		EntryID:        entry.ID,
		EventID:        entry.EventID,
		RequesterEmail: entry.RequesterEmail,
		Position:       entry.Position,
		Timestamp:      now(),
	})
}

func (q *WaitlistQueue) ListForEvent(ctx context.Context, caller *models.Caller, eventID int64) ([]models.WaitlistEntry, error) {
	if _, err := q.eventsSvc.Authorize(ctx, caller, eventID); err != nil {
		return nil, err
	}

	entries, err := q.store.Repos().Waitlist.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return nonNil(entries), nil
}

// ListForOrganizer returns the entries of every event of the organizer,
// ordered by position.
func (q *WaitlistQueue) ListForOrganizer(ctx context.Context, caller *models.Caller, organizerID int64) ([]models.WaitlistEntry, error) {
	if err := validID("organizer", organizerID); err != nil {
		return nil, err
	}
	if !caller.OwnsOrganizer(organizerID) {
		return nil, fmt.Errorf("%w: not an organizer of %d", apperrors.ErrForbidden, organizerID)
	}

	if _, err := q.store.Repos().Organizers.GetByID(ctx, organizerID); err != nil {
		return nil, err
	}

	entries, err := q.store.Repos().Waitlist.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return nonNil(entries), nil
}

// PromoteNext converts the head of the waitlist into a booking. It returns
// nil when nobody is waiting and ErrCapacityExceeded when the event is full.
func (q *WaitlistQueue) PromoteNext(ctx context.Context, eventID int64) (*models.Promotion, error) {
	if err := validID("event", eventID); err != nil {
		return nil, err
	}

	var promotion *models.Promotion
	err := q.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		var err error
		promotion, err = q.promoteNext(ctx, r, ev)
		return err
	})
	if err != nil {
		return nil, err
	}

	if promotion != nil {
		metrics.WaitlistPromotions.Inc()
		q.events.promoted(ctx, promotion)
	}
	return promotion, nil
}

// PromoteAvailable fills every free place from the waitlist in one unit of work.
func (q *WaitlistQueue) PromoteAvailable(ctx context.Context, eventID int64) ([]models.Promotion, error) {
	if err := validID("event", eventID); err != nil {
		return nil, err
	}

	var promotions []models.Promotion
	err := q.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		for ev.HasCapacity() {
			p, err := q.promoteNext(ctx, r, ev)
			if err != nil {
				return err
			}
			if p == nil {
				return nil
			}
			promotions = append(promotions, *p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range promotions {
		metrics.WaitlistPromotions.Inc()
		q.events.promoted(ctx, &promotions[i])
	}
	return promotions, nil
}

// promoteNext must run under the event lock.
func (q *WaitlistQueue) promoteNext(ctx context.Context, r repository.Repos, ev *models.Event) (*models.Promotion, error) {
	entry, err := r.Waitlist.NextPending(ctx, ev.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read waitlist head: %w", err)
	}

	booking, ticket, err := q.ledger.admit(ctx, r, ev, entry.RequesterEmail)
	if err != nil {
		return nil, err
	}

	at := now()
	if err := r.Waitlist.MarkConverted(ctx, entry.ID, booking.ID, at); err != nil {
		return nil, fmt.Errorf("failed to convert waitlist entry: %w", err)
	}

	converted, err := r.Waitlist.GetByID(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload waitlist entry: %w", err)
	}

	logger.WithContext(ctx).Info("Waitlist entry promoted",
		"entry_id", entry.ID,
		"event_id", ev.ID,
		"position", entry.Position,
		"booking_id", booking.ID)

	return &models.Promotion{
		Entry:   *converted,
		Booking: *booking,
		Ticket:  *ticket,
	}, nil
}

func (q *WaitlistQueue) Stats(ctx context.Context, caller *models.Caller, eventID int64) (*models.WaitlistStats, error) {
	ev, err := q.eventsSvc.Authorize(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}

	entries, err := q.store.Repos().Waitlist.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}

	stats := &models.WaitlistStats{
		EventID:   eventID,
		Total:     len(entries),
		Remaining: ev.Remaining(),
	}
	for _, e := range entries {
		switch {
		case e.Converted:
			stats.Converted++
		case e.Withdrawn:
			stats.Withdrawn++
		default:
			stats.Pending++
		}
		if e.Notified {
			stats.Notified++
		}
	}
	return stats, nil
}

// MarkNotified records that staff told the requester about a free place.
// Repeated calls keep the first timestamp.
func (q *WaitlistQueue) MarkNotified(ctx context.Context, caller *models.Caller, entryID int64) (*models.WaitlistEntry, error) {
	if err := validID("waitlist entry", entryID); err != nil {
		return nil, err
	}

	repos := q.store.Repos()
	entry, err := repos.Waitlist.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := q.eventsSvc.Authorize(ctx, caller, entry.EventID); err != nil {
		return nil, err
	}

	changed, err := repos.Waitlist.MarkNotified(ctx, entryID, now())
	if err != nil {
		return nil, err
	}

	entry, err = repos.Waitlist.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if changed {
		q.events.publish(ctx, models.EventWaitlistNotified, models.WaitlistNotifiedEvent{
			EntryID:   entry.ID,
			EventID:   entry.EventID,
			Timestamp: now(),
		})
	}
	return entry, nil
}

// Withdraw takes a pending entry out of the queue on behalf of its requester.
// The entry keeps its position; later entries never reuse it. Withdrawing
// twice is a no-op.
func (q *WaitlistQueue) Withdraw(ctx context.Context, caller *models.Caller, entryID int64) error {
	if err := validID("waitlist entry", entryID); err != nil {
		return err
	}

	entry, err := q.store.Repos().Waitlist.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && entry.RequesterEmail != caller.Email {
		return fmt.Errorf("%w: waitlist entry belongs to another requester", apperrors.ErrForbidden)
	}

	return q.store.WithEventLock(ctx, entry.EventID, func(r repository.Repos, _ *models.Event) error {
		changed, err := r.Waitlist.MarkWithdrawn(ctx, entryID, now())
		if err != nil {
			return err
		}
		if changed {
			logger.WithContext(ctx).Info("Waitlist entry withdrawn", "entry_id", entryID, "event_id", entry.EventID)
		}
		return nil
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

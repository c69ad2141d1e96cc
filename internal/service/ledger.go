package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/logger"
	"tickethub/internal/metrics"
	"tickethub/internal/models"
	"tickethub/internal/repository"
)

// CapacityLedger admits bookings against event capacity. Every admission and
// release runs under the event's lock, so the check and the write are one step.
type CapacityLedger struct {
	store   repository.Store
	tickets *TicketLifecycle
	queue   *WaitlistQueue
	events  *notifier
}

func NewCapacityLedger(store repository.Store, tickets *TicketLifecycle, events *notifier) *CapacityLedger {
	return &CapacityLedger{
		store:   store,
		tickets: tickets,
		events:  events,
	}
}

// RequestBooking is the forced admission path: a full event fails with
// ErrCapacityExceeded instead of joining the waitlist.
func (l *CapacityLedger) RequestBooking(ctx context.Context, eventID int64, email string) (*models.Booking, *models.Ticket, error) {
	if err := validID("event", eventID); err != nil {
		return nil, nil, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}

	var (
		booking *models.Booking
		ticket  *models.Ticket
	)
	err = l.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		var err error
		booking, ticket, err = l.admit(ctx, r, ev, email)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.BookingsAdmitted.Inc()
	l.events.bookingCreated(ctx, booking, false)
	l.events.ticketIssued(ctx, ticket)

	return booking, ticket, nil
}

// ReleaseCapacity frees one place and promotes the head of the waitlist into
// it, if there is one.
func (l *CapacityLedger) ReleaseCapacity(ctx context.Context, eventID int64) (*models.Promotion, error) {
	if err := validID("event", eventID); err != nil {
		return nil, err
	}

	var promotion *models.Promotion
	err := l.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		if err := l.release(ctx, r, ev); err != nil {
			return err
		}
		var err error
		promotion, err = l.queue.promoteNext(ctx, r, ev)
		return err
	})
	if err != nil {
		return nil, err
	}

	if promotion != nil {
		metrics.WaitlistPromotions.Inc()
		l.events.promoted(ctx, promotion)
	}
	return promotion, nil
}

// admit must run under the event lock. ev is kept in step with storage so
// later steps of the same unit of work see the new count.
func (l *CapacityLedger) admit(ctx context.Context, r repository.Repos, ev *models.Event, email string) (*models.Booking, *models.Ticket, error) {
	if !ev.HasCapacity() {
		return nil, nil, apperrors.ErrCapacityExceeded
	}

	if err := r.Events.AdjustConfirmed(ctx, ev.ID, 1); err != nil {
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to reserve capacity: %w", err)
	}
	ev.ConfirmedCount++

	booking := &models.Booking{
		EventID:        ev.ID,
		RequesterEmail: email,
		Status:         models.BookingConfirmed,
	}
	if err := r.Bookings.Create(ctx, booking); err != nil {
		return nil, nil, fmt.Errorf("failed to create booking: %w", err)
	}

	ticket, err := l.tickets.issue(ctx, r, booking)
	if err != nil {
		return nil, nil, err
	}

	logger.WithContext(ctx).Info("Booking admitted",
		"booking_id", booking.ID,
		"event_id", ev.ID,
		"confirmed", ev.ConfirmedCount,
		"capacity", ev.Capacity)

	return booking, ticket, nil
}

// release must run under the event lock. The count never goes below zero.
func (l *CapacityLedger) release(ctx context.Context, r repository.Repos, ev *models.Event) error {
	if ev.ConfirmedCount == 0 {
		logger.WithContext(ctx).Warn("Release on event without confirmed bookings", "event_id", ev.ID)
		return nil
	}

	if err := r.Events.AdjustConfirmed(ctx, ev.ID, -1); err != nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	ev.ConfirmedCount--
	return nil
}

// Resize changes an event's capacity and fills any new places from the
// waitlist in the same unit of work. Capacity cannot drop below the number
// of confirmed bookings.
func (l *CapacityLedger) Resize(ctx context.Context, caller *models.Caller, eventID int64, capacity int) (*models.ResizeResult, error) {
	if capacity < 0 {
		return nil, apperrors.Invalidf("capacity must not be negative")
	}
	if _, err := l.queue.eventsSvc.Authorize(ctx, caller, eventID); err != nil {
		return nil, err
	}

	result := &models.ResizeResult{Promoted: []models.Promotion{}}
	err := l.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		if err := r.Events.SetCapacity(ctx, ev.ID, capacity); err != nil {
			return err
		}
		ev.Capacity = capacity

		for ev.HasCapacity() {
			p, err := l.queue.promoteNext(ctx, r, ev)
			if err != nil {
				return err
			}
			if p == nil {
				break
			}
			result.Promoted = append(result.Promoted, *p)
		}
		result.Event = *ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Event capacity changed",
		"event_id", eventID,
		"capacity", capacity,
		"promoted", len(result.Promoted))

	for i := range result.Promoted {
		metrics.WaitlistPromotions.Inc()
		l.events.promoted(ctx, &result.Promoted[i])
	}
	return result, nil
}

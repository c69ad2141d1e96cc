package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/logger"
	"tickethub/internal/metrics"
	"tickethub/internal/models"
	"tickethub/internal/repository"

	"github.com/google/uuid"
)

// TicketLifecycle issues one ticket per booking and moves it from ISSUED to
// CHECKED_IN exactly once.
type TicketLifecycle struct {
	store     repository.Store
	eventsSvc *EventService
	events    *notifier
}

func NewTicketLifecycle(store repository.Store, eventsSvc *EventService, events *notifier) *TicketLifecycle {
	return &TicketLifecycle{
		store:     store,
		eventsSvc: eventsSvc,
		events:    events,
	}
}

// Issue creates the ticket of a booking that has none, on behalf of the
// event's organizer or an admin.
func (t *TicketLifecycle) Issue(ctx context.Context, caller *models.Caller, bookingID int64) (*models.Ticket, error) {
	if err := validID("booking", bookingID); err != nil {
		return nil, err
	}

	booking, err := t.store.Repos().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := t.eventsSvc.Authorize(ctx, caller, booking.EventID); err != nil {
		return nil, err
	}

	var ticket *models.Ticket
	err = t.store.WithEventLock(ctx, booking.EventID, func(r repository.Repos, _ *models.Event) error {
		current, err := r.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		ticket, err = t.issue(ctx, r, current)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.events.ticketIssued(ctx, ticket)
	return ticket, nil
}

// issue runs inside the unit of work that created or holds the booking.
func (t *TicketLifecycle) issue(ctx context.Context, r repository.Repos, booking *models.Booking) (*models.Ticket, error) {
	if booking.Status != models.BookingConfirmed {
		return nil, fmt.Errorf("%w: booking %d is not confirmed", apperrors.ErrConflict, booking.ID)
	}

	if _, err := r.Tickets.GetByBookingID(ctx, booking.ID); err == nil {
		return nil, apperrors.ErrTicketExists
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check ticket: %w", err)
	}

	ticket := &models.Ticket{
		BookingID:    booking.ID,
		TicketNumber: newTicketNumber(booking.ID),
		Token:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:       models.TicketIssued,
		IssuedAt:     now(),
	}
	if err := r.Tickets.Create(ctx, ticket); err != nil {
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	metrics.TicketsIssued.Inc()
	return ticket, nil
}

func newTicketNumber(bookingID int64) string {
	id := uuid.New()
	return fmt.Sprintf("TKT-%d-%X", bookingID, id[:4])
}

// CheckIn marks a ticket as used. A second check-in fails with
// ErrAlreadyCheckedIn and leaves the first timestamp in place.
func (t *TicketLifecycle) CheckIn(ctx context.Context, caller *models.Caller, ticketNumber string) (*models.Ticket, error) {
	ticketNumber = strings.TrimSpace(ticketNumber)
	if ticketNumber == "" {
		return nil, apperrors.Invalidf("ticket number is required")
	}

	repos := t.store.Repos()
	ticket, err := repos.Tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	booking, err := repos.Bookings.GetByID(ctx, ticket.BookingID)
	if err != nil {
		return nil, err
	}
	if _, err := t.eventsSvc.Authorize(ctx, caller, booking.EventID); err != nil {
		metrics.CheckIns.WithLabelValues(metrics.CheckInDenied).Inc()
		return nil, err
	}

	at := now()
	ok, err := repos.Tickets.MarkCheckedIn(ctx, ticket.ID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The booking may have been cancelled since the ticket was read.
		if _, err := repos.Tickets.GetByNumber(ctx, ticketNumber); apperrors.IsNotFound(err) {
			return nil, err
		}
		metrics.CheckIns.WithLabelValues(metrics.CheckInRepeated).Inc()
		return nil, apperrors.ErrAlreadyCheckedIn
	}
	metrics.CheckIns.WithLabelValues(metrics.CheckInOK).Inc()

	ticket.Status = models.TicketCheckedIn
	ticket.CheckedInAt = &at

	logger.WithContext(ctx).Info("Ticket checked in",
		"ticket_number", ticket.TicketNumber,
		"booking_id", booking.ID,
		"event_id", booking.EventID)

	t.events.publish(ctx, models.EventTicketCheckedIn, models.TicketCheckedInEvent{
		TicketNumber: ticket.TicketNumber,
		BookingID:    booking.ID,
		EventID:      booking.EventID,
		Timestamp:    at,
	})
	return ticket, nil
}

// Retrieve returns the ticket to the requester whose email is on the booking.
func (t *TicketLifecycle) Retrieve(ctx context.Context, ticketNumber, email string) (*models.TicketView, error) {
	ticketNumber = strings.TrimSpace(ticketNumber)
	if ticketNumber == "" {
		return nil, apperrors.Invalidf("ticket number is required")
	}

	ticket, err := t.store.Repos().Tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return t.view(ctx, ticket, email)
}

func (t *TicketLifecycle) RetrieveByBooking(ctx context.Context, bookingID int64, email string) (*models.TicketView, error) {
	if err := validID("booking", bookingID); err != nil {
		return nil, err
	}

	ticket, err := t.store.Repos().Tickets.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return t.view(ctx, ticket, email)
}

func (t *TicketLifecycle) view(ctx context.Context, ticket *models.Ticket, email string) (*models.TicketView, error) {
	repos := t.store.Repos()
	booking, err := repos.Bookings.GetByID(ctx, ticket.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.RequesterEmail != models.NormalizeEmail(email) {
		return nil, fmt.Errorf("%w: ticket belongs to another requester", apperrors.ErrForbidden)
	}

	event, err := repos.Events.GetByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}

	return &models.TicketView{
		Ticket: *ticket,
		Event: models.EventSummary{
			ID:       event.ID,
			Title:    event.Title,
			StartsAt: event.StartsAt.Format(time.RFC3339),
		},
		Booking: models.BookingSummary{
			ID:             booking.ID,
			RequesterEmail: booking.RequesterEmail,
			CreatedAt:      booking.CreatedAt.Format(time.RFC3339),
		},
	}, nil
}

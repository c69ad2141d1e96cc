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

// BookingService is the standard booking path: admission when capacity is
// free, the waitlist otherwise.
type BookingService struct {
	store     repository.Store
	eventsSvc *EventService
	ledger    *CapacityLedger
	queue     *WaitlistQueue
	events    *notifier
}

func NewBookingService(store repository.Store, eventsSvc *EventService, ledger *CapacityLedger, queue *WaitlistQueue, events *notifier) *BookingService {
	return &BookingService{
		store:     store,
		eventsSvc: eventsSvc,
		ledger:    ledger,
		queue:     queue,
		events:    events,
	}
}

// Create books a place for email, or the caller's email when empty. Only the
// event's organizer or an admin may book for somebody else.
func (s *BookingService) Create(ctx context.Context, caller *models.Caller, eventID int64, email string) (*models.BookingOutcome, error) {
	if email == "" {
		email = caller.Email
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	event, err := s.eventsSvc.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if email != caller.Email && !caller.OwnsOrganizer(event.OrganizerID) {
		return nil, fmt.Errorf("%w: cannot book for another email", apperrors.ErrForbidden)
	}

	outcome := &models.BookingOutcome{}
	err = s.store.WithEventLock(ctx, eventID, func(r repository.Repos, ev *models.Event) error {
		booking, ticket, err := s.ledger.admit(ctx, r, ev, email)
		if err == nil {
			outcome.Outcome = models.OutcomeBooked
			outcome.Booking = booking
			outcome.Ticket = ticket
			return nil
		}
		if !errors.Is(err, apperrors.ErrCapacityExceeded) {
			return err
		}

		entry, err := s.queue.enqueue(ctx, r, ev, email)
		if err != nil {
			return err
		}
		outcome.Outcome = models.OutcomeWaitlisted
		outcome.WaitlistEntry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Booking != nil {
		metrics.BookingsAdmitted.Inc()
		s.events.bookingCreated(ctx, outcome.Booking, false)
		s.events.ticketIssued(ctx, outcome.Ticket)
	} else {
		s.queue.joined(ctx, outcome.WaitlistEntry)
	}

	return outcome, nil
}

// Cancel deletes the booking and its ticket, frees the place and promotes the
// head of the waitlist, all in one unit of work. The requester, the event's
// organizer and admins may cancel.
func (s *BookingService) Cancel(ctx context.Context, caller *models.Caller, bookingID int64) (*models.CancelBookingResponse, error) {
	if err := validID("booking", bookingID); err != nil {
		return nil, err
	}

	booking, err := s.store.Repos().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.RequesterEmail != caller.Email {
		if _, err := s.eventsSvc.Authorize(ctx, caller, booking.EventID); err != nil {
			return nil, err
		}
	}

	var promotion *models.Promotion
	err = s.store.WithEventLock(ctx, booking.EventID, func(r repository.Repos, ev *models.Event) error {
		if _, err := r.Bookings.GetByID(ctx, bookingID); err != nil {
			return err
		}

		// Check-in does not take the event lock; the conditional delete is
		// what keeps a used ticket.
		if err := r.Tickets.DeleteIssuedByBookingID(ctx, bookingID); err != nil {
			if apperrors.IsConflict(err) {
				return err
			}
			return fmt.Errorf("failed to delete ticket: %w", err)
		}
		if err := r.Bookings.Delete(ctx, bookingID); err != nil {
			return err
		}
		if err := s.ledger.release(ctx, r, ev); err != nil {
			return err
		}

		promotion, err = s.queue.promoteNext(ctx, r, ev)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCancelled.Inc()
	logger.WithContext(ctx).Info("Booking cancelled",
		"booking_id", bookingID,
		"event_id", booking.EventID,
		"promoted", promotion != nil)

	s.events.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID: bookingID,
		EventID:   booking.EventID,
		Timestamp: now(),
	})
	if promotion != nil {
		metrics.WaitlistPromotions.Inc()
		s.events.promoted(ctx, promotion)
	}

	return &models.CancelBookingResponse{
		BookingID: bookingID,
		Promoted:  promotion,
	}, nil
}

func (s *BookingService) ListMine(ctx context.Context, caller *models.Caller) ([]models.Booking, error) {
	bookings, err := s.store.Repos().Bookings.ListByEmail(ctx, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return nonNil(bookings), nil
}

func (s *BookingService) ListForEvent(ctx context.Context, caller *models.Caller, eventID int64) ([]models.Booking, error) {
	if _, err := s.eventsSvc.Authorize(ctx, caller, eventID); err != nil {
		return nil, err
	}

	bookings, err := s.store.Repos().Bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return nonNil(bookings), nil
}

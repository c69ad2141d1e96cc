package service

import (
	"context"
	"strings"
	"time"

	"tickethub/internal/cache"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/logger"
	"tickethub/internal/messaging"
	"tickethub/internal/models"
	"tickethub/internal/repository"
)

type Services struct {
	Events     *EventService
	Ledger     *CapacityLedger
	Waitlist   *WaitlistQueue
	Tickets    *TicketLifecycle
	Bookings   *BookingService
	Organizers *CascadeCoordinator
}

func NewServices(store repository.Store, publisher messaging.Publisher, identities *cache.IdentityCache) *Services {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	n := &notifier{publisher: publisher}

	events := NewEventService(store)
	tickets := NewTicketLifecycle(store, events, n)
	ledger := NewCapacityLedger(store, tickets, n)
	queue := NewWaitlistQueue(store, events, ledger, n)
	ledger.queue = queue

	return &Services{
		Events:     events,
		Ledger:     ledger,
		Waitlist:   queue,
		Tickets:    tickets,
		Bookings:   NewBookingService(store, events, ledger, queue, n),
		Organizers: NewCascadeCoordinator(store, identities, n),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

// normalizeEmail lowercases the address and rejects obviously malformed input.
func normalizeEmail(email string) (string, error) {
	email = models.NormalizeEmail(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", apperrors.Invalidf("invalid email %q", email)
	}
	return email, nil
}

func validID(kind string, id int64) error {
	if id <= 0 {
		return apperrors.Invalidf("invalid %s id %d", kind, id)
	}
	return nil
}

// notifier publishes domain events once a unit of work has committed.
// Publish failures are logged and never fail the operation.
type notifier struct {
	publisher messaging.Publisher
}

func (n *notifier) publish(ctx context.Context, subject string, data interface{}) {
	if err := n.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

func (n *notifier) bookingCreated(ctx context.Context, b *models.Booking, promoted bool) {
	n.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID:      b.ID,
		EventID:        b.EventID,
		RequesterEmail: b.RequesterEmail,
		Promoted:       promoted,
		Timestamp:      now(),
	})
}

func (n *notifier) ticketIssued(ctx context.Context, t *models.Ticket) {
	n.publish(ctx, models.EventTicketIssued, models.TicketIssuedEvent{
		TicketNumber: t.TicketNumber,
		BookingID:    t.BookingID,
		Timestamp:    now(),
	})
}

func (n *notifier) promoted(ctx context.Context, p *models.Promotion) {
	n.publish(ctx, models.EventWaitlistPromoted, models.WaitlistPromotedEvent{
		EntryID:        p.Entry.ID,
		EventID:        p.Entry.EventID,
		BookingID:      p.Booking.ID,
		RequesterEmail: p.Entry.RequesterEmail,
		Position:       p.Entry.Position,
		Timestamp:      now(),
	})
	n.bookingCreated(ctx, &p.Booking, true)
	n.ticketIssued(ctx, &p.Ticket)
}

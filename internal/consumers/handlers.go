package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tickethub/internal/models"

	"github.com/nats-io/stan.go"
)

const handleTimeout = 30 * time.Second

// errMalformed marks messages that will never decode; they are acknowledged
// so the broker stops redelivering them.
var errMalformed = errors.New("malformed message")

// Promoter fills free capacity of an event from its waitlist.
type Promoter interface {
	PromoteAvailable(ctx context.Context, eventID int64) ([]models.Promotion, error)
}

// IdentityEvictor drops cached identities.
type IdentityEvictor interface {
	Invalidate(ctx context.Context, userIDs ...int64) error
}

type Handlers struct {
	promoter   Promoter
	identities IdentityEvictor
}

func NewHandlers(promoter Promoter, identities IdentityEvictor) *Handlers {
	return &Handlers{
		promoter:   promoter,
		identities: identities,
	}
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	h.dispatch(m, models.EventBookingCancelled, h.onBookingCancelled)
}

func (h *Handlers) HandleWaitlistPromoted(m *stan.Msg) {
	h.dispatch(m, models.EventWaitlistPromoted, h.onWaitlistPromoted)
}

func (h *Handlers) HandleTicketCheckedIn(m *stan.Msg) {
	h.dispatch(m, models.EventTicketCheckedIn, h.onTicketCheckedIn)
}

func (h *Handlers) HandleOrganizerDeleted(m *stan.Msg) {
	h.dispatch(m, models.EventOrganizerDeleted, h.onOrganizerDeleted)
}

// dispatch acknowledges processed and malformed messages. Transient failures
// are left unacknowledged and come back after AckWait.
func (h *Handlers) dispatch(m *stan.Msg, subject string, handle func(ctx context.Context, data []byte) error) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	err := handle(ctx, m.Data)
	if err != nil && !errors.Is(err, errMalformed) {
		slog.Error("Failed to process event, awaiting redelivery",
			"error", err,
			"event_type", subject,
			"sequence", m.Sequence)
		return
	}
	if err != nil {
		slog.Error("Dropping malformed event", "error", err, "event_type", subject)
	}

	if err := m.Ack(); err != nil {
		slog.Error("Failed to ack event", "error", err, "event_type", subject)
	}
}

func decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

// onBookingCancelled re-runs promotion for the event. The cancel path already
// promotes inside its own unit of work, so this only catches places freed by
// a promotion that failed there.
func (h *Handlers) onBookingCancelled(ctx context.Context, data []byte) error {
	var event models.BookingCancelledEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	promotions, err := h.promoter.PromoteAvailable(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("promote event %d: %w", event.EventID, err)
	}

	slog.Info("Processed booking cancelled event",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"promoted", len(promotions))
	return nil
}

func (h *Handlers) onWaitlistPromoted(ctx context.Context, data []byte) error {
	var event models.WaitlistPromotedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Waitlisted requester promoted",
		"entry_id", event.EntryID,
		"event_id", event.EventID,
		"booking_id", event.BookingID,
		"requester_email", event.RequesterEmail,
		"position", event.Position)
	return nil
}

func (h *Handlers) onTicketCheckedIn(ctx context.Context, data []byte) error {
	var event models.TicketCheckedInEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Ticket checked in",
		"ticket_number", event.TicketNumber,
		"booking_id", event.BookingID,
		"event_id", event.EventID)
	return nil
}

// onOrganizerDeleted evicts cascaded identities; the API process does the
// same after commit, this covers other replicas sharing the cache.
func (h *Handlers) onOrganizerDeleted(ctx context.Context, data []byte) error {
	var event models.OrganizerDeletedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	if err := h.identities.Invalidate(ctx, event.DeletedUserIDs...); err != nil {
		return fmt.Errorf("evict identities of organizer %d: %w", event.OrganizerID, err)
	}

	slog.Info("Evicted identities of deleted organizer",
		"organizer_id", event.OrganizerID,
		"users", len(event.DeletedUserIDs))
	return nil
}

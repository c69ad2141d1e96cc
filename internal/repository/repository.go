package repository

import (
	"context"
	"time"

	"tickethub/internal/models"
)

// Store opens units of work against the backing storage.
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repos

	// WithTx runs fn in a single transaction; an error from fn rolls back
	// every write made through r.
	WithTx(ctx context.Context, fn func(r Repos) error) error

	// WithEventLock runs fn in a transaction that holds the event's lock for
	// its whole duration. ev is read after the lock was taken. Units of work
	// for the same event never interleave; different events do not contend.
	WithEventLock(ctx context.Context, eventID int64, fn func(r Repos, ev *models.Event) error) error
}

type Repos struct {
	Events     EventRepository
	Bookings   BookingRepository
	Waitlist   WaitlistRepository
	Tickets    TicketRepository
	Users      UserRepository
	Organizers OrganizerRepository
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error)
	// AdjustConfirmed changes confirmed_count by delta; the capacity bounds
	// are enforced by storage.
	AdjustConfirmed(ctx context.Context, id int64, delta int) error
	// SetCapacity fails with ErrConflict when capacity would drop below the
	// confirmed count.
	SetCapacity(ctx context.Context, id int64, capacity int) error
	// ListPromotable returns events with free capacity and pending waitlist entries.
	ListPromotable(ctx context.Context) ([]models.Event, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	Delete(ctx context.Context, id int64) error
	ListByEmail(ctx context.Context, email string) ([]models.Booking, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error)
}

type WaitlistRepository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error)
	// FindPending returns the pending entry of email for the event. Converted
	// and withdrawn entries are not pending.
	FindPending(ctx context.Context, eventID int64, email string) (*models.WaitlistEntry, error)
	MaxPosition(ctx context.Context, eventID int64) (int64, error)
	// NextPending returns the pending entry with the smallest position.
	NextPending(ctx context.Context, eventID int64) (*models.WaitlistEntry, error)
	MarkConverted(ctx context.Context, id, bookingID int64, at time.Time) error
	// MarkNotified sets the notified flag; it reports false when the entry was
	// already notified, leaving the first timestamp in place.
	MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error)
	// MarkWithdrawn keeps the row so its position is never handed out again.
	// It reports false when the entry was already withdrawn and fails with
	// ErrAlreadyConverted for converted entries.
	MarkWithdrawn(ctx context.Context, id int64, at time.Time) (bool, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]models.WaitlistEntry, error)
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByNumber(ctx context.Context, number string) (*models.Ticket, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*models.Ticket, error)
	// MarkCheckedIn transitions ISSUED to CHECKED_IN. It reports false when
	// the ticket was not in ISSUED state.
	MarkCheckedIn(ctx context.Context, id int64, at time.Time) (bool, error)
	// DeleteIssuedByBookingID removes the booking's ticket only while it is
	// ISSUED, in a single conditional write. A checked-in ticket is kept and
	// ErrAlreadyCheckedIn returned. A booking without a ticket is not an error.
	DeleteIssuedByBookingID(ctx context.Context, bookingID int64) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// GetActiveByID never returns soft-deleted users.
	GetActiveByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveByOrganizer(ctx context.Context, organizerID int64) ([]models.User, error)
	// SoftDeleteByOrganizer flags every active user of the organizer and
	// returns the ids it changed.
	SoftDeleteByOrganizer(ctx context.Context, organizerID int64, at time.Time) ([]int64, error)
}

type OrganizerRepository interface {
	Create(ctx context.Context, organizer *models.Organizer) error
	// GetByID returns soft-deleted organizers too; callers check IsDeleted.
	GetByID(ctx context.Context, id int64) (*models.Organizer, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

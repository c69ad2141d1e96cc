package models

import "time"

// NATS Event Types
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventWaitlistJoined   = "waitlist.joined"
	EventWaitlistPromoted = "waitlist.promoted"
	EventWaitlistNotified = "waitlist.notified"
	EventTicketIssued     = "ticket.issued"
	EventTicketCheckedIn  = "ticket.checked_in"
	EventOrganizerDeleted = "organizer.deleted"
)

// BookingCreatedEvent represents an admitted booking
type BookingCreatedEvent struct {
	BookingID      int64     `json:"booking_id"`
	EventID        int64     `json:"event_id"`
	RequesterEmail string    `json:"requester_email"`
	Promoted       bool      `json:"promoted"`
	Timestamp      time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a cancelled booking
type BookingCancelledEvent struct {
	BookingID int64     `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistJoinedEvent represents a new waitlist entry
type WaitlistJoinedEvent struct {
	EntryID        int64     `json:"entry_id"`
	EventID        int64     `json:"event_id"`
	RequesterEmail string    `json:"requester_email"`
	Position       int64     `json:"position"`
	Timestamp      time.Time `json:"timestamp"`
}

// WaitlistPromotedEvent represents a waitlist entry converted to a booking
type WaitlistPromotedEvent struct {
	EntryID        int64     `json:"entry_id"`
	EventID        int64     `json:"event_id"`
	BookingID      int64     `json:"booking_id"`
	RequesterEmail string    `json:"requester_email"`
	Position       int64     `json:"position"`
	Timestamp      time.Time `json:"timestamp"`
}

// WaitlistNotifiedEvent represents an entry marked as notified by staff
type WaitlistNotifiedEvent struct {
	EntryID   int64     `json:"entry_id"`
	EventID   int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketIssuedEvent represents a newly issued ticket
type TicketIssuedEvent struct {
	TicketNumber string    `json:"ticket_number"`
	BookingID    int64     `json:"booking_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// TicketCheckedInEvent represents a ticket used at the door
type TicketCheckedInEvent struct {
	TicketNumber string    `json:"ticket_number"`
	BookingID    int64     `json:"booking_id"`
	EventID      int64     `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// OrganizerDeletedEvent carries the users soft-deleted by a cascade
type OrganizerDeletedEvent struct {
	OrganizerID    int64     `json:"organizer_id"`
	DeletedUserIDs []int64   `json:"deleted_user_ids"`
	Timestamp      time.Time `json:"timestamp"`
}

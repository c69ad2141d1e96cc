package models

import "time"

// Booking outcomes reported to the caller
const (
	OutcomeBooked     = "booked"
	OutcomeWaitlisted = "waitlisted"
)

// CreateBookingRequest - body of POST /api/events/:id/bookings.
// Email defaults to the caller's email (guest checkout allows another one).
type CreateBookingRequest struct {
	Email string `json:"email"`
}

// BookingOutcome tells the caller whether the request was admitted or waitlisted
type BookingOutcome struct {
	Outcome       string         `json:"outcome"`
	Booking       *Booking       `json:"booking,omitempty"`
	Ticket        *Ticket        `json:"ticket,omitempty"`
	WaitlistEntry *WaitlistEntry `json:"waitlist_entry,omitempty"`
}

// CancelBookingResponse - result of DELETE /api/bookings/:id
type CancelBookingResponse struct {
	BookingID int64      `json:"booking_id"`
	Promoted  *Promotion `json:"promoted,omitempty"`
}

// JoinWaitlistRequest - body of POST /api/events/:id/waitlist
type JoinWaitlistRequest struct {
	Email string `json:"email"`
}

// Promotion is the result of promoting one waitlist entry
type Promotion struct {
	Entry   WaitlistEntry `json:"entry"`
	Booking Booking       `json:"booking"`
	Ticket  Ticket        `json:"ticket"`
}

// PromoteResponse - result of POST /api/events/:id/waitlist/promote
type PromoteResponse struct {
	Promoted *Promotion `json:"promoted"`
}

// WaitlistStats summarises a waitlist
type WaitlistStats struct {
	EventID   int64 `json:"event_id"`
	Total     int   `json:"total"`
	Pending   int   `json:"pending"`
	Notified  int   `json:"notified"`
	Converted int   `json:"converted"`
	Withdrawn int   `json:"withdrawn"`
	Remaining int   `json:"remaining_capacity"`
}

// EventSummary is the event part of a ticket view
type EventSummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
}

// BookingSummary is the booking part of a ticket view
type BookingSummary struct {
	ID             int64  `json:"id"`
	RequesterEmail string `json:"requester_email"`
	CreatedAt      string `json:"created_at"`
}

// TicketView is a ticket with denormalized event and booking data
type TicketView struct {
	Ticket  Ticket         `json:"ticket"`
	Event   EventSummary   `json:"event"`
	Booking BookingSummary `json:"booking"`
}

// CascadeResult - result of DELETE /api/organizers/:id
type CascadeResult struct {
	OrganizerID       int64 `json:"organizer_id"`
	DeletedUsersCount int   `json:"deleted_users_count"`
}

// CreateEventRequest - body of POST /api/events.
// OrganizerID is only honoured for admins; organizers create events for themselves.
type CreateEventRequest struct {
	OrganizerID int64     `json:"organizer_id"`
	Title       string    `json:"title" binding:"required"`
	Capacity    *int      `json:"capacity" binding:"required"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
}

// ResizeCapacityRequest - body of PATCH /api/events/:id/capacity
type ResizeCapacityRequest struct {
	Capacity *int `json:"capacity" binding:"required"`
}

// ResizeResult reports the new event state and the entries promoted into
// the added places
type ResizeResult struct {
	Event    Event       `json:"event"`
	Promoted []Promotion `json:"promoted"`
}

package models

import (
	"strings"
	"time"
)

// Roles known to the identity gate
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Booking statuses
const (
	BookingConfirmed = "CONFIRMED"
)

// Ticket statuses
const (
	TicketIssued    = "ISSUED"
	TicketCheckedIn = "CHECKED_IN"
)

// Organizer owns events and user accounts
type Organizer struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// User represents an account resolvable by the identity gate
type User struct {
	ID          int64      `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	Role        string     `json:"role" db:"role"`
	OrganizerID *int64     `json:"organizer_id,omitempty" db:"organizer_id"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Event is a finite-capacity event. ConfirmedCount never exceeds Capacity.
type Event struct {
	ID             int64     `json:"id" db:"id"`
	OrganizerID    int64     `json:"organizer_id" db:"organizer_id"`
	Title          string    `json:"title" db:"title"`
	Capacity       int       `json:"capacity" db:"capacity"`
	ConfirmedCount int       `json:"confirmed_count" db:"confirmed_count"`
	StartsAt       time.Time `json:"starts_at" db:"starts_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Remaining returns the number of free places.
func (e *Event) Remaining() int {
	if e.ConfirmedCount >= e.Capacity {
		return 0
	}
	return e.Capacity - e.ConfirmedCount
}

// HasCapacity reports whether one more booking can be admitted.
func (e *Event) HasCapacity() bool {
	return e.ConfirmedCount < e.Capacity
}

// Booking is a confirmed place at an event, owned by the requester email
type Booking struct {
	ID             int64     `json:"id" db:"id"`
	EventID        int64     `json:"event_id" db:"event_id"`
	RequesterEmail string    `json:"requester_email" db:"requester_email"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// WaitlistEntry is a pending request for a sold out event
type WaitlistEntry struct {
	ID             int64      `json:"id" db:"id"`
	EventID        int64      `json:"event_id" db:"event_id"`
	RequesterEmail string     `json:"requester_email" db:"requester_email"`
	Position       int64      `json:"position" db:"position"`
	Notified       bool       `json:"notified" db:"notified"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty" db:"notified_at"`
	Converted      bool       `json:"converted_to_booking" db:"converted"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty" db:"converted_at"`
	Withdrawn      bool       `json:"withdrawn" db:"withdrawn"`
	WithdrawnAt    *time.Time `json:"withdrawn_at,omitempty" db:"withdrawn_at"`
	BookingID      *int64     `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Pending reports whether the entry still waits for a place.
func (w *WaitlistEntry) Pending() bool {
	return !w.Converted && !w.Withdrawn
}

// Ticket is issued exactly once per confirmed booking
type Ticket struct {
	ID           int64      `json:"id" db:"id"`
	BookingID    int64      `json:"booking_id" db:"booking_id"`
	TicketNumber string     `json:"ticket_number" db:"ticket_number"`
	Token        string     `json:"token" db:"token"`
	Status       string     `json:"status" db:"status"`
	IssuedAt     time.Time  `json:"issued_at" db:"issued_at"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
}

// Caller is the identity resolved for the current request
type Caller struct {
	UserID      int64
	Email       string
	Role        string
	OrganizerID *int64
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// OwnsOrganizer reports whether the caller acts for the given organizer.
// Admins act for every organizer.
func (c *Caller) OwnsOrganizer(organizerID int64) bool {
	if c == nil {
		return false
	}
	if c.IsAdmin() {
		return true
	}
	return c.Role == RoleOrganizer && c.OrganizerID != nil && *c.OrganizerID == organizerID
}

// NormalizeEmail lowercases and trims an email so that ownership checks
// compare equal strings.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

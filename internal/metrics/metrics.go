// Package metrics exposes the service's Prometheus collectors. They are
// registered on the default registry and served by /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check-in results
const (
	CheckInOK       = "ok"
	CheckInRepeated = "already_checked_in"
	CheckInDenied   = "forbidden"
)

var (
	// Capacity ledger
	BookingsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_bookings_admitted_total",
		Help: "Bookings admitted directly against free capacity",
	})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_bookings_cancelled_total",
		Help: "Bookings cancelled by their requester",
	})

	// Waitlist
	WaitlistJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_waitlist_joined_total",
		Help: "Requests routed to the waitlist because the event was full",
	})
	WaitlistPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_waitlist_promotions_total",
		Help: "Waitlist entries converted into bookings",
	})

	// Tickets
	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_tickets_issued_total",
		Help: "Tickets issued for confirmed bookings",
	})
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickethub_ticket_checkins_total",
		Help: "Ticket check-in attempts by result",
	}, []string{"result"})

	// Cascade
	OrganizersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_organizers_deleted_total",
		Help: "Organizer soft deletions",
	})
	CascadeUsersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickethub_cascade_users_deleted_total",
		Help: "Users soft-deleted by organizer cascades",
	})

	// HTTP
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickethub_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

package handlers

import (
	"net/http"

	"tickethub/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateBooking - POST /api/events/:id/bookings
// Books a place or joins the waitlist when the event is full.
func (h *Handlers) CreateBooking(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	outcome, err := h.services.Bookings.Create(c.Request.Context(), caller(c), eventID, req.Email)
	if err != nil {
		respondError(c, "create booking", err)
		return
	}

	c.JSON(http.StatusCreated, outcome)
}

// ListBookings - GET /api/bookings
func (h *Handlers) ListBookings(c *gin.Context) {
	bookings, err := h.services.Bookings.ListMine(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, "list bookings", err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListEventBookings - GET /api/events/:id/bookings
func (h *Handlers) ListEventBookings(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	bookings, err := h.services.Bookings.ListForEvent(c.Request.Context(), caller(c), eventID)
	if err != nil {
		respondError(c, "list event bookings", err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// CancelBooking - DELETE /api/bookings/:id
func (h *Handlers) CancelBooking(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	response, err := h.services.Bookings.Cancel(c.Request.Context(), caller(c), bookingID)
	if err != nil {
		respondError(c, "cancel booking", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

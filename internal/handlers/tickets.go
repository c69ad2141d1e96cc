package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IssueTicket - POST /api/bookings/:id/ticket
func (h *Handlers) IssueTicket(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ticket, err := h.services.Tickets.Issue(c.Request.Context(), caller(c), bookingID)
	if err != nil {
		respondError(c, "issue ticket", err)
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// GetBookingTicket - GET /api/bookings/:id/ticket
func (h *Handlers) GetBookingTicket(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.services.Tickets.RetrieveByBooking(c.Request.Context(), bookingID, caller(c).Email)
	if err != nil {
		respondError(c, "get ticket", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetTicket - GET /api/tickets/:number
func (h *Handlers) GetTicket(c *gin.Context) {
	view, err := h.services.Tickets.Retrieve(c.Request.Context(), c.Param("number"), caller(c).Email)
	if err != nil {
		respondError(c, "get ticket", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CheckInTicket - POST /api/tickets/:number/check-in
func (h *Handlers) CheckInTicket(c *gin.Context) {
	ticket, err := h.services.Tickets.CheckIn(c.Request.Context(), caller(c), c.Param("number"))
	if err != nil {
		respondError(c, "check in ticket", err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

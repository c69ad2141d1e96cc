package handlers

import (
	"net/http"

	"tickethub/internal/models"

	"github.com/gin-gonic/gin"
)

// JoinWaitlist - POST /api/events/:id/waitlist
func (h *Handlers) JoinWaitlist(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.JoinWaitlistRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	cl := caller(c)
	email := req.Email
	if email == "" {
		email = cl.Email
	}
	if models.NormalizeEmail(email) != cl.Email {
		if _, err := h.services.Events.Authorize(c.Request.Context(), cl, eventID); err != nil {
			respondError(c, "join waitlist", err)
			return
		}
	}

	entry, err := h.services.Waitlist.Enqueue(c.Request.Context(), eventID, email)
	if err != nil {
		respondError(c, "join waitlist", err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// ListEventWaitlist - GET /api/events/:id/waitlist
func (h *Handlers) ListEventWaitlist(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.services.Waitlist.ListForEvent(c.Request.Context(), caller(c), eventID)
	if err != nil {
		respondError(c, "list waitlist", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// WaitlistStats - GET /api/events/:id/waitlist/stats
func (h *Handlers) WaitlistStats(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := h.services.Waitlist.Stats(c.Request.Context(), caller(c), eventID)
	if err != nil {
		respondError(c, "get waitlist stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// PromoteNext - POST /api/events/:id/waitlist/promote
func (h *Handlers) PromoteNext(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.services.Events.Authorize(ctx, caller(c), eventID); err != nil {
		respondError(c, "promote waitlist entry", err)
		return
	}

	promotion, err := h.services.Waitlist.PromoteNext(ctx, eventID)
	if err != nil {
		respondError(c, "promote waitlist entry", err)
		return
	}

	c.JSON(http.StatusOK, models.PromoteResponse{Promoted: promotion})
}

// ListOrganizerWaitlist - GET /api/organizers/:id/waitlist
func (h *Handlers) ListOrganizerWaitlist(c *gin.Context) {
	organizerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.services.Waitlist.ListForOrganizer(c.Request.Context(), caller(c), organizerID)
	if err != nil {
		respondError(c, "list organizer waitlist", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// NotifyWaitlistEntry - POST /api/waitlist/:id/notify
func (h *Handlers) NotifyWaitlistEntry(c *gin.Context) {
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.services.Waitlist.MarkNotified(c.Request.Context(), caller(c), entryID)
	if err != nil {
		respondError(c, "mark waitlist entry notified", err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// WithdrawWaitlistEntry - DELETE /api/waitlist/:id
func (h *Handlers) WithdrawWaitlistEntry(c *gin.Context) {
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Waitlist.Withdraw(c.Request.Context(), caller(c), entryID); err != nil {
		respondError(c, "withdraw waitlist entry", err)
		return
	}

	c.Status(http.StatusNoContent)
}

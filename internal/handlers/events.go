package handlers

import (
	"net/http"

	"tickethub/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateEvent - POST /api/events
// Создает новое событие от имени организатора
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cl := caller(c)
	organizerID := req.OrganizerID
	if !cl.IsAdmin() {
		if cl.OrganizerID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "caller does not act for an organizer"})
			return
		}
		organizerID = *cl.OrganizerID
	}
	if organizerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organizer_id is required"})
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), organizerID, req.Title, *req.Capacity, req.StartsAt)
	if err != nil {
		respondError(c, "create event", err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, "get event", err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListOrganizerEvents - GET /api/organizers/:id/events
func (h *Handlers) ListOrganizerEvents(c *gin.Context) {
	organizerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	events, err := h.services.Events.ListByOrganizer(c.Request.Context(), organizerID)
	if err != nil {
		respondError(c, "list events", err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	c.JSON(http.StatusOK, events)
}

// ResizeEvent - PATCH /api/events/:id/capacity
// Changing capacity promotes waitlisted requesters into the added places.
func (h *Handlers) ResizeEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.ResizeCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Ledger.Resize(c.Request.Context(), caller(c), eventID, *req.Capacity)
	if err != nil {
		respondError(c, "resize event", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteOrganizer - DELETE /api/organizers/:id
// Soft-deletes the organizer and every user it owns.
func (h *Handlers) DeleteOrganizer(c *gin.Context) {
	organizerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.services.Organizers.DeleteOrganizer(c.Request.Context(), organizerID, caller(c).Role)
	if err != nil {
		respondError(c, "delete organizer", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamscout/internal/models"
)

// handleOutcome records a playback attempt result reported by the
// caller, feeding the reliability tracker.
func (h *Handler) handleOutcome(c *gin.Context) {
	var report models.OutcomeReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outcome report: " + err.Error()})
		return
	}

	h.services.Tracker.RecordOutcome(report.Provider, report.Source, report.Success, report.Reason)
	h.services.Logger.Debugf("[OutcomeHandler] recorded outcome - provider: %s, source: %s, success: %t",
		report.Provider, report.Source, report.Success)

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamscout/internal/constants"
	"streamscout/internal/models"
)

// handleManifest serves the service's own addon-compatible manifest.
func (h *Handler) handleManifest(c *gin.Context) {
	c.JSON(http.StatusOK, models.Manifest{
		ID:          constants.AddonID,
		Version:     constants.AddonVersion,
		Name:        constants.AddonName,
		Description: constants.AddonDescription,
		Resources:   []string{"stream"},
		Types:       []string{"movie", "series"},
		IDPrefixes:  []string{"tt"},
	})
}

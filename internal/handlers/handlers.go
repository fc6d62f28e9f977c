// Package handlers implements the HTTP surface of the discovery service.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamscout/internal/services"
)

// Handler handles HTTP requests for the discovery API.
type Handler struct {
	services *services.Container
}

// New creates a new Handler with the provided service container.
func New(container *services.Container) *Handler {
	return &Handler{services: container}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.handleHome)
	r.GET("/manifest.json", h.handleManifest)

	api := r.Group("/api")
	api.GET("/streams/:type/:id", h.handleStreams)
	api.POST("/outcome", h.handleOutcome)
	api.GET("/providers/health", h.handleProvidersHealth)
}

func (h *Handler) handleHome(c *gin.Context) {
	c.String(http.StatusOK, "StreamScout is running. See /manifest.json for addon metadata.")
}

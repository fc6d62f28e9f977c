package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"streamscout/internal/constants"
	"streamscout/internal/models"
)

var (
	externalIDRegex = regexp.MustCompile(`^tt\d+$`)
	episodeIDRegex  = regexp.MustCompile(`^(tt\d+):(\d+):(\d+)$`)
)

// handleStreams runs a discovery fan-out for one item and returns the
// per-provider breakdown plus the ranked candidates.
func (h *Handler) handleStreams(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout)
	defer cancel()

	mediaType := c.Param("type")
	if mediaType != "movie" && mediaType != "series" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be movie or series"})
		return
	}

	rawID := strings.TrimSuffix(c.Param("id"), ".json")
	req, ok := parseItemID(mediaType, rawID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must look like tt123 or tt123:1:2"})
		return
	}
	req.Force = c.Query("force") == "1" || c.Query("force") == "true"

	resp, err := h.services.Aggregator.Discover(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrNoStreams) {
			// Every provider failed; the breakdown still tells the caller why.
			c.JSON(http.StatusBadGateway, resp)
			return
		}
		h.services.Logger.Errorf("[StreamHandler] discovery failed for %s/%s: %v", mediaType, rawID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "discovery failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseItemID accepts a bare external id for movies and an
// id:season:episode triple for series episodes.
func parseItemID(mediaType, rawID string) (models.DiscoverRequest, bool) {
	if m := episodeIDRegex.FindStringSubmatch(rawID); m != nil {
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		return models.DiscoverRequest{Type: mediaType, ID: m[1], Season: season, Episode: episode}, true
	}
	if externalIDRegex.MatchString(rawID) {
		return models.DiscoverRequest{Type: mediaType, ID: rawID}, true
	}
	return models.DiscoverRequest{}, false
}

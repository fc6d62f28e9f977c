package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"streamscout/internal/reliability"
)

type providerHealth struct {
	Provider            string  `json:"provider"`
	Successes           int     `json:"successes"`
	Failures            int     `json:"failures"`
	ConsecutiveFailures int     `json:"consecutiveFailures"`
	CircuitOpen         bool    `json:"circuitOpen"`
	ReopensAt           string  `json:"reopensAt,omitempty"`
	Penalty             float64 `json:"penalty"`
	LastFailureReason   string  `json:"lastFailureReason,omitempty"`
	TrackedSources      int     `json:"trackedSources"`
}

// handleProvidersHealth exposes the reliability snapshot for
// diagnostics and dashboards.
func (h *Handler) handleProvidersHealth(c *gin.Context) {
	snapshot := h.services.Tracker.Snapshot()

	out := make([]providerHealth, 0, len(snapshot))
	for id, stats := range snapshot {
		out = append(out, h.healthOf(id, stats))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })

	c.JSON(http.StatusOK, gin.H{"providers": out})
}

func (h *Handler) healthOf(id string, stats reliability.ProviderStats) providerHealth {
	penalty, open := h.services.Tracker.PenaltyFor(id)
	ph := providerHealth{
		Provider:            id,
		Successes:           stats.Successes,
		Failures:            stats.Failures,
		ConsecutiveFailures: stats.ConsecutiveFailures,
		CircuitOpen:         open,
		Penalty:             penalty,
		LastFailureReason:   stats.LastFailureReason,
		TrackedSources:      len(stats.Sources),
	}
	if reopens := h.services.Tracker.BreakerExpiry(id); !reopens.IsZero() {
		ph.ReopensAt = reopens.UTC().Format(time.RFC3339)
	}
	return ph
}

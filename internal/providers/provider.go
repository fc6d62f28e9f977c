// Package providers contains the per-provider query builders and
// result normalizers that turn raw provider responses into canonical
// stream candidates.
package providers

import (
	"context"
	"fmt"

	"streamscout/internal/models"
)

// Class separates providers the aggregator waits for from the slower
// best-effort ones it only grants a grace period.
type Class int

const (
	// ClassMain providers are queried concurrently and always awaited.
	ClassMain Class = iota
	// ClassBestEffort providers are launched alongside the main group
	// but only waited on for a short grace period after it settles.
	ClassBestEffort
)

// Request is a resolved discovery request as seen by a provider.
type Request struct {
	Type    string
	ID      string
	Season  int
	Episode int

	// Title is the canonical title from the metadata resolver; may be
	// empty when resolution failed, in which case full-text providers
	// fall back to external-id query variants.
	Title string
	Year  int
}

// Key returns a stable cache key for the request.
func (r Request) Key() string {
	return fmt.Sprintf("%s:%s:%d:%d", r.Type, r.ID, r.Season, r.Episode)
}

// StreamID renders the request in addon stream-path form
// (id or id:season:episode).
func (r Request) StreamID() string {
	if r.Season > 0 && r.Episode > 0 {
		return fmt.Sprintf("%s:%d:%d", r.ID, r.Season, r.Episode)
	}
	return r.ID
}

// StreamProvider is a queryable source of stream candidates.
type StreamProvider interface {
	Descriptor() models.ProviderDescriptor
	Class() Class
	Fetch(ctx context.Context, req Request) ([]models.StreamCandidate, error)
}

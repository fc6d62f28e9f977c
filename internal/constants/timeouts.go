// Package constants defines timeout and interval values used throughout
// the application.
package constants

import "time"

const (
	// Request timeout for an entire discovery request
	RequestTimeout = 30 * time.Second

	// Per-provider call timeout inside the fan-out
	DefaultProviderTimeout = 8 * time.Second

	// Timeout for metadata-resolution API calls
	MetadataTimeout = 10 * time.Second

	// How long the aggregator waits for best-effort providers after the
	// main group has settled
	DefaultGracePeriod = 2 * time.Second

	// Debounce window for reliability snapshot writes
	PersistDebounce = 1 * time.Second

	// Base circuit-breaker cooldown, doubled per failure past the threshold
	DefaultBreakerCooldown = 2 * time.Minute

	// A failure within this window adds a recency penalty
	RecentFailureWindow = 10 * time.Minute

	// TTL for cached per-provider discovery results
	DefaultCacheTTL = 2 * time.Minute

	// TTL for cached addon manifests
	ManifestCacheTTL = 10 * time.Minute
)

// Package constants defines numerical limits and conversion factors.
package constants

const (
	// Circuit breaker
	DefaultBreakerThreshold = 5
	BreakerMaxDoublings     = 4

	// Minimum samples before the failure-ratio penalty applies
	DefaultMinProviderSamples = 8
	DefaultMinSourceSamples   = 3

	// Per-provider cap on tracked sources
	DefaultMaxTrackedSources = 50

	// Failure reasons are truncated to this length before storage
	MaxFailureReasonLen = 160

	// Indexer query variants per request
	MaxQueryVariants = 4

	// How many ranked candidates the local index remembers per item
	MaxLocalIndexEntries = 20

	// Conversion factors
	BytesToGB = 1024 * 1024 * 1024
)

// Package constants defines application-wide constants and default values.
package constants

const (
	// Service metadata
	AddonID          = "streamscout.addon"
	AddonVersion     = "0.4.1"
	AddonName        = "StreamScout"
	AddonDescription = "Reliability-aware multi-provider stream discovery and ranking"

	// Default configuration values
	DefaultPort     = "5000"
	DefaultLogLevel = "info"

	// Result cache settings
	DefaultCacheSize = 500

	// Rate limiting (requests per second / burst)
	TMDBRateLimit    = 20
	TMDBRateBurst    = 5
	IndexerRateLimit = 4
	IndexerRateBurst = 2
)

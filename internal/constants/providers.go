package constants

// Provider id constants for consistent usage across internal packages
const (
	ProviderLocal = "local"

	// Provider classes
	ClassMain       = "main"
	ClassBestEffort = "best-effort"
)

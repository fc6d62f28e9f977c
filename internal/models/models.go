// Package models defines data structures exchanged between the
// discovery engine, its providers and the HTTP surface.
package models

import "github.com/pkg/errors"

// ErrNoStreams is returned when every provider failed and not a single
// usable candidate was produced.
var ErrNoStreams = errors.New("no usable stream candidates from any provider")

// ProviderDescriptor identifies a configured provider and carries its
// routing information. Supplied by the source-configuration layer.
type ProviderDescriptor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	BaseURL     string   `json:"baseUrl"`
	ManifestURL string   `json:"manifestUrl,omitempty"`
	Active      bool     `json:"active"`
	Priority    int      `json:"priority"`
	Categories  []string `json:"categories,omitempty"`
}

// StreamCandidate is a single normalized, playable stream option.
// Exactly one of MagnetURI and DirectURL is set.
type StreamCandidate struct {
	Provider           string  `json:"provider"`
	DisplayName        string  `json:"displayName"`
	MagnetURI          string  `json:"magnetUri,omitempty"`
	DirectURL          string  `json:"directUrl,omitempty"`
	InfoHash           string  `json:"infoHash,omitempty"`
	Seeders            int     `json:"seeders"`
	Peers              int     `json:"peers"`
	Resolution         int     `json:"resolution"` // 480/720/1080/1440/2160, 0 = unknown
	SizeBytes          int64   `json:"sizeBytes"`
	FileExtension      string  `json:"fileExtension,omitempty"`
	WebFriendly        bool    `json:"webFriendly"`
	LikelyIncompatible bool    `json:"likelyIncompatible"`
	TrackerCount       int     `json:"trackerCount"`
	ReliabilityPenalty float64 `json:"reliabilityPenalty"`
	Score              float64 `json:"score"`
}

// SourceKey returns the fine-grained reliability identity of the
// candidate: the info hash when present, the direct URL otherwise.
func (c *StreamCandidate) SourceKey() string {
	if c.InfoHash != "" {
		return c.InfoHash
	}
	return c.DirectURL
}

// ProviderResult is the unit of partial failure: one per provider per
// discovery request.
type ProviderResult struct {
	Provider ProviderDescriptor `json:"provider"`
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Streams  []StreamCandidate  `json:"streams"`
	Cached   bool               `json:"cached,omitempty"`
}

// DiscoverRequest identifies the media item to discover streams for.
type DiscoverRequest struct {
	Type    string
	ID      string
	Season  int
	Episode int
	Force   bool // bypass result caches
}

// Resolved is the normalized identity handed back by the metadata
// resolution collaborator.
type Resolved struct {
	Type  string `json:"resolvedType"`
	ID    string `json:"resolvedItemId"`
	Title string `json:"title,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// DiscoverResponse is the full outcome of one discovery request: the
// per-provider ok/error breakdown plus the ranked candidate list.
type DiscoverResponse struct {
	ResolvedType string            `json:"resolvedType"`
	ResolvedID   string            `json:"resolvedItemId"`
	Results      []ProviderResult  `json:"results"`
	Candidates   []StreamCandidate `json:"rankedCandidates"`
}

// OutcomeReport is the playback feedback signal for a specific
// (provider, source) pair.
type OutcomeReport struct {
	Provider string `json:"provider" binding:"required"`
	Source   string `json:"source"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

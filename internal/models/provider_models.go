// Raw payload shapes returned by the provider APIs.
package models

// IndexerRelease is one search result from a Torznab-style JSON indexer
// aggregation endpoint. Size is a string because several indexer
// backends report it as either raw bytes or a human-readable figure.
type IndexerRelease struct {
	Title    string   `json:"title"`
	GUID     string   `json:"guid"`
	InfoHash string   `json:"info_hash"`
	Magnet   string   `json:"magnet_uri"`
	Link     string   `json:"link"`
	Size     string   `json:"size"`
	Seeders  int      `json:"seeders"`
	Peers    int      `json:"peers"`
	Trackers []string `json:"trackers,omitempty"`
}

// IndexerResponse is the envelope of an indexer search call.
type IndexerResponse struct {
	Results []IndexerRelease `json:"results"`
}

// AddonStream is a single stream entry from a Stremio-style addon.
type AddonStream struct {
	Name          string   `json:"name,omitempty"`
	Title         string   `json:"title,omitempty"`
	URL           string   `json:"url,omitempty"`
	InfoHash      string   `json:"infoHash,omitempty"`
	FileIdx       int      `json:"fileIdx,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	BehaviorHints struct {
		Filename  string `json:"filename,omitempty"`
		VideoSize int64  `json:"videoSize,omitempty"`
	} `json:"behaviorHints,omitempty"`
}

// AddonStreamResponse is the envelope of an addon stream call.
type AddonStreamResponse struct {
	Streams []AddonStream `json:"streams"`
}

// AddonManifest is the discovery document published by an addon.
type AddonManifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Resources   []string `json:"resources,omitempty"`
	Types       []string `json:"types,omitempty"`
}

// Manifest describes this service to addon-compatible clients.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	IDPrefixes  []string `json:"idPrefixes"`
}

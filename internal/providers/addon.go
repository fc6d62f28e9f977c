package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/webtor-io/lazymap"

	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/internal/parse"
	"streamscout/pkg/httputil"
	"streamscout/pkg/logger"
)

// Addon queries a Stremio-style catalog/stream service over its
// deterministic REST path. It belongs to the main provider class.
type Addon struct {
	desc       models.ProviderDescriptor
	httpClient *http.Client
	manifests  *lazymap.LazyMap[*models.AddonManifest]
	logger     logger.Logger
}

func NewAddon(desc models.ProviderDescriptor, log logger.Logger) *Addon {
	return &Addon{
		desc:       desc,
		httpClient: httputil.NewHTTPClient(0),
		manifests: lazymap.New[*models.AddonManifest](&lazymap.Config{
			Expire:      constants.ManifestCacheTTL,
			ErrorExpire: 10 * time.Second,
		}),
		logger: log,
	}
}

func (p *Addon) Descriptor() models.ProviderDescriptor { return p.desc }

func (p *Addon) Class() Class { return ClassMain }

// Fetch calls the addon's stream endpoint and normalizes the response.
func (p *Addon) Fetch(ctx context.Context, req Request) ([]models.StreamCandidate, error) {
	if err := p.checkManifest(ctx); err != nil {
		return nil, err
	}

	streamURL := fmt.Sprintf("%s/stream/%s/%s.json", p.desc.BaseURL, req.Type, req.StreamID())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build addon request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "addon call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("addon returned status %d", resp.StatusCode)
	}

	var payload models.AddonStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode addon response")
	}

	var candidates []models.StreamCandidate
	for _, stream := range payload.Streams {
		if cand, ok := p.normalize(stream); ok {
			candidates = append(candidates, cand)
		}
	}
	p.logger.Debugf("[%s] stream call completed - %d of %d entries usable",
		p.desc.ID, len(candidates), len(payload.Streams))
	return candidates, nil
}

// checkManifest fetches and caches the addon's manifest; the fetch is
// deduplicated across concurrent requests by the lazymap.
func (p *Addon) checkManifest(ctx context.Context) error {
	if p.desc.ManifestURL == "" {
		return nil
	}
	manifest, err := p.manifests.Get(p.desc.ManifestURL, func() (*models.AddonManifest, error) {
		return p.fetchManifest(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "addon manifest unavailable")
	}
	for _, res := range manifest.Resources {
		if res == "stream" {
			return nil
		}
	}
	return errors.Errorf("addon %q does not serve streams", manifest.Name)
}

func (p *Addon) fetchManifest(ctx context.Context) (*models.AddonManifest, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.desc.ManifestURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("manifest returned status %d", resp.StatusCode)
	}

	var manifest models.AddonManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, err
	}
	p.logger.Debugf("[%s] manifest loaded - %s v%s", p.desc.ID, manifest.Name, manifest.Version)
	return &manifest, nil
}

// normalize maps an addon stream entry onto the canonical candidate
// shape. Entries with neither an info hash nor a direct URL are
// discarded.
func (p *Addon) normalize(stream models.AddonStream) (models.StreamCandidate, bool) {
	hash := stream.InfoHash
	if hash == "" {
		hash = parse.ExtractInfoHash(stream.URL)
	}
	if hash == "" && stream.URL == "" {
		return models.StreamCandidate{}, false
	}

	display := stream.BehaviorHints.Filename
	if display == "" {
		display = stream.Title
	}
	if display == "" {
		display = stream.Name
	}

	// Addons rarely expose structured metadata; most of it rides along
	// inside the free-text title.
	text := stream.Name + " " + stream.Title + " " + stream.BehaviorHints.Filename

	size := stream.BehaviorHints.VideoSize
	if size == 0 {
		size = parse.SizeFromText(text)
	}

	magnet := ""
	directURL := stream.URL
	if hash != "" && directURL == "" {
		magnet = fmt.Sprintf("magnet:?xt=urn:btih:%s", hash)
	}

	ext := parse.FileExtension(stream.BehaviorHints.Filename)
	if ext == "" {
		ext = parse.FileExtension(display)
	}
	if ext == "" {
		ext = parse.FileExtension(directURL)
	}

	cand := models.StreamCandidate{
		Provider:           p.desc.ID,
		DisplayName:        display,
		MagnetURI:          magnet,
		DirectURL:          directURL,
		InfoHash:           hash,
		Seeders:            parse.SeedersFromText(text),
		Resolution:         parse.ResolutionBucket(text),
		SizeBytes:          size,
		FileExtension:      ext,
		WebFriendly:        parse.IsWebFriendly(ext),
		LikelyIncompatible: parse.IsLikelyIncompatible(ext),
		TrackerCount:       len(stream.Sources),
	}
	return cand, true
}

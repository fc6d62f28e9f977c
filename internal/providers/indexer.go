package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/internal/parse"
	"streamscout/pkg/httputil"
	"streamscout/pkg/logger"
	"streamscout/pkg/ratelimiter"
)

// Indexer queries a Torznab-style JSON aggregation endpoint with
// several query variants per request. It belongs to the best-effort
// class: the aggregator only grants it a grace period after the main
// provider group has settled.
type Indexer struct {
	desc        models.ProviderDescriptor
	httpClient  *http.Client
	rateLimiter *ratelimiter.TokenBucket
	logger      logger.Logger
}

func NewIndexer(desc models.ProviderDescriptor, log logger.Logger) *Indexer {
	return &Indexer{
		desc:        desc,
		httpClient:  httputil.NewHTTPClient(0),
		rateLimiter: ratelimiter.NewTokenBucket(constants.IndexerRateLimit, constants.IndexerRateBurst),
		logger:      log,
	}
}

func (p *Indexer) Descriptor() models.ProviderDescriptor { return p.desc }

func (p *Indexer) Class() Class { return ClassBestEffort }

// Fetch runs every query variant against the indexer and merges the
// normalized results, deduplicating by info hash across variants.
func (p *Indexer) Fetch(ctx context.Context, req Request) ([]models.StreamCandidate, error) {
	queries := BuildIndexerQueries(req.Title, req.Season, req.Episode, req.ID)
	if len(queries) == 0 {
		return nil, errors.New("no usable query variants")
	}

	var candidates []models.StreamCandidate
	seen := make(map[string]bool)
	var lastErr error

	for _, query := range queries {
		if err := p.rateLimiter.WaitContext(ctx); err != nil {
			// Variants already collected still count as a result.
			if len(candidates) > 0 {
				break
			}
			return nil, err
		}

		releases, err := p.search(ctx, query)
		if err != nil {
			p.logger.Debugf("[%s] query variant failed - query: %q, error: %v", p.desc.ID, query, err)
			lastErr = err
			continue
		}

		for _, release := range releases {
			cand, ok := p.normalize(release)
			if !ok {
				continue
			}
			key := cand.SourceKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, cand)
		}
	}

	if len(candidates) == 0 && lastErr != nil {
		return nil, lastErr
	}
	p.logger.Debugf("[%s] search completed - %d candidates from %d query variants",
		p.desc.ID, len(candidates), len(queries))
	return candidates, nil
}

func (p *Indexer) search(ctx context.Context, query string) ([]models.IndexerRelease, error) {
	apiURL := fmt.Sprintf("%s/api/v2.0/indexers/all/results?query=%s",
		p.desc.BaseURL, url.QueryEscape(query))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build indexer request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "indexer call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("indexer returned status %d", resp.StatusCode)
	}

	var payload models.IndexerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode indexer response")
	}
	return payload.Results, nil
}

// normalize maps a raw indexer release onto the canonical candidate
// shape. A release with no extractable hash and no usable link is
// discarded.
func (p *Indexer) normalize(release models.IndexerRelease) (models.StreamCandidate, bool) {
	hash := release.InfoHash
	if hash == "" {
		hash = parse.ExtractInfoHash(release.Magnet)
	}
	if hash == "" {
		hash = parse.ExtractInfoHash(release.GUID)
	}
	if hash == "" {
		hash = parse.ExtractInfoHash(release.Link)
	}

	magnet := release.Magnet
	directURL := ""
	switch {
	case hash != "" && magnet == "":
		magnet = fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=%s", hash, url.QueryEscape(release.Title))
	case hash == "" && release.Link != "":
		directURL = release.Link
	case hash == "":
		return models.StreamCandidate{}, false
	}

	ext := parse.FileExtension(release.Title)
	cand := models.StreamCandidate{
		Provider:           p.desc.ID,
		DisplayName:        release.Title,
		MagnetURI:          magnet,
		DirectURL:          directURL,
		InfoHash:           hash,
		Seeders:            release.Seeders,
		Peers:              release.Peers,
		Resolution:         parse.ResolutionBucket(release.Title),
		SizeBytes:          parse.SizeToBytes(release.Size),
		FileExtension:      ext,
		WebFriendly:        parse.IsWebFriendly(ext),
		LikelyIncompatible: parse.IsLikelyIncompatible(ext),
		TrackerCount:       len(release.Trackers) + parse.TrackerCount(magnet),
	}
	return cand, true
}

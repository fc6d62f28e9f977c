package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"streamscout/internal/cache"
	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/pkg/httputil"
	"streamscout/pkg/logger"
	"streamscout/pkg/ratelimiter"
)

// TMDB resolves external (IMDb) ids into a normalized media type,
// canonical title and release year via TMDB's find endpoint.
type TMDB struct {
	apiKey      string
	cache       *cache.LRUCache
	rateLimiter *ratelimiter.TokenBucket
	httpClient  *http.Client
	logger      logger.Logger
}

func NewTMDB(apiKey string, resultCache *cache.LRUCache, log logger.Logger) *TMDB {
	return &TMDB{
		apiKey:      apiKey,
		cache:       resultCache,
		rateLimiter: ratelimiter.NewTokenBucket(constants.TMDBRateLimit, constants.TMDBRateBurst),
		httpClient:  httputil.NewHTTPClient(constants.MetadataTimeout),
		logger:      log,
	}
}

// Resolve looks up itemID and returns the canonical identity. Without
// an API key, or when itemID is not an IMDb id, it degrades to an
// identity resolution so providers that only need the raw id keep
// working.
func (t *TMDB) Resolve(ctx context.Context, mediaType, itemID string, season, episode int) (models.Resolved, error) {
	if t.apiKey == "" || !strings.HasPrefix(itemID, "tt") {
		return models.Resolved{Type: mediaType, ID: itemID}, nil
	}

	cacheKey := "tmdb_" + itemID
	if data, found := t.cache.Get(cacheKey); found {
		return data.(models.Resolved), nil
	}

	if err := t.rateLimiter.WaitContext(ctx); err != nil {
		return models.Resolved{}, err
	}

	url := fmt.Sprintf("https://api.themoviedb.org/3/find/%s?api_key=%s&external_source=imdb_id",
		itemID, t.apiKey)

	t.logger.Debugf("[TMDB] resolving %s", itemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Resolved{}, fmt.Errorf("failed to build TMDB request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return models.Resolved{}, fmt.Errorf("failed to fetch TMDB data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Resolved{}, fmt.Errorf("TMDB API error: status %d", resp.StatusCode)
	}

	var findResp models.TMDBFindResponse
	if err := json.NewDecoder(resp.Body).Decode(&findResp); err != nil {
		return models.Resolved{}, fmt.Errorf("failed to decode TMDB response: %w", err)
	}

	resolved, err := resolvedFromFind(itemID, &findResp)
	if err != nil {
		return models.Resolved{}, err
	}

	t.cache.Set(cacheKey, resolved)
	return resolved, nil
}

func resolvedFromFind(itemID string, findResp *models.TMDBFindResponse) (models.Resolved, error) {
	switch {
	case len(findResp.MovieResults) > 0:
		m := findResp.MovieResults[0]
		title := m.OriginalTitle
		if title == "" {
			title = m.Title
		}
		return models.Resolved{Type: "movie", ID: itemID, Title: title, Year: yearOf(m.ReleaseDate)}, nil
	case len(findResp.TVResults) > 0:
		tv := findResp.TVResults[0]
		title := tv.OriginalName
		if title == "" {
			title = tv.Name
		}
		return models.Resolved{Type: "series", ID: itemID, Title: title, Year: yearOf(tv.FirstAirDate)}, nil
	default:
		return models.Resolved{}, fmt.Errorf("no results found for IMDb id %s", itemID)
	}
}

// yearOf extracts the year from a TMDB "YYYY-MM-DD" date.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

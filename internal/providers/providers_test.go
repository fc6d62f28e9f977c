package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamscout/internal/models"
	"streamscout/pkg/logger"
	"streamscout/pkg/ratelimiter"
)

const testHash = "d2474e86c95b19b8bcfdb92bc12c9d44667cfa36"

func TestIndexerFetchNormalizesAndDedups(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		// The same release comes back for every variant plus one
		// hashless, linkless entry that must be discarded.
		fmt.Fprintf(w, `{"results": [
			{"title": "Movie.2019.1080p.BluRay.mkv", "magnet_uri": "magnet:?xt=urn:btih:%s&tr=udp%%3A%%2F%%2Fa", "seeders": 40, "peers": 9, "size": "2147483648"},
			{"title": "Movie 2019 junk entry", "seeders": 5}
		]}`, testHash)
	}))
	defer srv.Close()

	idx := NewIndexer(models.ProviderDescriptor{ID: "idx", BaseURL: srv.URL, Active: true}, logger.New())
	candidates, err := idx.Fetch(context.Background(), Request{Type: "movie", ID: "tt100", Title: "Movie"})

	require.NoError(t, err)
	require.Len(t, candidates, 1, "identical releases across variants collapse, junk is dropped")
	assert.GreaterOrEqual(t, len(queries), 2, "multiple query variants expected")

	cand := candidates[0]
	assert.Equal(t, "idx", cand.Provider)
	assert.Equal(t, testHash, cand.InfoHash)
	assert.Equal(t, 40, cand.Seeders)
	assert.Equal(t, 1080, cand.Resolution)
	assert.Equal(t, int64(2147483648), cand.SizeBytes)
	assert.Equal(t, ".mkv", cand.FileExtension)
	assert.Equal(t, 1, cand.TrackerCount)
}

func TestIndexerSynthesizesMagnetFromHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{"title": "Movie 720p", "info_hash": "%s", "seeders": 3}]}`, testHash)
	}))
	defer srv.Close()

	idx := NewIndexer(models.ProviderDescriptor{ID: "idx", BaseURL: srv.URL, Active: true}, logger.New())
	candidates, err := idx.Fetch(context.Background(), Request{Type: "movie", ID: "tt100"})

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].MagnetURI, "magnet:?xt=urn:btih:"+testHash)
}

func TestIndexerKeepsCandidatesWhenCancelledMidVariants(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{"title": "Movie 1080p", "info_hash": "%s", "seeders": 7}]}`, testHash)
		time.AfterFunc(100*time.Millisecond, cancel)
	}))
	defer srv.Close()

	idx := NewIndexer(models.ProviderDescriptor{ID: "idx", BaseURL: srv.URL, Active: true}, logger.New())
	// A drained single-token bucket makes the second variant block on
	// the limiter until the context is cancelled.
	idx.rateLimiter = ratelimiter.NewTokenBucket(1, 1)

	candidates, err := idx.Fetch(ctx, Request{Type: "movie", ID: "tt100", Title: "Movie"})

	require.NoError(t, err, "cancellation after a successful variant must not discard its candidates")
	require.Len(t, candidates, 1)
	assert.Equal(t, testHash, candidates[0].InfoHash)
}

func TestIndexerReturnsErrorOnlyWhenNothingFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	idx := NewIndexer(models.ProviderDescriptor{ID: "idx", BaseURL: srv.URL, Active: true}, logger.New())
	_, err := idx.Fetch(context.Background(), Request{Type: "movie", ID: "tt100", Title: "Movie"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestAddonFetchNormalizesStreams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "org.example", "version": "1.0.0", "name": "Example", "resources": ["stream"]}`)
	})
	mux.HandleFunc("/stream/series/tt100:2:5.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"streams": [
			{"name": "Example 1080p", "title": "Show S02E05 1080p\n👤 33 💾 1.20 GB", "infoHash": "%s", "behaviorHints": {"filename": "Show.S02E05.1080p.mkv"}},
			{"name": "Web", "title": "Show S02E05 720p", "url": "https://cdn.example/video.mp4", "behaviorHints": {"videoSize": 900000000}},
			{"name": "Broken", "title": "no hash, no url"}
		]}`, testHash)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	addon := NewAddon(models.ProviderDescriptor{
		ID: "ex", BaseURL: srv.URL, ManifestURL: srv.URL + "/manifest.json", Active: true,
	}, logger.New())

	candidates, err := addon.Fetch(context.Background(), Request{Type: "series", ID: "tt100", Season: 2, Episode: 5})

	require.NoError(t, err)
	require.Len(t, candidates, 2)

	torrent := candidates[0]
	assert.Equal(t, "Show.S02E05.1080p.mkv", torrent.DisplayName, "filename hint wins as display name")
	assert.Equal(t, testHash, torrent.InfoHash)
	assert.Equal(t, 33, torrent.Seeders)
	assert.Equal(t, 1080, torrent.Resolution)
	assert.NotZero(t, torrent.SizeBytes, "size parsed from the free-text title")

	direct := candidates[1]
	assert.Equal(t, "https://cdn.example/video.mp4", direct.DirectURL)
	assert.Equal(t, int64(900000000), direct.SizeBytes)
	assert.True(t, direct.WebFriendly)
}

func TestAddonRejectsManifestWithoutStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "org.example", "version": "1.0.0", "name": "CatalogOnly", "resources": ["catalog"]}`)
	}))
	defer srv.Close()

	addon := NewAddon(models.ProviderDescriptor{
		ID: "ex", BaseURL: srv.URL, ManifestURL: srv.URL, Active: true,
	}, logger.New())

	_, err := addon.Fetch(context.Background(), Request{Type: "movie", ID: "tt100"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not serve streams")
}

func TestAddonSkipsManifestCheckWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"streams": []}`)
	}))
	defer srv.Close()

	addon := NewAddon(models.ProviderDescriptor{ID: "ex", BaseURL: srv.URL, Active: true}, logger.New())
	candidates, err := addon.Fetch(context.Background(), Request{Type: "movie", ID: "tt100"})

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

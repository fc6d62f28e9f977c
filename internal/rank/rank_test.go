package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamscout/internal/models"
)

func TestDeduplicateByInfoHash(t *testing.T) {
	candidates := []models.StreamCandidate{
		{Provider: "a", DisplayName: "Movie 1080p", InfoHash: "abc", Seeders: 10},
		{Provider: "b", DisplayName: "Movie.1080p.BluRay", InfoHash: "abc", Seeders: 50},
		{Provider: "a", DisplayName: "Movie 720p", InfoHash: "def", Seeders: 5},
	}

	out := Deduplicate(candidates)
	require.Len(t, out, 2)
	assert.Equal(t, 50, out[0].Seeders, "higher-seeded duplicate must survive")
	assert.Equal(t, "def", out[1].InfoHash)
}

func TestDeduplicateByTitleResolutionSize(t *testing.T) {
	// No info hash: candidates collapse on normalized title + resolution
	// + size rounded to 100 MB.
	candidates := []models.StreamCandidate{
		{Provider: "a", DisplayName: "Les Misérables 1080p", Resolution: 1080, SizeBytes: 4_000_000_000, Seeders: 3},
		{Provider: "b", DisplayName: "les miserables 1080p", Resolution: 1080, SizeBytes: 4_050_000_000, Seeders: 8},
		{Provider: "b", DisplayName: "les miserables 1080p", Resolution: 720, SizeBytes: 4_000_000_000, Seeders: 1},
	}

	out := Deduplicate(candidates)
	require.Len(t, out, 2)
	assert.Equal(t, 8, out[0].Seeders)
}

func TestDeduplicateKeepsFirstSeenOrder(t *testing.T) {
	candidates := []models.StreamCandidate{
		{InfoHash: "x", Seeders: 1},
		{InfoHash: "y", Seeders: 100},
		{InfoHash: "x", Seeders: 2},
	}

	out := Deduplicate(candidates)
	require.Len(t, out, 2)
	assert.Equal(t, "x", out[0].InfoHash)
	assert.Equal(t, 2, out[0].Seeders)
}

func TestScoreMonotonicInSeeders(t *testing.T) {
	low := models.StreamCandidate{Seeders: 5, Resolution: 1080}
	high := models.StreamCandidate{Seeders: 500, Resolution: 1080}

	assert.Greater(t, Score(&high, Context{}), Score(&low, Context{}))
}

func TestScoreResolutionOrdering(t *testing.T) {
	prev := Score(&models.StreamCandidate{Seeders: 10, Resolution: 0}, Context{})
	for _, res := range []int{480, 720, 1080, 1440, 2160} {
		s := Score(&models.StreamCandidate{Seeders: 10, Resolution: res}, Context{})
		assert.Greater(t, s, prev, "resolution %d must outscore the previous bucket", res)
		prev = s
	}
}

func TestScoreReliabilityPenaltySubtracts(t *testing.T) {
	clean := models.StreamCandidate{Seeders: 50, Resolution: 1080}
	flaky := clean
	flaky.ReliabilityPenalty = 25

	assert.Equal(t, Score(&clean, Context{})-25, Score(&flaky, Context{}))
}

func TestEpisodeTierClassification(t *testing.T) {
	ctx := Context{Season: 2, Episode: 5}

	match := models.StreamCandidate{DisplayName: "Show S02E05 1080p"}
	pack := models.StreamCandidate{DisplayName: "Show Season 2 Complete 1080p"}
	unmarked := models.StreamCandidate{DisplayName: "Show 1080p"}
	mismatch := models.StreamCandidate{DisplayName: "Show S01E03 1080p"}

	assert.Equal(t, tierExactMatch, episodeTier(&match, ctx))
	assert.Equal(t, tierExactMatch, episodeTier(&pack, ctx), "season pack counts as a match")
	assert.Equal(t, tierUnmarked, episodeTier(&unmarked, ctx))
	assert.Equal(t, tierContradicting, episodeTier(&mismatch, ctx))

	// Movie requests carry no episode, so every candidate sits in the
	// middle tier and score alone decides.
	assert.Equal(t, tierUnmarked, episodeTier(&mismatch, Context{}))
}

func TestRankEpisodeTiersOverrideScore(t *testing.T) {
	ctx := Context{Season: 2, Episode: 5}

	// A cold exact match must still beat hot unmarked packs, and a hot
	// wrong-episode release must still sink below unmarked candidates.
	candidates := []models.StreamCandidate{
		{DisplayName: "Show Complete 1080p", InfoHash: "bbb", Seeders: 20000, Resolution: 1080},
		{DisplayName: "Show S01E03 1080p", InfoHash: "ccc", Seeders: 20000, Resolution: 1080},
		{DisplayName: "Show S02E05 1080p", InfoHash: "aaa", Seeders: 0, Resolution: 1080},
	}

	out := Rank(candidates, ctx)
	require.Len(t, out, 3)
	assert.Equal(t, "aaa", out[0].InfoHash, "exact match ranks above all others")
	assert.Equal(t, "bbb", out[1].InfoHash)
	assert.Equal(t, "ccc", out[2].InfoHash, "contradicting marker ranks below unmarked")
}

func TestRankScoreOrdersWithinTier(t *testing.T) {
	ctx := Context{Season: 2, Episode: 5}

	candidates := []models.StreamCandidate{
		{DisplayName: "Show S02E05 720p", InfoHash: "low", Seeders: 5, Resolution: 720},
		{DisplayName: "Show S02E05 1080p", InfoHash: "high", Seeders: 500, Resolution: 1080},
	}

	out := Rank(candidates, ctx)
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].InfoHash)
}

func TestScoreWebFriendlyAndIncompatible(t *testing.T) {
	base := models.StreamCandidate{Seeders: 10, Resolution: 1080}
	web := base
	web.WebFriendly = true
	iso := base
	iso.LikelyIncompatible = true

	assert.Greater(t, Score(&web, Context{}), Score(&base, Context{}))
	assert.Less(t, Score(&iso, Context{}), Score(&base, Context{}))
}

func TestRankDeterministicTieBreaks(t *testing.T) {
	candidates := []models.StreamCandidate{
		{DisplayName: "B Movie", InfoHash: "bbb", Seeders: 10, Resolution: 1080},
		{DisplayName: "A Movie", InfoHash: "aaa", Seeders: 10, Resolution: 1080},
	}

	first := Rank(append([]models.StreamCandidate(nil), candidates...), Context{})
	second := Rank([]models.StreamCandidate{candidates[1], candidates[0]}, Context{})

	require.Len(t, first, 2)
	assert.Equal(t, first[0].InfoHash, second[0].InfoHash, "rank must not depend on input order")
	assert.Equal(t, "aaa", first[0].InfoHash, "equal scores break on display name")
}

func TestRankInterleaveAlternatesProviders(t *testing.T) {
	candidates := []models.StreamCandidate{
		{Provider: "a", DisplayName: "a1", InfoHash: "1", Seeders: 100, Resolution: 1080},
		{Provider: "a", DisplayName: "a2", InfoHash: "2", Seeders: 90, Resolution: 1080},
		{Provider: "a", DisplayName: "a3", InfoHash: "3", Seeders: 80, Resolution: 1080},
		{Provider: "b", DisplayName: "b1", InfoHash: "4", Seeders: 10, Resolution: 720},
	}

	out := Rank(candidates, Context{Interleave: true})
	require.Len(t, out, 4)
	assert.Equal(t, "a", out[0].Provider)
	assert.Equal(t, "b", out[1].Provider, "second slot must rotate to the next provider")
	assert.Equal(t, "a2", out[2].DisplayName, "within-provider order preserved")
}

func TestRankProviderBonus(t *testing.T) {
	candidates := []models.StreamCandidate{
		{Provider: "plain", DisplayName: "x", InfoHash: "1", Seeders: 10, Resolution: 1080},
		{Provider: "favored", DisplayName: "y", InfoHash: "2", Seeders: 10, Resolution: 1080},
	}

	out := Rank(candidates, Context{ProviderBonus: map[string]float64{"favored": 3}})
	require.Len(t, out, 2)
	assert.Equal(t, "favored", out[0].Provider)
}

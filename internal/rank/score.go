package rank

import (
	"math"
	"sort"

	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/internal/parse"
)

// Scoring weights. Empirically tuned; the monotonic direction of each
// term is the contract, the coefficients are calibration.
const (
	seedWeight    = 9.0 // dominant positive term, log-damped
	peerWeight    = 1.5
	trackerWeight = 0.4
	trackerCap    = 10

	torrentOriginBonus  = 5.0
	webFriendlyBonus    = 6.0
	incompatiblePenalty = 12.0

	sizePenaltyPerGB = 0.35
)

// Episode tiers for series requests. Tier is the primary sort key: an
// exact season/episode match (or a matching season pack) always ranks
// above unmarked candidates, and a contradicting marker always ranks
// below them, no matter how the scores compare.
const (
	tierContradicting = 0
	tierUnmarked      = 1
	tierExactMatch    = 2
)

// resolutionPoints is monotonically non-decreasing in the bucket.
var resolutionPoints = map[int]float64{
	480:  4,
	720:  10,
	1080: 16,
	1440: 18,
	2160: 20,
}

// Context carries the request-side inputs to scoring.
type Context struct {
	Season  int
	Episode int

	// ProviderBonus is a flat per-provider score adjustment for
	// providers known to yield consistently better results.
	ProviderBonus map[string]float64

	// Interleave enables the provider-diversification pass over the
	// final ranked list.
	Interleave bool
}

// Score computes the composite score of a single candidate. The
// candidate's ReliabilityPenalty must already be populated.
func Score(c *models.StreamCandidate, ctx Context) float64 {
	score := seedWeight * math.Log2(1+float64(c.Seeders))
	score += peerWeight * math.Log2(1+float64(c.Peers))
	score += resolutionPoints[c.Resolution]

	trackers := c.TrackerCount
	if trackers > trackerCap {
		trackers = trackerCap
	}
	score += trackerWeight * float64(trackers)

	if c.MagnetURI != "" {
		score += torrentOriginBonus
	}
	if c.WebFriendly {
		score += webFriendlyBonus
	}
	if c.LikelyIncompatible {
		score -= incompatiblePenalty
	}

	score -= sizePenaltyPerGB * float64(c.SizeBytes) / constants.BytesToGB

	if ctx.ProviderBonus != nil {
		score += ctx.ProviderBonus[c.Provider]
	}

	score -= c.ReliabilityPenalty
	return score
}

// episodeTier classifies a candidate for a series request. Season packs
// for the requested season count as an exact match; candidates whose
// name carries no season/episode marker stay in the middle tier so they
// are never removed, only ordered below exact matches.
func episodeTier(c *models.StreamCandidate, ctx Context) int {
	if ctx.Season <= 0 || ctx.Episode <= 0 {
		return tierUnmarked
	}
	season, episode, ok := parse.ParseSeasonEpisode(c.DisplayName)
	if !ok {
		return tierUnmarked
	}
	if season == ctx.Season && (episode == ctx.Episode || episode == 0) {
		return tierExactMatch
	}
	return tierContradicting
}

// Rank deduplicates, scores and orders candidates. Episode tier is the
// primary key, score orders within a tier and the order is a pure
// function of the inputs: ties break on display name, then info hash.
func Rank(candidates []models.StreamCandidate, ctx Context) []models.StreamCandidate {
	deduped := Deduplicate(candidates)

	tiers := make([]int, len(deduped))
	for i := range deduped {
		deduped[i].Score = Score(&deduped[i], ctx)
		tiers[i] = episodeTier(&deduped[i], ctx)
	}

	idx := make([]int, len(deduped))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if tiers[i] != tiers[j] {
			return tiers[i] > tiers[j]
		}
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		if deduped[i].DisplayName != deduped[j].DisplayName {
			return deduped[i].DisplayName < deduped[j].DisplayName
		}
		return deduped[i].InfoHash < deduped[j].InfoHash
	})

	ranked := make([]models.StreamCandidate, len(deduped))
	rankedTiers := make([]int, len(deduped))
	for pos, i := range idx {
		ranked[pos] = deduped[i]
		rankedTiers[pos] = tiers[i]
	}

	if ctx.Interleave {
		// Diversification must not cross tier boundaries.
		start := 0
		for start < len(ranked) {
			end := start + 1
			for end < len(ranked) && rankedTiers[end] == rankedTiers[start] {
				end++
			}
			copy(ranked[start:end], interleaveByProvider(ranked[start:end]))
			start = end
		}
	}
	return ranked
}

// interleaveByProvider round-robins the ranked list across providers so
// a noisy provider cannot dominate the top purely on volume. Relative
// order within each provider is preserved.
func interleaveByProvider(ranked []models.StreamCandidate) []models.StreamCandidate {
	if len(ranked) < 2 {
		return ranked
	}

	var order []string
	queues := make(map[string][]models.StreamCandidate)
	for _, cand := range ranked {
		if _, ok := queues[cand.Provider]; !ok {
			order = append(order, cand.Provider)
		}
		queues[cand.Provider] = append(queues[cand.Provider], cand)
	}
	if len(order) < 2 {
		return ranked
	}

	out := make([]models.StreamCandidate, 0, len(ranked))
	for len(out) < len(ranked) {
		for _, provider := range order {
			queue := queues[provider]
			if len(queue) == 0 {
				continue
			}
			out = append(out, queue[0])
			queues[provider] = queue[1:]
		}
	}
	return out
}

// Package aggregate fans a discovery request out to all active,
// non-broken providers, collects partial results, and hands the merged
// candidate set to the ranking engine. No single provider failure ever
// fails the whole request.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"streamscout/internal/cache"
	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/internal/providers"
	"streamscout/internal/rank"
	"streamscout/internal/reliability"
	"streamscout/pkg/logger"
)

// MetadataResolver is the metadata-resolution collaborator: it turns a
// raw item reference into a normalized identity plus, when available, a
// canonical title for full-text search.
type MetadataResolver interface {
	Resolve(ctx context.Context, mediaType, itemID string, season, episode int) (models.Resolved, error)
}

// Options tunes the aggregator's timing and ranking behavior.
type Options struct {
	CallTimeout   time.Duration
	GracePeriod   time.Duration
	ProviderBonus map[string]float64
	Interleave    bool
}

func (o *Options) applyDefaults() {
	if o.CallTimeout <= 0 {
		o.CallTimeout = constants.DefaultProviderTimeout
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = constants.DefaultGracePeriod
	}
}

// Aggregator orchestrates discovery across the configured providers.
type Aggregator struct {
	providers []providers.StreamProvider
	local     *providers.LocalIndex
	resolver  MetadataResolver
	tracker   reliability.Tracker
	cache     *cache.LRUCache
	group     singleflight.Group
	logger    logger.Logger
	opts      Options
}

func New(provs []providers.StreamProvider, local *providers.LocalIndex, resolver MetadataResolver,
	tracker reliability.Tracker, resultCache *cache.LRUCache, opts Options, log logger.Logger) *Aggregator {
	opts.applyDefaults()
	return &Aggregator{
		providers: provs,
		local:     local,
		resolver:  resolver,
		tracker:   tracker,
		cache:     resultCache,
		opts:      opts,
		logger:    log,
	}
}

// Discover resolves the item, queries every eligible provider and
// returns the per-provider breakdown plus the ranked candidate list.
// Identical concurrent requests are collapsed into one fan-out.
func (a *Aggregator) Discover(ctx context.Context, req models.DiscoverRequest) (*models.DiscoverResponse, error) {
	resolved := a.resolve(ctx, req)

	preq := providers.Request{
		Type:    resolved.Type,
		ID:      resolved.ID,
		Season:  req.Season,
		Episode: req.Episode,
		Title:   resolved.Title,
		Year:    resolved.Year,
	}

	key := "discover_" + preq.Key()
	if req.Force {
		// Force refresh must not be collapsed into a cached in-flight call.
		return a.discover(ctx, preq, resolved, true)
	}

	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.discover(ctx, preq, resolved, false)
	})
	if v == nil {
		return nil, err
	}
	return v.(*models.DiscoverResponse), err
}

func (a *Aggregator) resolve(ctx context.Context, req models.DiscoverRequest) models.Resolved {
	resolved, err := a.resolver.Resolve(ctx, req.Type, req.ID, req.Season, req.Episode)
	if err != nil {
		// Degraded mode: providers that need only the external id still
		// work without a resolved title.
		a.logger.Warnf("[Aggregator] metadata resolution failed for %s/%s, continuing without title: %v",
			req.Type, req.ID, err)
		return models.Resolved{Type: req.Type, ID: req.ID}
	}
	return resolved
}

func (a *Aggregator) discover(ctx context.Context, preq providers.Request, resolved models.Resolved, force bool) (*models.DiscoverResponse, error) {
	start := time.Now()

	var (
		mu      sync.Mutex
		results []models.ProviderResult
	)

	// The local index is synchronous and merged first.
	if a.local != nil {
		streams := a.local.Lookup(preq)
		results = append(results, models.ProviderResult{
			Provider: a.local.Descriptor(),
			OK:       true,
			Streams:  streams,
		})
	}

	var wg sync.WaitGroup
	bestEffortPending := 0
	bestEffortCh := make(chan models.ProviderResult, len(a.providers))

	for _, p := range a.providers {
		desc := p.Descriptor()
		if !desc.Active {
			continue
		}

		// Circuit-open providers are skipped, not retried; the synthetic
		// result reports when the breaker reopens.
		if a.tracker.IsOpen(desc.ID) {
			results = append(results, a.circuitOpenResult(desc))
			continue
		}

		if p.Class() == providers.ClassBestEffort {
			bestEffortPending++
			go a.callDetached(p, preq, force, bestEffortCh)
			continue
		}

		wg.Add(1)
		go func(p providers.StreamProvider) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Errorf("[Aggregator] provider %s panic recovered: %v", p.Descriptor().ID, r)
				}
			}()
			res := a.call(ctx, p, preq, force)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(p)
	}

	// allSettled semantics: wait for every main-group call, discard none.
	wg.Wait()

	// Best-effort providers get a grace period after the main group has
	// settled; past it they are abandoned, not cancelled, so a late
	// completion still warms the result cache for the next request.
	if bestEffortPending > 0 {
		timer := time.NewTimer(a.opts.GracePeriod)
		for bestEffortPending > 0 {
			select {
			case res := <-bestEffortCh:
				bestEffortPending--
				results = append(results, res)
			case <-timer.C:
				a.logger.Debugf("[Aggregator] grace period elapsed - abandoning %d best-effort call(s)", bestEffortPending)
				bestEffortPending = 0
			}
		}
		timer.Stop()
	}

	// Stable output order regardless of completion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Provider.Priority != results[j].Provider.Priority {
			return results[i].Provider.Priority > results[j].Provider.Priority
		}
		return results[i].Provider.ID < results[j].Provider.ID
	})

	all := a.applyPenalties(results)

	ranked := rank.Rank(all, rank.Context{
		Season:        preq.Season,
		Episode:       preq.Episode,
		ProviderBonus: a.opts.ProviderBonus,
		Interleave:    a.opts.Interleave,
	})

	resp := &models.DiscoverResponse{
		ResolvedType: resolved.Type,
		ResolvedID:   resolved.ID,
		Results:      results,
		Candidates:   ranked,
	}

	a.logger.Infof("[Aggregator] discovery completed - item: %s/%s, providers: %d, candidates: %d, took: %v",
		resolved.Type, resolved.ID, len(results), len(ranked), time.Since(start).Round(time.Millisecond))

	if len(ranked) == 0 && !anyRemoteOK(results) {
		return resp, models.ErrNoStreams
	}

	if a.local != nil && len(ranked) > 0 {
		// Fire-and-forget: a failed index write never affects the response.
		go func(req providers.Request, top []models.StreamCandidate) {
			if err := a.local.Remember(req, top); err != nil {
				a.logger.Warnf("[Aggregator] failed to update local index: %v", err)
			}
		}(preq, ranked)
	}
	return resp, nil
}

// call runs one main-group provider with its individual timeout,
// serving from and feeding the per-provider result cache, and records
// the call outcome into the reliability tracker.
func (a *Aggregator) call(ctx context.Context, p providers.StreamProvider, preq providers.Request, force bool) models.ProviderResult {
	desc := p.Descriptor()
	cacheKey := "provider_" + desc.ID + "_" + preq.Key()

	if !force {
		if cached, found := a.cache.Get(cacheKey); found {
			streams := cached.([]models.StreamCandidate)
			a.logger.Debugf("[Aggregator] cache hit - provider: %s, key: %s, streams: %d", desc.ID, preq.Key(), len(streams))
			return models.ProviderResult{Provider: desc, OK: true, Streams: streams, Cached: true}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()

	streams, err := p.Fetch(callCtx, preq)
	if err != nil {
		a.tracker.RecordOutcome(desc.ID, "", false, err.Error())
		a.logger.Warnf("[Aggregator] provider call failed - provider: %s, error: %v", desc.ID, err)
		return models.ProviderResult{Provider: desc, OK: false, Error: err.Error(), Streams: []models.StreamCandidate{}}
	}

	a.tracker.RecordOutcome(desc.ID, "", true, "")
	a.cache.Set(cacheKey, streams)
	return models.ProviderResult{Provider: desc, OK: true, Streams: streams}
}

// callDetached runs a best-effort provider on its own timeout context,
// detached from the request so abandonment does not cancel it. The
// result channel is buffered, so a late send never blocks.
func (a *Aggregator) callDetached(p providers.StreamProvider, preq providers.Request, force bool, out chan<- models.ProviderResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorf("[Aggregator] best-effort provider %s panic recovered: %v", p.Descriptor().ID, r)
		}
	}()
	out <- a.call(context.Background(), p, preq, force)
}

func (a *Aggregator) circuitOpenResult(desc models.ProviderDescriptor) models.ProviderResult {
	reopen := "unknown"
	if stats, ok := a.tracker.Get(desc.ID); ok && stats.BreakerUntil > 0 {
		reopen = time.UnixMilli(stats.BreakerUntil).UTC().Format(time.RFC3339)
	}
	a.logger.Debugf("[Aggregator] skipping provider %s - circuit open until %s", desc.ID, reopen)
	return models.ProviderResult{
		Provider: desc,
		OK:       false,
		Error:    fmt.Sprintf("circuit breaker open until %s", reopen),
		Streams:  []models.StreamCandidate{},
	}
}

// applyPenalties runs every collected candidate through the penalty
// stage and returns the merged list.
func (a *Aggregator) applyPenalties(results []models.ProviderResult) []models.StreamCandidate {
	var all []models.StreamCandidate
	for i := range results {
		res := &results[i]
		if !res.OK {
			continue
		}
		for j := range res.Streams {
			c := &res.Streams[j]
			// Candidates served by the local index keep their original
			// provider identity, so penalties follow the candidate.
			providerID := c.Provider
			if providerID == "" {
				providerID = res.Provider.ID
			}
			provPenalty, _ := a.tracker.PenaltyFor(providerID)
			c.ReliabilityPenalty = provPenalty + a.tracker.SourcePenaltyFor(providerID, c.SourceKey())
		}
		all = append(all, res.Streams...)
	}
	return all
}

// anyRemoteOK reports whether at least one remote provider answered;
// the local index does not count.
func anyRemoteOK(results []models.ProviderResult) bool {
	for _, res := range results {
		if res.Provider.ID == constants.ProviderLocal {
			continue
		}
		if res.OK {
			return true
		}
	}
	return false
}

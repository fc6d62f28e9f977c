// Package reliability tracks per-provider and per-source outcome
// history, drives the circuit breaker and computes score penalties fed
// into ranking. The store is the only cross-request mutable state in
// the discovery engine besides the result caches.
package reliability

import (
	"sync"
	"time"

	"streamscout/internal/constants"
	"streamscout/pkg/logger"
)

// SourceStats tracks outcomes for a single source (info hash or URL)
// within a provider.
type SourceStats struct {
	Successes           int   `json:"successes"`
	Failures            int   `json:"failures"`
	ConsecutiveFailures int   `json:"consecutiveFailures"`
	LastSuccessAt       int64 `json:"lastSuccessAt"`
	LastFailureAt       int64 `json:"lastFailureAt"`
}

func (s SourceStats) lastActivity() int64 {
	if s.LastSuccessAt > s.LastFailureAt {
		return s.LastSuccessAt
	}
	return s.LastFailureAt
}

// ProviderStats tracks outcomes and breaker state for one provider.
type ProviderStats struct {
	Successes           int                    `json:"successes"`
	Failures            int                    `json:"failures"`
	ConsecutiveFailures int                    `json:"consecutiveFailures"`
	LastSuccessAt       int64                  `json:"lastSuccessAt"`
	LastFailureAt       int64                  `json:"lastFailureAt"`
	LastFailureReason   string                 `json:"lastFailureReason,omitempty"`
	BreakerUntil        int64                  `json:"breakerUntil"`
	Sources             map[string]SourceStats `json:"sources,omitempty"`
}

// Options configures thresholds and cooldowns. Zero values fall back to
// the defaults from the constants package.
type Options struct {
	FailureThreshold   int
	BaseCooldown       time.Duration
	MaxDoublings       int
	MinProviderSamples int
	MinSourceSamples   int
	MaxTrackedSources  int
	RecentWindow       time.Duration
	Path               string // reliability snapshot file; empty disables persistence

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func (o *Options) applyDefaults() {
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = constants.DefaultBreakerThreshold
	}
	if o.BaseCooldown <= 0 {
		o.BaseCooldown = constants.DefaultBreakerCooldown
	}
	if o.MaxDoublings <= 0 {
		o.MaxDoublings = constants.BreakerMaxDoublings
	}
	if o.MinProviderSamples <= 0 {
		o.MinProviderSamples = constants.DefaultMinProviderSamples
	}
	if o.MinSourceSamples <= 0 {
		o.MinSourceSamples = constants.DefaultMinSourceSamples
	}
	if o.MaxTrackedSources <= 0 {
		o.MaxTrackedSources = constants.DefaultMaxTrackedSources
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = constants.RecentFailureWindow
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Tracker is the mutation/query interface of the store, so it can be
// swapped for a test double.
type Tracker interface {
	RecordOutcome(providerID, sourceKey string, success bool, reason string)
	IsOpen(providerID string) bool
	PenaltyFor(providerID string) (penalty float64, open bool)
	SourcePenaltyFor(providerID, sourceKey string) float64
	Get(providerID string) (ProviderStats, bool)
}

// Store holds the reliability state for all providers.
type Store struct {
	mu        sync.RWMutex
	providers map[string]*ProviderStats
	opts      Options
	logger    logger.Logger
	loadedAt  int64

	persistMu    sync.Mutex
	persistTimer *time.Timer
}

var _ Tracker = (*Store)(nil)

// NewStore creates an empty store. Call LoadFromDisk to merge a
// previously persisted snapshot.
func NewStore(opts Options, log logger.Logger) *Store {
	opts.applyDefaults()
	return &Store{
		providers: make(map[string]*ProviderStats),
		opts:      opts,
		logger:    log,
		loadedAt:  opts.Clock().UnixMilli(),
	}
}

func (s *Store) nowMs() int64 {
	return s.opts.Clock().UnixMilli()
}

// RecordOutcome applies a success/failure observation for a provider
// and, when sourceKey is non-empty, the specific source within it. A
// persist is scheduled after every mutation.
func (s *Store) RecordOutcome(providerID, sourceKey string, success bool, reason string) {
	if providerID == "" {
		return
	}
	now := s.nowMs()

	s.mu.Lock()
	stats, ok := s.providers[providerID]
	if !ok {
		stats = &ProviderStats{}
		s.providers[providerID] = stats
	}

	if success {
		stats.Successes++
		stats.ConsecutiveFailures = 0
		stats.LastSuccessAt = now
		// An expired breaker is only cleared here, on observed success.
		if stats.BreakerUntil != 0 && stats.BreakerUntil <= now {
			stats.BreakerUntil = 0
		}
	} else {
		stats.Failures++
		stats.ConsecutiveFailures++
		stats.LastFailureAt = now
		stats.LastFailureReason = truncateReason(reason)

		if stats.ConsecutiveFailures >= s.opts.FailureThreshold {
			k := stats.ConsecutiveFailures - s.opts.FailureThreshold
			if k > s.opts.MaxDoublings {
				k = s.opts.MaxDoublings
			}
			until := now + (s.opts.BaseCooldown << k).Milliseconds()
			// Never shorten an already-open breaker.
			if until > stats.BreakerUntil {
				stats.BreakerUntil = until
			}
		}
	}

	if sourceKey != "" {
		s.recordSourceLocked(stats, sourceKey, success, now)
	}
	consecutive := stats.ConsecutiveFailures
	s.mu.Unlock()

	if !success {
		s.logger.Debugf("[Reliability] failure recorded - provider: %s, consecutive: %d, reason: %s",
			providerID, consecutive, truncateReason(reason))
	}

	s.SchedulePersist()
}

func (s *Store) recordSourceLocked(stats *ProviderStats, sourceKey string, success bool, now int64) {
	if stats.Sources == nil {
		stats.Sources = make(map[string]SourceStats)
	}
	src := stats.Sources[sourceKey]
	if success {
		src.Successes++
		src.ConsecutiveFailures = 0
		src.LastSuccessAt = now
	} else {
		src.Failures++
		src.ConsecutiveFailures++
		src.LastFailureAt = now
	}
	stats.Sources[sourceKey] = src

	for len(stats.Sources) > s.opts.MaxTrackedSources {
		evictOldestSource(stats.Sources)
	}
}

// evictOldestSource drops the entry with the oldest combined
// last-activity timestamp.
func evictOldestSource(sources map[string]SourceStats) {
	var oldestKey string
	var oldestAt int64 = -1
	for key, src := range sources {
		at := src.lastActivity()
		if oldestAt < 0 || at < oldestAt {
			oldestAt = at
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(sources, oldestKey)
	}
}

// IsOpen reports whether the provider's circuit breaker is currently
// open, meaning the provider must be skipped in the fan-out.
func (s *Store) IsOpen(providerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.providers[providerID]
	if !ok {
		return false
	}
	return stats.BreakerUntil > s.nowMs()
}

// Penalty weights. The shape of the formula (monotonic direction of
// every term) is the contract; the coefficients are tuning.
const (
	providerRatioWeight  = 30.0
	providerConsecWeight = 4.0
	providerConsecCap    = 5
	providerRecencyBonus = 5.0
	breakerOpenPenalty   = 50.0
	sourceRatioWeight    = 10.0
	sourceConsecWeight   = 2.0
	sourceConsecCap      = 3
	sourceRecencyBonus   = 2.0
)

// PenaltyFor computes the provider-level score penalty and whether the
// breaker is currently open. A provider with no recorded samples has a
// penalty of 0.
func (s *Store) PenaltyFor(providerID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.providers[providerID]
	if !ok {
		return 0, false
	}
	now := s.nowMs()

	penalty := 0.0
	total := stats.Successes + stats.Failures
	if total >= s.opts.MinProviderSamples {
		penalty += providerRatioWeight * float64(stats.Failures) / float64(total)
	}

	consec := stats.ConsecutiveFailures
	if consec > providerConsecCap {
		consec = providerConsecCap
	}
	penalty += providerConsecWeight * float64(consec)

	if stats.LastFailureAt > 0 && now-stats.LastFailureAt < s.opts.RecentWindow.Milliseconds() {
		penalty += providerRecencyBonus
	}

	open := stats.BreakerUntil > now
	if open {
		penalty += breakerOpenPenalty
	}
	return penalty, open
}

// SourcePenaltyFor computes the source-level penalty: same shape as the
// provider penalty at smaller magnitude, with a smaller minimum sample
// threshold since source samples are sparser.
func (s *Store) SourcePenaltyFor(providerID, sourceKey string) float64 {
	if sourceKey == "" {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.providers[providerID]
	if !ok || stats.Sources == nil {
		return 0
	}
	src, ok := stats.Sources[sourceKey]
	if !ok {
		return 0
	}
	now := s.nowMs()

	penalty := 0.0
	total := src.Successes + src.Failures
	if total >= s.opts.MinSourceSamples {
		penalty += sourceRatioWeight * float64(src.Failures) / float64(total)
	}

	consec := src.ConsecutiveFailures
	if consec > sourceConsecCap {
		consec = sourceConsecCap
	}
	penalty += sourceConsecWeight * float64(consec)

	if src.LastFailureAt > 0 && now-src.LastFailureAt < s.opts.RecentWindow.Milliseconds() {
		penalty += sourceRecencyBonus
	}
	return penalty
}

// Get returns a deep copy of the stats for a provider.
func (s *Store) Get(providerID string) (ProviderStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.providers[providerID]
	if !ok {
		return ProviderStats{}, false
	}
	return copyStats(stats), true
}

// Snapshot returns a deep copy of all provider stats.
func (s *Store) Snapshot() map[string]ProviderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ProviderStats, len(s.providers))
	for id, stats := range s.providers {
		out[id] = copyStats(stats)
	}
	return out
}

// BreakerExpiry returns the time at which the provider's breaker
// reopens, or the zero time when it is closed.
func (s *Store) BreakerExpiry(providerID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.providers[providerID]
	if !ok || stats.BreakerUntil <= s.nowMs() {
		return time.Time{}
	}
	return time.UnixMilli(stats.BreakerUntil)
}

func copyStats(stats *ProviderStats) ProviderStats {
	out := *stats
	if stats.Sources != nil {
		out.Sources = make(map[string]SourceStats, len(stats.Sources))
		for k, v := range stats.Sources {
			out.Sources[k] = v
		}
	}
	return out
}

func truncateReason(reason string) string {
	if len(reason) > constants.MaxFailureReasonLen {
		return reason[:constants.MaxFailureReasonLen]
	}
	return reason
}

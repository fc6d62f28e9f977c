package reliability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamscout/pkg/logger"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestStore(t *testing.T, opts Options) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts.Clock = clock.Now
	return NewStore(opts, logger.New()), clock
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	store, _ := newTestStore(t, Options{FailureThreshold: 3})

	store.RecordOutcome("prov", "", false, "timeout")
	store.RecordOutcome("prov", "", false, "timeout")
	assert.False(t, store.IsOpen("prov"), "breaker must stay closed below threshold")

	store.RecordOutcome("prov", "", false, "timeout")
	assert.True(t, store.IsOpen("prov"), "breaker must open at threshold")
}

func TestBreakerExpiresAfterCooldown(t *testing.T) {
	store, clock := newTestStore(t, Options{FailureThreshold: 2, BaseCooldown: time.Minute})

	store.RecordOutcome("prov", "", false, "503")
	store.RecordOutcome("prov", "", false, "503")
	require.True(t, store.IsOpen("prov"))

	clock.Advance(61 * time.Second)
	assert.False(t, store.IsOpen("prov"), "expired breaker must read as closed")

	// breakerUntil is only cleared on observed success
	stats, ok := store.Get("prov")
	require.True(t, ok)
	assert.NotZero(t, stats.BreakerUntil)

	store.RecordOutcome("prov", "", true, "")
	stats, _ = store.Get("prov")
	assert.Zero(t, stats.BreakerUntil)
	assert.Zero(t, stats.ConsecutiveFailures)
}

func TestBreakerCooldownDoublesAndCaps(t *testing.T) {
	store, _ := newTestStore(t, Options{
		FailureThreshold: 2,
		BaseCooldown:     time.Minute,
		MaxDoublings:     2,
	})

	var lastUntil int64
	// Failures past the threshold double the cooldown up to the cap;
	// breakerUntil must never move backwards.
	for i := 0; i < 8; i++ {
		store.RecordOutcome("prov", "", false, "down")
		stats, ok := store.Get("prov")
		require.True(t, ok)
		assert.GreaterOrEqual(t, stats.BreakerUntil, lastUntil)
		lastUntil = stats.BreakerUntil
	}

	expiry := store.BreakerExpiry("prov")
	require.False(t, expiry.IsZero())
	// 1min << 2 = 4min is the capped cooldown
	assert.Equal(t, 4*time.Minute, expiry.Sub(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestSuccessBeforeExpiryDoesNotCloseBreaker(t *testing.T) {
	store, clock := newTestStore(t, Options{FailureThreshold: 2, BaseCooldown: 10 * time.Minute})

	store.RecordOutcome("prov", "", false, "down")
	store.RecordOutcome("prov", "", false, "down")
	require.True(t, store.IsOpen("prov"))

	clock.Advance(time.Minute)
	store.RecordOutcome("prov", "", true, "")
	assert.True(t, store.IsOpen("prov"), "success before expiry must not close an open breaker")
}

func TestPenaltyUnknownProviderIsZero(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	penalty, open := store.PenaltyFor("ghost")
	assert.Zero(t, penalty)
	assert.False(t, open)
	assert.Zero(t, store.SourcePenaltyFor("ghost", "abc"))
}

func TestPenaltyGrowsWithFailures(t *testing.T) {
	store, _ := newTestStore(t, Options{FailureThreshold: 50, MinProviderSamples: 2})

	store.RecordOutcome("prov", "", false, "err")
	p1, _ := store.PenaltyFor("prov")
	store.RecordOutcome("prov", "", false, "err")
	p2, _ := store.PenaltyFor("prov")

	assert.Greater(t, p1, 0.0)
	assert.Greater(t, p2, p1, "penalty must grow with consecutive failures")
}

func TestPenaltyRatioTermMonotonicAtFixedConsecutive(t *testing.T) {
	// Both histories end in a success, holding ConsecutiveFailures at
	// zero and the recency bonus equal, so only the failure ratio
	// separates the two penalties.
	store, _ := newTestStore(t, Options{FailureThreshold: 50, MinProviderSamples: 10, RecentWindow: time.Minute})

	record := func(id string, failures, successes int) {
		for i := 0; i < failures; i++ {
			store.RecordOutcome(id, "", false, "err")
		}
		for i := 0; i < successes; i++ {
			store.RecordOutcome(id, "", true, "")
		}
	}
	record("steady", 2, 8)
	record("flaky", 5, 5)

	steady, ok := store.Get("steady")
	require.True(t, ok)
	flaky, _ := store.Get("flaky")
	require.Equal(t, steady.ConsecutiveFailures, flaky.ConsecutiveFailures)

	low, _ := store.PenaltyFor("steady")
	high, _ := store.PenaltyFor("flaky")
	assert.Greater(t, high, low, "higher failure ratio must cost more at equal consecutive failures")
	assert.InDelta(t, providerRatioWeight*(0.5-0.2), high-low, 1e-9)
}

func TestRatioTermNeedsMinimumSamples(t *testing.T) {
	store, clock := newTestStore(t, Options{FailureThreshold: 50, MinProviderSamples: 10, RecentWindow: time.Minute})

	store.RecordOutcome("prov", "", false, "err")
	clock.Advance(2 * time.Minute) // move past the recency window
	penalty, _ := store.PenaltyFor("prov")

	// Only the consecutive-failure term applies below the sample floor.
	assert.Equal(t, providerConsecWeight, penalty)
}

func TestOpenBreakerAddsPenalty(t *testing.T) {
	store, _ := newTestStore(t, Options{FailureThreshold: 2})

	store.RecordOutcome("prov", "", false, "down")
	closedPenalty, open := store.PenaltyFor("prov")
	require.False(t, open)

	store.RecordOutcome("prov", "", false, "down")
	openPenalty, open := store.PenaltyFor("prov")
	require.True(t, open)
	assert.GreaterOrEqual(t, openPenalty-closedPenalty, breakerOpenPenalty)
}

func TestSourcePenaltySmallerThanProvider(t *testing.T) {
	store, _ := newTestStore(t, Options{FailureThreshold: 50, MinProviderSamples: 3, MinSourceSamples: 3})

	for i := 0; i < 4; i++ {
		store.RecordOutcome("prov", "magnet-hash", false, "stalled")
	}

	provPenalty, _ := store.PenaltyFor("prov")
	srcPenalty := store.SourcePenaltyFor("prov", "magnet-hash")
	assert.Greater(t, srcPenalty, 0.0)
	assert.Less(t, srcPenalty, provPenalty)
}

func TestTrackedSourcesAreBounded(t *testing.T) {
	store, clock := newTestStore(t, Options{MaxTrackedSources: 5, FailureThreshold: 1000})

	for i := 0; i < 20; i++ {
		clock.Advance(time.Second)
		store.RecordOutcome("prov", string(rune('a'+i)), false, "err")
	}

	stats, ok := store.Get("prov")
	require.True(t, ok)
	assert.Len(t, stats.Sources, 5)
	// The most recent source must have survived the eviction.
	_, kept := stats.Sources[string(rune('a'+19))]
	assert.True(t, kept)
}

func TestFailureReasonTruncated(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	store.RecordOutcome("prov", "", false, string(long))

	stats, ok := store.Get("prov")
	require.True(t, ok)
	assert.LessOrEqual(t, len(stats.LastFailureReason), 160)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reliability.json")

	store, _ := newTestStore(t, Options{Path: path, FailureThreshold: 2})
	store.RecordOutcome("prov", "hash1", false, "timeout")
	store.RecordOutcome("prov", "hash1", false, "timeout")
	store.RecordOutcome("other", "", true, "")
	require.NoError(t, store.Flush())

	reloaded, _ := newTestStore(t, Options{Path: path, FailureThreshold: 2})
	reloaded.LoadFromDisk()

	stats, ok := reloaded.Get("prov")
	require.True(t, ok)
	assert.Equal(t, 2, stats.Failures)
	assert.Equal(t, 2, stats.ConsecutiveFailures)
	assert.Equal(t, "timeout", stats.LastFailureReason)
	assert.Contains(t, stats.Sources, "hash1")
	assert.True(t, reloaded.IsOpen("prov"), "breaker state must survive a restart")

	other, ok := reloaded.Get("other")
	require.True(t, ok)
	assert.Equal(t, 1, other.Successes)
}

func TestLoadCorruptSnapshotStaysEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reliability.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, _ := newTestStore(t, Options{Path: path})
	store.LoadFromDisk()

	assert.Empty(t, store.Snapshot())
}

func TestLoadNormalizesNegativeCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reliability.json")
	doc := `{"providers":{"prov":{"successes":-3,"failures":2,"consecutiveFailures":-1,"breakerUntil":-5}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, _ := newTestStore(t, Options{Path: path})
	store.LoadFromDisk()

	stats, ok := store.Get("prov")
	require.True(t, ok)
	assert.Zero(t, stats.Successes)
	assert.Equal(t, 2, stats.Failures)
	assert.Zero(t, stats.ConsecutiveFailures)
	assert.Zero(t, stats.BreakerUntil)
}

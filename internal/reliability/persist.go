package reliability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"streamscout/internal/constants"
)

// snapshotFile is the on-disk document. It is always written as a
// whole: temp file first, then an atomic rename over the canonical
// path, so a reader never observes a half-written file.
type snapshotFile struct {
	LoadedAt  int64                     `json:"loadedAt"`
	UpdatedAt int64                     `json:"updatedAt"`
	Providers map[string]*ProviderStats `json:"providers"`
}

// SchedulePersist queues a snapshot write. Bursts of outcome updates
// within the debounce window coalesce into a single write; the debounce
// also guarantees the file has exactly one concurrent writer.
func (s *Store) SchedulePersist() {
	if s.opts.Path == "" {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.persistTimer != nil {
		return // a write is already pending
	}
	s.persistTimer = time.AfterFunc(constants.PersistDebounce, func() {
		s.persistMu.Lock()
		s.persistTimer = nil
		s.persistMu.Unlock()

		if err := s.writeSnapshot(); err != nil {
			s.logger.Errorf("[Reliability] failed to persist snapshot: %v", err)
		}
	})
}

// Flush cancels any pending debounced write and writes the snapshot
// synchronously. Tests rely on this to avoid timing dependence.
func (s *Store) Flush() error {
	if s.opts.Path == "" {
		return nil
	}

	s.persistMu.Lock()
	if s.persistTimer != nil {
		s.persistTimer.Stop()
		s.persistTimer = nil
	}
	s.persistMu.Unlock()

	return s.writeSnapshot()
}

func (s *Store) writeSnapshot() error {
	s.mu.RLock()
	snap := snapshotFile{
		LoadedAt:  s.loadedAt,
		UpdatedAt: s.nowMs(),
		Providers: make(map[string]*ProviderStats, len(s.providers)),
	}
	for id, stats := range s.providers {
		c := copyStats(stats)
		snap.Providers[id] = &c
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal reliability snapshot")
	}

	dir := filepath.Dir(s.opts.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create snapshot directory")
	}

	tmp := s.opts.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write temp snapshot")
	}
	if err := os.Rename(tmp, s.opts.Path); err != nil {
		return errors.Wrap(err, "rename snapshot into place")
	}
	return nil
}

// LoadFromDisk merges a previously persisted snapshot into the store.
// A missing file is not an error; a corrupt file is logged and the
// store stays empty rather than failing startup.
func (s *Store) LoadFromDisk() {
	if s.opts.Path == "" {
		return
	}

	data, err := os.ReadFile(s.opts.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnf("[Reliability] failed to read snapshot %s: %v", s.opts.Path, err)
		}
		return
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warnf("[Reliability] corrupt snapshot %s, starting empty: %v", s.opts.Path, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, stats := range snap.Providers {
		if id == "" || stats == nil {
			continue
		}
		normalizeStats(stats)
		s.boundSourcesLocked(stats)
		s.providers[id] = stats
		count++
	}
	s.loadedAt = s.nowMs()
	s.logger.Infof("[Reliability] loaded snapshot - %d providers from %s", count, s.opts.Path)
}

// normalizeStats defaults missing or invalid numeric fields to 0 so a
// hand-edited or partially old-format file cannot poison the store.
func normalizeStats(stats *ProviderStats) {
	stats.Successes = clampNonNegative(stats.Successes)
	stats.Failures = clampNonNegative(stats.Failures)
	stats.ConsecutiveFailures = clampNonNegative(stats.ConsecutiveFailures)
	stats.LastSuccessAt = clampNonNegative64(stats.LastSuccessAt)
	stats.LastFailureAt = clampNonNegative64(stats.LastFailureAt)
	stats.BreakerUntil = clampNonNegative64(stats.BreakerUntil)
	stats.LastFailureReason = truncateReason(stats.LastFailureReason)

	for key, src := range stats.Sources {
		src.Successes = clampNonNegative(src.Successes)
		src.Failures = clampNonNegative(src.Failures)
		src.ConsecutiveFailures = clampNonNegative(src.ConsecutiveFailures)
		src.LastSuccessAt = clampNonNegative64(src.LastSuccessAt)
		src.LastFailureAt = clampNonNegative64(src.LastFailureAt)
		stats.Sources[key] = src
	}
}

func (s *Store) boundSourcesLocked(stats *ProviderStats) {
	for len(stats.Sources) > s.opts.MaxTrackedSources {
		evictOldestSource(stats.Sources)
	}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampNonNegative64(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

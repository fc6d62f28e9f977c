// Package services provides dependency injection wiring for application services.
package services

import (
	"streamscout/internal/aggregate"
	"streamscout/internal/cache"
	"streamscout/internal/config"
	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/internal/providers"
	"streamscout/internal/reliability"
	"streamscout/pkg/logger"
)

// Container holds all application services for dependency injection.
type Container struct {
	Aggregator *aggregate.Aggregator
	Tracker    *reliability.Store
	Resolver   aggregate.MetadataResolver
	Cache      *cache.LRUCache
	LocalIndex *providers.LocalIndex
	Config     *config.Config
	Logger     logger.Logger
}

// NewContainer builds the full service graph from configuration: the
// reliability store (with its persisted snapshot), the local index, the
// configured providers and the aggregator on top of them.
func NewContainer(cfg *config.Config, log logger.Logger) (*Container, error) {
	resultCache := cache.New(cfg.CacheSize, cfg.CacheTTL)

	tracker := reliability.NewStore(reliability.Options{
		FailureThreshold:   cfg.BreakerThreshold,
		BaseCooldown:       cfg.BreakerCooldown,
		MinProviderSamples: cfg.MinProviderSamples,
		MinSourceSamples:   cfg.MinSourceSamples,
		MaxTrackedSources:  cfg.MaxTrackedSources,
		Path:               cfg.ReliabilityPath,
	}, log)
	tracker.LoadFromDisk()

	local, err := providers.OpenLocalIndex(cfg.LocalIndexPath, log)
	if err != nil {
		// The index is an optimization; discovery works without it.
		log.Warnf("[Container] local index unavailable, continuing without it: %v", err)
		local = nil
	}

	provs, bonus := buildProviders(cfg, log)

	resolver := NewTMDB(cfg.TMDBAPIKey, resultCache, log)

	aggregator := aggregate.New(provs, local, resolver, tracker, resultCache, aggregate.Options{
		CallTimeout:   cfg.ProviderTimeout,
		GracePeriod:   cfg.GracePeriod,
		ProviderBonus: bonus,
		Interleave:    cfg.InterleaveProviders,
	}, log)

	return &Container{
		Aggregator: aggregator,
		Tracker:    tracker,
		Resolver:   resolver,
		Cache:      resultCache,
		LocalIndex: local,
		Config:     cfg,
		Logger:     log,
	}, nil
}

// buildProviders turns provider configs into concrete providers plus
// the per-provider ranking bonus map.
func buildProviders(cfg *config.Config, log logger.Logger) ([]providers.StreamProvider, map[string]float64) {
	provs := make([]providers.StreamProvider, 0, len(cfg.Providers))
	bonus := make(map[string]float64, len(cfg.Providers))

	for i := range cfg.Providers {
		pc := &cfg.Providers[i]
		desc := models.ProviderDescriptor{
			ID:          pc.ID,
			Name:        pc.Name,
			BaseURL:     pc.BaseURL,
			ManifestURL: pc.ManifestURL,
			Active:      pc.IsActive(),
			Priority:    pc.Priority,
			Categories:  pc.Categories,
		}
		if pc.QualityBonus != 0 {
			bonus[pc.ID] = pc.QualityBonus
		}

		switch pc.Class {
		case constants.ClassBestEffort:
			provs = append(provs, providers.NewIndexer(desc, log))
		default:
			provs = append(provs, providers.NewAddon(desc, log))
		}
	}
	return provs, bonus
}

// Close releases resources held by the container and flushes any
// pending reliability snapshot.
func (c *Container) Close() {
	if c.Tracker != nil {
		c.Tracker.Flush()
	}
	if c.LocalIndex != nil {
		if err := c.LocalIndex.Close(); err != nil {
			c.Logger.Warnf("[Container] failed to close local index: %v", err)
		}
	}
}

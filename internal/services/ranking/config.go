package ranking

import (
	"fmt"
	"time"
)

// Band maps similarities in [MinSimilarity, next band's MinSimilarity) to distances in [MinDistance, MaxDistance)
type Band struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	MinDistance   int     `yaml:"min_distance"`
	MaxDistance   int     `yaml:"max_distance"`
}

// Config holds the tuning of the similarity-to-distance transform and the caches
type Config struct {
	Bands []Band `yaml:"bands"`
	// Jitter is the modulus of the per-word tie-breaking offset. Each band
	// reserves this much head-room at its far end.
	Jitter int `yaml:"jitter"`

	RankCacheSize      int           `yaml:"rank_cache_size"`
	EmbeddingCacheSize int           `yaml:"embedding_cache_size"`
	ProviderTimeout    time.Duration `yaml:"provider_timeout"`
}

// DefaultConfig returns the default banding
func DefaultConfig() Config {
	return Config{
		Bands: []Band{
			{MinSimilarity: 0.95, MinDistance: 1, MaxDistance: 50},
			{MinSimilarity: 0.90, MinDistance: 50, MaxDistance: 200},
			{MinSimilarity: 0.80, MinDistance: 200, MaxDistance: 600},
			{MinSimilarity: 0.70, MinDistance: 600, MaxDistance: 1200},
			{MinSimilarity: 0.60, MinDistance: 1200, MaxDistance: 2000},
			{MinSimilarity: 0.50, MinDistance: 2000, MaxDistance: 3000},
			{MinSimilarity: 0, MinDistance: 3000, MaxDistance: 5000},
		},
		Jitter:             10,
		RankCacheSize:      10000,
		EmbeddingCacheSize: 5000,
		ProviderTimeout:    3 * time.Second,
	}
}

// Validate checks that the bands describe a monotone transform
func (c Config) Validate() error {
	if len(c.Bands) == 0 {
		return fmt.Errorf("ranking: at least one band is required")
	}
	if c.Jitter < 1 {
		return fmt.Errorf("ranking: jitter must be at least 1")
	}
	if c.RankCacheSize < 1 || c.EmbeddingCacheSize < 1 {
		return fmt.Errorf("ranking: cache sizes must be positive")
	}
	for i, b := range c.Bands {
		if b.MinDistance < 1 {
			return fmt.Errorf("ranking: band %d starts below distance 1", i)
		}
		if b.MaxDistance-b.MinDistance <= c.Jitter {
			return fmt.Errorf("ranking: band %d is narrower than the jitter", i)
		}
		if b.MinSimilarity < 0 || b.MinSimilarity > 1 {
			return fmt.Errorf("ranking: band %d similarity out of [0,1]", i)
		}
		if i == 0 {
			continue
		}
		prev := c.Bands[i-1]
		if b.MinSimilarity >= prev.MinSimilarity {
			return fmt.Errorf("ranking: band %d similarity must be below band %d", i, i-1)
		}
		if b.MinDistance < prev.MaxDistance {
			return fmt.Errorf("ranking: band %d overlaps band %d", i, i-1)
		}
	}
	if last := c.Bands[len(c.Bands)-1]; last.MinSimilarity != 0 {
		return fmt.Errorf("ranking: last band must start at similarity 0")
	}
	return nil
}

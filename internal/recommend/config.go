// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Weights defines the contribution of each scoring signal.
	Weights SignalWeights `json:"weights" koanf:"weights"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache contains result-cache parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`

	// Retrieval contains candidate-retrieval parameters.
	Retrieval RetrievalConfig `json:"retrieval" koanf:"retrieval"`
}

// SignalWeights defines the contribution of each scoring signal to the
// composite score. Unlike an algorithm ensemble these are not normalized:
// the composite is an absolute scale in roughly [0, 1.1].
type SignalWeights struct {
	// Rating weights the base rating signal (rating / 5).
	Rating float64 `json:"rating" koanf:"rating"`

	// Similarity weights the vector similarity signal.
	Similarity float64 `json:"similarity" koanf:"similarity"`

	// TopicAffinity weights the preferred/positive-history topic match.
	TopicAffinity float64 `json:"topic_affinity" koanf:"topic_affinity"`

	// DifficultyFit weights the difficulty preference match.
	DifficultyFit float64 `json:"difficulty_fit" koanf:"difficulty_fit"`

	// StyleFit weights the format/learning-style compatibility.
	StyleFit float64 `json:"style_fit" koanf:"style_fit"`

	// Diversity weights the small bonus for topics outside the user's
	// current preferences.
	Diversity float64 `json:"diversity" koanf:"diversity"`

	// VectorBonus is the flat bonus for vector-sourced candidates.
	VectorBonus float64 `json:"vector_bonus" koanf:"vector_bonus"`

	// AnonymousSimilarity weights vector similarity in the coarse
	// anonymous formula (rating/5 + w*similarity).
	AnonymousSimilarity float64 `json:"anonymous_similarity" koanf:"anonymous_similarity"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultLimit is the default number of recommendations to return.
	DefaultLimit int `json:"default_limit" koanf:"default_limit"`

	// MaxLimit is the maximum allowed result count.
	MaxLimit int `json:"max_limit" koanf:"max_limit"`

	// RetrievalTimeout bounds each candidate-retrieval call.
	RetrievalTimeout time.Duration `json:"retrieval_timeout" koanf:"retrieval_timeout"`
}

// CacheConfig contains result-cache parameters.
type CacheConfig struct {
	// Enabled controls whether result caching is active.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries bounds the number of cached rankings.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// RetrievalConfig contains candidate-retrieval parameters.
type RetrievalConfig struct {
	// MinSimilarity is the similarity cutoff passed to the vector index.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`

	// FanoutFloor is the minimum vector-search result count requested,
	// regardless of the caller's limit. Over-fetching leaves room for the
	// index's exclusion filtering.
	FanoutFloor int `json:"fanout_floor" koanf:"fanout_floor"`

	// MaxQueryParts is the number of synthesized search strings joined
	// into the combined vector query.
	MaxQueryParts int `json:"max_query_parts" koanf:"max_query_parts"`

	// MaxPositiveLookups bounds catalog lookups for positively-rated
	// history when synthesizing queries.
	MaxPositiveLookups int `json:"max_positive_lookups" koanf:"max_positive_lookups"`
}

// DefaultConfig returns a Config with production defaults. The weights
// mirror the tuned composite: 20% rating, 40% similarity, 30% topic
// affinity, 10% difficulty, 5% style, 5% diversity, +0.02 vector bonus.
func DefaultConfig() *Config {
	return &Config{
		Weights: SignalWeights{
			Rating:              0.20,
			Similarity:          0.40,
			TopicAffinity:       0.30,
			DifficultyFit:       0.10,
			StyleFit:            0.05,
			Diversity:           0.05,
			VectorBonus:         0.02,
			AnonymousSimilarity: 0.5,
		},
		Limits: LimitsConfig{
			DefaultLimit:     10,
			MaxLimit:         20,
			RetrievalTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
		Retrieval: RetrievalConfig{
			MinSimilarity:      0.4,
			FanoutFloor:        15,
			MaxQueryParts:      3,
			MaxPositiveLookups: 3,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for name, w := range map[string]float64{
		"weights.rating":               c.Weights.Rating,
		"weights.similarity":           c.Weights.Similarity,
		"weights.topic_affinity":       c.Weights.TopicAffinity,
		"weights.difficulty_fit":       c.Weights.DifficultyFit,
		"weights.style_fit":            c.Weights.StyleFit,
		"weights.diversity":            c.Weights.Diversity,
		"weights.vector_bonus":         c.Weights.VectorBonus,
		"weights.anonymous_similarity": c.Weights.AnonymousSimilarity,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %f", name, w)
		}
	}

	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit must be >= limits.default_limit, got %d < %d",
			c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.RetrievalTimeout <= 0 {
		return fmt.Errorf("limits.retrieval_timeout must be positive, got %v", c.Limits.RetrievalTimeout)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}

	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval.min_similarity must be in [0, 1], got %f", c.Retrieval.MinSimilarity)
	}
	if c.Retrieval.FanoutFloor < 1 {
		return fmt.Errorf("retrieval.fanout_floor must be positive, got %d", c.Retrieval.FanoutFloor)
	}
	if c.Retrieval.MaxQueryParts < 1 {
		return fmt.Errorf("retrieval.max_query_parts must be positive, got %d", c.Retrieval.MaxQueryParts)
	}
	if c.Retrieval.MaxPositiveLookups < 0 {
		return fmt.Errorf("retrieval.max_positive_lookups must be non-negative, got %d", c.Retrieval.MaxPositiveLookups)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	out := *c
	return &out
}

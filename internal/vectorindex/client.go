// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package vectorindex provides the HTTP client for the course embedding
// index, the vector-candidate source for the recommendation engine. The
// client is wrapped in a circuit breaker so a flapping index degrades
// fast instead of stalling every request on timeouts.
package vectorindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/coursepilot/coursepilot/internal/recommend"
)

// overFetchFactor is how many times the requested limit is fetched from
// the index, so client-side keyword filtering still leaves enough
// results.
const overFetchFactor = 3

// minKeywordRunes is the shortest exclusion keyword applied. Shorter
// tokens ("a", "of") match everything and only cause false exclusions.
const minKeywordRunes = 3

// Config configures the vector index client.
type Config struct {
	// BaseURL is the index service root, e.g. "http://localhost:8090".
	BaseURL string `koanf:"base_url" json:"base_url"`

	// Timeout bounds each HTTP call.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the circuit.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold" json:"breaker_failure_threshold"`

	// BreakerCooldown is how long the circuit stays open before probing.
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" json:"breaker_cooldown"`
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "http://localhost:8090",
		Timeout:                 5 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         30 * time.Second,
	}
}

// Client talks to the embedding index over HTTP. Implements the engine's
// VectorIndex interface. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]recommend.Candidate]
	logger  zerolog.Logger
}

var _ recommend.VectorIndex = (*Client)(nil)

// NewClient creates a vector index client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	componentLogger := logger.With().Str("component", "vectorindex").Logger()

	settings := gobreaker.Settings{
		Name:        "vector-index",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[[]recommend.Candidate](settings),
		logger:  componentLogger,
	}
}

// searchRequest is the index service's search payload.
type searchRequest struct {
	Query         string  `json:"query"`
	Limit         int     `json:"limit"`
	MinSimilarity float64 `json:"min_similarity"`
}

// searchResponse is the index service's search result envelope.
type searchResponse struct {
	Results []recommend.Candidate `json:"results"`
}

// Search returns up to limit candidates for the query, similarity
// descending as the index returns them. Results below minSimilarity are
// dropped, and any candidate whose title tokens or topic tags exactly
// match an exclusion keyword is filtered out client-side. The index is
// asked for overFetchFactor times the limit so filtering does not starve
// the result.
func (c *Client) Search(ctx context.Context, query string, limit int, minSimilarity float64, excludeKeywords []string) ([]recommend.Candidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	results, err := c.breaker.Execute(func() ([]recommend.Candidate, error) {
		return c.search(ctx, query, limit*overFetchFactor, minSimilarity)
	})
	if err != nil {
		return nil, err
	}

	keywords := usableKeywords(excludeKeywords)
	filtered := make([]recommend.Candidate, 0, limit)
	for _, cand := range results {
		if cand.Similarity < minSimilarity {
			continue
		}
		if matchesExclusion(cand, keywords) {
			continue
		}
		cand.Source = recommend.SourceVector
		filtered = append(filtered, cand)
		if len(filtered) >= limit {
			break
		}
	}
	return filtered, nil
}

func (c *Client) search(ctx context.Context, query string, limit int, minSimilarity float64) ([]recommend.Candidate, error) {
	body, err := json.Marshal(searchRequest{
		Query:         query,
		Limit:         limit,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vector search: status %d: %s", resp.StatusCode, string(snippet))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return decoded.Results, nil
}

// Health probes the index service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vector index health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector index health: status %d", resp.StatusCode)
	}
	return nil
}

// State reports the circuit breaker state for health endpoints.
func (c *Client) State() string {
	return c.breaker.State().String()
}

// usableKeywords lowercases and drops keywords too short to be
// meaningful exclusion tokens.
func usableKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if len([]rune(kw)) < minKeywordRunes {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// matchesExclusion reports whether any exclusion keyword exactly matches
// a title token or topic tag. Descriptions are not consulted.
func matchesExclusion(c recommend.Candidate, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(c.Title)) {
		tokens[strings.Trim(tok, ".,!?;:'\"()")] = struct{}{}
	}
	for _, topic := range c.Topics {
		tokens[strings.ToLower(topic)] = struct{}{}
	}

	for _, kw := range keywords {
		if _, hit := tokens[kw]; hit {
			return true
		}
	}
	return false
}

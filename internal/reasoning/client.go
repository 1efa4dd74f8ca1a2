// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package reasoning generates natural-language explanations for ranked
// recommendation lists via an Ollama-style generate endpoint. The
// Explain call never fails: rate limiting, timeouts, and upstream errors
// all degrade to a fixed fallback sentence so the recommendation
// response is never blocked on the language model.
package reasoning

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/coursepilot/coursepilot/internal/metrics"
	"github.com/coursepilot/coursepilot/internal/recommend"
)

// fallbackSentences are substituted when the model cannot answer in
// time. Selection is deterministic per request key.
var fallbackSentences = []string{
	"These courses match your learning preferences and interests.",
	"Based on your history, these courses should be a good fit.",
	"We picked these courses for their relevance to your recent activity.",
}

// Config configures the reasoning client.
type Config struct {
	// BaseURL is the generate service root, e.g. "http://localhost:11434".
	BaseURL string `koanf:"base_url" json:"base_url"`

	// Model is the model name passed to the generate endpoint.
	Model string `koanf:"model" json:"model"`

	// Timeout bounds each explanation call end to end.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// RequestsPerSecond throttles calls to the generate endpoint.
	// Requests over the budget get a fallback sentence immediately.
	RequestsPerSecond float64 `koanf:"requests_per_second" json:"requests_per_second"`

	// MemoTTL is how long a generated explanation is reused for the same
	// ranking.
	MemoTTL time.Duration `koanf:"memo_ttl" json:"memo_ttl"`
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "http://localhost:11434",
		Model:             "llama3.2",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 2,
		MemoTTL:           10 * time.Minute,
	}
}

// Client calls the generate endpoint with rate limiting and short-TTL
// memoization. Safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu   sync.Mutex
	memo map[uint64]memoEntry

	now func() time.Time
}

type memoEntry struct {
	text      string
	createdAt time.Time
}

// Option customizes client construction.
type Option func(*Client)

// WithClock injects a time source for deterministic memo expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a reasoning client.
func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger.With().Str("component", "reasoning").Logger(),
		memo:    make(map[uint64]memoEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateRequest is the Ollama generate payload.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama generate result.
type generateResponse struct {
	Response string `json:"response"`
}

// Explain returns a natural-language explanation for the ranked items.
// It never returns an error; any failure, timeout, or rate-limit
// rejection yields one of the fixed fallback sentences.
func (c *Client) Explain(ctx context.Context, items []recommend.ScoredCandidate, uc *recommend.UserContext, query string) string {
	if len(items) == 0 {
		return fallbackSentences[0]
	}

	key := memoKey(items, uc, query)

	if text, ok := c.memoized(key); ok {
		return text
	}

	if !c.limiter.Allow() {
		c.logger.Debug().Msg("explanation rate limited, using fallback")
		return fallbackFor(key)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	text, err := c.generate(callCtx, buildPrompt(items, uc, query))
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("query", query).
			Str("stage", "explanation").
			Msg("explanation generation failed, using fallback")
		return fallbackFor(key)
	}

	c.remember(key, text)
	return text
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generate: status %d: %s", resp.StatusCode, string(snippet))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	text := strings.TrimSpace(decoded.Response)
	if text == "" {
		return "", fmt.Errorf("generate: empty response")
	}
	return text, nil
}

func (c *Client) memoized(key uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.memo[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.createdAt) >= c.cfg.MemoTTL {
		delete(c.memo, key)
		return "", false
	}
	return entry.text, true
}

func (c *Client) remember(key uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo[key] = memoEntry{text: text, createdAt: c.now()}
}

// memoKey hashes the ranking identity: item IDs in order, user, query.
func memoKey(items []recommend.ScoredCandidate, uc *recommend.UserContext, query string) uint64 {
	h := fnv.New64a()
	for _, item := range items {
		_, _ = h.Write([]byte(item.ID))
		_, _ = h.Write([]byte{0})
	}
	if uc != nil {
		fmt.Fprintf(h, "u%d", uc.UserID)
	}
	_, _ = h.Write([]byte(query))
	return h.Sum64()
}

// fallbackFor picks a deterministic fallback sentence for the key.
func fallbackFor(key uint64) string {
	metrics.ExplanationFallbacks.Inc()
	return fallbackSentences[key%uint64(len(fallbackSentences))]
}

// buildPrompt renders the ranked items and user context into the
// generate prompt.
func buildPrompt(items []recommend.ScoredCandidate, uc *recommend.UserContext, query string) string {
	var b strings.Builder
	b.WriteString("In two sentences, explain to the learner why these courses were recommended.\n")

	if query != "" {
		fmt.Fprintf(&b, "They searched for: %q.\n", query)
	}
	if uc != nil && len(uc.Preferences.Topics) > 0 {
		fmt.Fprintf(&b, "Their preferred topics: %s.\n", strings.Join(uc.Preferences.Topics, ", "))
	}

	b.WriteString("Recommended courses:\n")
	for i, item := range items {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (topics: %s, rating %.1f)\n", item.Title, strings.Join(item.Topics, ", "), item.Rating)
	}
	return b.String()
}

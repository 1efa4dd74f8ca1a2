// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursepilot/coursepilot/internal/metrics"
)

// Engine coordinates query synthesis, candidate retrieval, fusion,
// scoring, caching, and fallback for recommendation requests. It is safe
// for concurrent use.
//
// The engine depends only on the CatalogStore and VectorIndex interfaces
// so it stays decoupled from the storage and index backends.
type Engine struct {
	config *Config
	logger zerolog.Logger
	scorer *Scorer

	catalog CatalogStore
	vector  VectorIndex

	cache *resultCache

	requestCount   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	fallbackCount  atomic.Int64
	sourceFailures atomic.Int64

	now func() time.Time
}

// EngineStats is a snapshot of engine counters for observability.
type EngineStats struct {
	Requests       int64 `json:"requests"`
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	Fallbacks      int64 `json:"fallbacks"`
	SourceFailures int64 `json:"source_failures"`
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithClock injects a time source, making cache expiry deterministic in
// tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger, catalog CatalogStore, vector VectorIndex, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if vector == nil {
		return nil, fmt.Errorf("vector index is required")
	}

	e := &Engine{
		config:  cfg,
		logger:  logger.With().Str("component", "recommend").Logger(),
		scorer:  NewScorer(cfg.Weights),
		catalog: catalog,
		vector:  vector,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = newResultCache(cfg.Cache, e.now)
	return e, nil
}

// Recommend generates personalized recommendations. It never fails: any
// pipeline error degrades to the top-rated fallback list, which itself
// degrades to an empty list when the catalog is unreachable. The returned
// response is never nil.
func (e *Engine) Recommend(ctx context.Context, req Request, uc *UserContext) *Response {
	start := e.now()
	e.requestCount.Add(1)

	req = e.prepareRequest(req)
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Int("user_id", req.UserID).
		Logger()

	var (
		sources []string
		total   int
	)
	compute := func() ([]ScoredCandidate, error) {
		items, result, err := e.computePipeline(ctx, req, uc, logger)
		if err != nil {
			return nil, err
		}
		sources, total = result.sources, result.totalCandidates
		return items, nil
	}

	var (
		items []ScoredCandidate
		hit   bool
		err   error
	)
	if e.config.Cache.Enabled {
		key := cacheKey{
			userID:    req.UserID,
			queryHash: hashQuery(req.Query, req.QueryPresent),
			limit:     req.Limit,
		}
		items, hit, err = e.cache.GetOrCompute(key, req.ForceRefresh, compute)
	} else {
		items, err = compute()
	}

	if hit {
		e.cacheHits.Add(1)
		logger.Debug().Msg("cache hit")
	} else {
		e.cacheMisses.Add(1)
	}

	meta := ResponseMetadata{
		RequestID:       req.RequestID,
		UserID:          req.UserID,
		CacheHit:        hit,
		SourcesUsed:     sources,
		TotalCandidates: total,
	}

	if err != nil {
		e.fallbackCount.Add(1)
		logger.Error().
			Err(err).
			Str("query", req.Query).
			Msg("recommendation pipeline failed, serving top-rated fallback")
		items = e.topRatedFallback(ctx, req.Limit, logger)
		meta.Fallback = true
		meta.SourcesUsed = nil
		meta.TotalCandidates = len(items)
	}

	if items == nil {
		items = []ScoredCandidate{}
	}
	meta.LatencyMS = e.now().Sub(start).Milliseconds()
	meta.Timestamp = e.now()

	metrics.RecordRecommendation(hit, meta.Fallback, e.now().Sub(start))
	metrics.CacheEntries.Set(float64(e.cache.Len()))

	return &Response{Items: items, Metadata: meta}
}

// prepareRequest applies limit defaults and generates a request ID.
func (e *Engine) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Limit <= 0 {
		req.Limit = e.config.Limits.DefaultLimit
	}
	if req.Limit > e.config.Limits.MaxLimit {
		req.Limit = e.config.Limits.MaxLimit
	}
	return req
}

// pipelineResult carries per-compute diagnostics alongside the ranked
// items. Cache hits do not replay these.
type pipelineResult struct {
	sources         []string
	totalCandidates int
}

// computePipeline runs retrieval, fusion, scoring, and truncation.
func (e *Engine) computePipeline(ctx context.Context, req Request, uc *UserContext, logger zerolog.Logger) ([]ScoredCandidate, pipelineResult, error) {
	var result pipelineResult

	exclusions := e.buildExclusions(req, uc)
	positives := e.lookupPositiveCourses(ctx, uc)

	queryPositives := positives
	if max := e.config.Retrieval.MaxPositiveLookups; len(queryPositives) > max {
		queryPositives = queryPositives[:max]
	}
	var explicit string
	if req.QueryPresent {
		explicit = req.Query
	}
	queries := SynthesizeQueries(explicit, uc, queryPositives, e.config.Retrieval.MaxQueryParts)
	combined := CombineQueries(queries)

	vectorCands, contentCands, vectorErr, contentErr := e.retrieveCandidates(ctx, req, uc, combined, explicit, exclusions)

	if vectorErr != nil && contentErr != nil {
		return nil, result, fmt.Errorf("both candidate sources failed: vector: %w; content: %v", vectorErr, contentErr)
	}
	if vectorErr != nil {
		e.sourceFailures.Add(1)
		metrics.RecordSourceFailure(string(SourceVector))
		logger.Warn().
			Err(vectorErr).
			Str("stage", "vector_retrieval").
			Str("query", combined).
			Msg("vector source failed, degrading to content candidates")
	}
	if contentErr != nil {
		e.sourceFailures.Add(1)
		metrics.RecordSourceFailure(string(SourceContent))
		logger.Warn().
			Err(contentErr).
			Str("stage", "content_retrieval").
			Str("query", explicit).
			Msg("content source failed, degrading to vector candidates")
	}

	fused := FuseCandidates(vectorCands, contentCands)
	result.totalCandidates = len(fused)
	if vectorErr == nil {
		result.sources = append(result.sources, string(SourceVector))
	}
	if contentErr == nil {
		result.sources = append(result.sources, string(SourceContent))
	}

	positiveTopics := flattenTopics(positives)
	scored := e.scorer.Score(fused, uc, positiveTopics)

	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}

	logger.Debug().
		Int("vector_candidates", len(vectorCands)).
		Int("content_candidates", len(contentCands)).
		Int("fused", len(fused)).
		Int("returned", len(scored)).
		Msg("pipeline complete")

	return scored, result, nil
}

// retrieveCandidates queries both candidate sources concurrently. Each
// call gets its own timeout; failures are returned per source so one
// source can degrade without the other.
func (e *Engine) retrieveCandidates(ctx context.Context, req Request, uc *UserContext, vectorQuery, contentQuery string, exclusions []string) (vectorCands, contentCands []Candidate, vectorErr, contentErr error) {
	fanout := e.config.Retrieval.FanoutFloor
	if doubled := req.Limit * 2; doubled > fanout {
		fanout = doubled
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		searchCtx, cancel := context.WithTimeout(ctx, e.config.Limits.RetrievalTimeout)
		defer cancel()
		vectorCands, vectorErr = e.vector.Search(searchCtx, vectorQuery, fanout, e.config.Retrieval.MinSimilarity, exclusions)
	}()

	go func() {
		defer wg.Done()
		searchCtx, cancel := context.WithTimeout(ctx, e.config.Limits.RetrievalTimeout)
		defer cancel()
		contentCands, contentErr = e.catalog.SearchContent(searchCtx, contentQuery, excludedCourseIDs(uc))
	}()

	wg.Wait()
	return vectorCands, contentCands, vectorErr, contentErr
}

// buildExclusions unions the query's negative-intent keywords with the
// user's stored excluded topics.
func (e *Engine) buildExclusions(req Request, uc *UserContext) []string {
	var exclusions []string
	if req.QueryPresent {
		exclusions = ExtractNegativeKeywords(req.Query)
	}
	if uc == nil {
		return exclusions
	}

	seen := lowerSet(exclusions)
	for _, t := range uc.Preferences.ExcludedTopics {
		tl := strings.ToLower(t)
		if _, dup := seen[tl]; dup {
			continue
		}
		seen[tl] = struct{}{}
		exclusions = append(exclusions, tl)
	}
	return exclusions
}

// excludedCourseIDs collects courses the content source must not
// resurface: completed or dropped courses, and those rated 2 or below.
func excludedCourseIDs(uc *UserContext) map[string]struct{} {
	if uc == nil {
		return nil
	}
	exclude := make(map[string]struct{})
	for _, i := range uc.RecentInteractions {
		if i.Kind == InteractionCompleted || i.Kind == InteractionDropped {
			exclude[i.CourseID] = struct{}{}
		}
	}
	for _, f := range uc.RecentFeedback {
		if f.Rating <= 2 {
			exclude[f.CourseID] = struct{}{}
		}
	}
	return exclude
}

// lookupPositiveCourses resolves the user's positively-rated feedback to
// catalog records, newest first. Lookup failures are logged and skipped;
// history enrichment is best-effort.
func (e *Engine) lookupPositiveCourses(ctx context.Context, uc *UserContext) []Candidate {
	if uc == nil {
		return nil
	}

	var courses []Candidate
	for _, f := range uc.PositiveFeedback() {
		course, err := e.catalog.GetCourse(ctx, f.CourseID)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("course_id", f.CourseID).
				Str("stage", "positive_history").
				Msg("catalog lookup failed")
			continue
		}
		if course != nil {
			courses = append(courses, *course)
		}
	}
	return courses
}

// flattenTopics concatenates topic lists, keeping duplicates for
// frequency weighting.
func flattenTopics(courses []Candidate) []string {
	var topics []string
	for _, c := range courses {
		topics = append(topics, c.Topics...)
	}
	return topics
}

// topRatedFallback is the deterministic degraded path: the catalog's
// top-rated courses with similarity pinned to rating/5. It never fails;
// an unreachable catalog yields an empty list.
func (e *Engine) topRatedFallback(ctx context.Context, limit int, logger zerolog.Logger) []ScoredCandidate {
	courses, err := e.catalog.TopRated(ctx, limit)
	if err != nil {
		logger.Error().
			Err(err).
			Str("stage", "fallback").
			Msg("catalog unreachable, returning empty fallback")
		return []ScoredCandidate{}
	}

	items := make([]ScoredCandidate, 0, len(courses))
	for _, c := range courses {
		c.Source = SourceContent
		c.Similarity = c.Rating / 5.0
		items = append(items, ScoredCandidate{Candidate: c, Score: c.Rating / 5.0})
	}
	return items
}

// SimilarCourses returns courses similar to the given one via vector
// search over its title, description, and topics. The source course is
// filtered from the result. Returns an empty list when the course is
// unknown.
func (e *Engine) SimilarCourses(ctx context.Context, courseID string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = e.config.Limits.DefaultLimit
	}

	course, err := e.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course %q: %w", courseID, err)
	}
	if course == nil {
		return []Candidate{}, nil
	}

	query := strings.Join(append([]string{course.Title, course.Description}, course.Topics...), " ")
	results, err := e.vector.Search(ctx, query, limit+1, e.config.Retrieval.MinSimilarity, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	similar := make([]Candidate, 0, limit)
	for _, c := range results {
		if c.ID == courseID {
			continue
		}
		similar = append(similar, c)
		if len(similar) >= limit {
			break
		}
	}
	return similar, nil
}

// ClearCache drops all memoized rankings, e.g. after a catalog reindex.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Requests:       e.requestCount.Load(),
		CacheHits:      e.cacheHits.Load(),
		CacheMisses:    e.cacheMisses.Load(),
		Fallbacks:      e.fallbackCount.Load(),
		SourceFailures: e.sourceFailures.Load(),
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

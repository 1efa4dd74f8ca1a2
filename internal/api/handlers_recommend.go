// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coursepilot/coursepilot/internal/logging"
	"github.com/coursepilot/coursepilot/internal/models"
	"github.com/coursepilot/coursepilot/internal/recommend"
)

// UserContextSource builds the per-request user state snapshot.
type UserContextSource interface {
	BuildContext(ctx context.Context, userID int) (*recommend.UserContext, error)
}

// Explainer produces a natural-language explanation for a ranked list.
type Explainer interface {
	Explain(ctx context.Context, items []recommend.ScoredCandidate, uc *recommend.UserContext, query string) string
}

// SemanticSearcher runs a raw vector-index search.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, limit int, minSimilarity float64, excludeKeywords []string) ([]recommend.Candidate, error)
}

// RecommendHandler handles recommendation API endpoints.
type RecommendHandler struct {
	engine    *recommend.Engine
	users     UserContextSource
	searcher  SemanticSearcher
	explainer Explainer // nil when reasoning is disabled
}

// NewRecommendHandler creates a recommendation handler. explainer may be
// nil, in which case include_reasoning requests get no reasoning text.
func NewRecommendHandler(engine *recommend.Engine, users UserContextSource, searcher SemanticSearcher, explainer Explainer) *RecommendHandler {
	return &RecommendHandler{
		engine:    engine,
		users:     users,
		searcher:  searcher,
		explainer: explainer,
	}
}

// RecommendRequest is the POST /recommendations/{userID} body.
type RecommendRequest struct {
	Query            string `json:"query" validate:"max=500"`
	MaxResults       int    `json:"max_results" validate:"min=0,max=100"`
	IncludeReasoning bool   `json:"include_reasoning"`
	ForceRefresh     bool   `json:"force_refresh"`
}

// RecommendationPayload is the data section of a recommendation response.
type RecommendationPayload struct {
	Items     []recommend.ScoredCandidate `json:"items"`
	Metadata  recommend.ResponseMetadata  `json:"metadata"`
	Reasoning string                      `json:"reasoning,omitempty"`
}

// GetRecommendations handles GET /api/v1/recommendations/{userID}.
// Query params: max_results, force_refresh, include_reasoning.
func (h *RecommendHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	req := recommend.Request{
		UserID:       userID,
		Limit:        getIntParam(r, "max_results", 0),
		ForceRefresh: getBoolParam(r, "force_refresh", false),
		RequestID:    r.Header.Get("X-Request-ID"),
	}

	h.serveRecommendations(w, r, req, getBoolParam(r, "include_reasoning", false))
}

// PostRecommendations handles POST /api/v1/recommendations/{userID}.
// The body carries an optional free-text query describing what the user
// wants (and does not want) to learn.
func (h *RecommendHandler) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var body RecommendRequest
	if err := decodeJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	req := recommend.Request{
		UserID:       userID,
		Query:        body.Query,
		QueryPresent: body.Query != "",
		Limit:        body.MaxResults,
		ForceRefresh: body.ForceRefresh,
		RequestID:    r.Header.Get("X-Request-ID"),
	}

	h.serveRecommendations(w, r, req, body.IncludeReasoning)
}

func (h *RecommendHandler) serveRecommendations(w http.ResponseWriter, r *http.Request, req recommend.Request, includeReasoning bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	start := time.Now()

	uc := h.userContext(ctx, req.UserID)
	resp := h.engine.Recommend(ctx, req, uc)

	payload := &RecommendationPayload{
		Items:    resp.Items,
		Metadata: resp.Metadata,
	}
	if includeReasoning && h.explainer != nil {
		payload.Reasoning = h.explainer.Explain(ctx, resp.Items, uc, req.Query)
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   payload,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      resp.Metadata.CacheHit,
		},
	})
}

// GetSimilar handles GET /api/v1/recommendations/{userID}/similar/{courseID}.
func (h *RecommendHandler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDParam(w, r); !ok {
		return
	}
	courseID := chi.URLParam(r, "courseID")
	if courseID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_COURSE_ID", "Missing course ID", nil)
		return
	}

	limit := getIntParam(r, "max_results", defaultSimilarLimit)
	if limit < 1 {
		limit = defaultSimilarLimit
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.engine.SimilarCourses(ctx, courseID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to find similar courses", err)
		return
	}
	if items == nil {
		items = []recommend.Candidate{}
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"course_id": courseID,
		"items":     items,
		"count":     len(items),
	})
}

// SearchRequest captures the semantic search query parameters.
type SearchRequest struct {
	Query         string  `validate:"required,max=500"`
	MaxResults    int     `validate:"min=1,max=100"`
	MinSimilarity float64 `validate:"min=0,max=1"`
}

// Search handles GET /api/v1/recommendations/{userID}/search.
// Query params: q (required), max_results, min_similarity, exclude_topics.
func (h *RecommendHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDParam(w, r); !ok {
		return
	}

	req := SearchRequest{
		Query:         r.URL.Query().Get("q"),
		MaxResults:    getIntParam(r, "max_results", defaultSearchLimit),
		MinSimilarity: getFloatParam(r, "min_similarity", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	excludeTopics := parseCommaSeparated(r.URL.Query().Get("exclude_topics"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.searcher.Search(ctx, req.Query, req.MaxResults, req.MinSimilarity, excludeTopics)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Semantic search is unavailable", err)
		return
	}
	if items == nil {
		items = []recommend.Candidate{}
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"query": req.Query,
		"items": items,
		"count": len(items),
	})
}

// userContext loads the user snapshot, degrading to anonymous
// recommendations when the state store is unavailable.
func (h *RecommendHandler) userContext(ctx context.Context, userID int) *recommend.UserContext {
	if h.users == nil {
		return nil
	}
	uc, err := h.users.BuildContext(ctx, userID)
	if err != nil {
		logging.Warn().Err(err).Int("user_id", userID).Msg("User context unavailable, recommending anonymously")
		return nil
	}
	return uc
}

// userIDParam parses the userID path parameter, writing the error
// response itself on failure.
func userIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.Atoi(userIDStr)
	if err != nil || userID < 1 {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID", err)
		return 0, false
	}
	return userID, true
}

const (
	requestTimeout      = 10 * time.Second
	defaultSimilarLimit = 5
	defaultSearchLimit  = 10
)

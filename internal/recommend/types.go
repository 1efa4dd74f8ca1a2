// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"context"
	"time"
)

// Provenance identifies which retrieval path produced a candidate.
type Provenance string

const (
	// SourceVector marks candidates returned by nearest-neighbor search.
	SourceVector Provenance = "vector"
	// SourceContent marks candidates returned by content-based filtering.
	SourceContent Provenance = "content"
)

// Difficulty tiers in ascending order. Values outside this set are legal
// but score as unknown in difficulty fit.
var difficultyTiers = []string{"beginner", "intermediate", "advanced"}

// Candidate is one course eligible for ranking in a single run.
type Candidate struct {
	// ID uniquely identifies the course within a ranking run.
	ID string `json:"id"`

	// Title is the course title.
	Title string `json:"title"`

	// Description is the long-form course description.
	Description string `json:"description"`

	// Topics is the ordered list of topic tags.
	Topics []string `json:"topics"`

	// Difficulty is the difficulty tier (beginner, intermediate, advanced).
	Difficulty string `json:"difficulty"`

	// Duration is a human-readable time commitment ("6 weeks", "10 hours").
	Duration string `json:"duration"`

	// Format is the delivery format ("video", "hands-on", "interactive").
	Format string `json:"format"`

	// Rating is the average rating in [0, 5].
	Rating float64 `json:"rating"`

	// Similarity is the vector similarity in [0, 1].
	// Zero when the candidate was sourced only from content filtering.
	Similarity float64 `json:"similarity"`

	// Source is the retrieval path that produced this candidate.
	Source Provenance `json:"source"`
}

// ScoredCandidate pairs a candidate with its composite score.
// Instances live for one ranking run and the cache entry holding it.
type ScoredCandidate struct {
	Candidate `json:"candidate"`

	// Score is the final weighted composite used for ranking.
	Score float64 `json:"score"`
}

// FeedbackRecord is one stored course rating from the user.
type FeedbackRecord struct {
	// CourseID is the rated course.
	CourseID string `json:"course_id"`

	// Rating is the star rating (1-5).
	Rating int `json:"rating"`

	// Comment is the free-text feedback, if any.
	Comment string `json:"comment,omitempty"`

	// Style is the learning style the user stated at feedback time.
	Style string `json:"style,omitempty"`

	// Difficulty is the difficulty preference stated at feedback time.
	Difficulty string `json:"difficulty,omitempty"`

	// CreatedAt is when the feedback was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// positiveRatingFloor is the minimum rating treated as positive feedback.
const positiveRatingFloor = 4

// Positive reports whether this feedback counts as a positive signal.
func (f FeedbackRecord) Positive() bool {
	return f.Rating >= positiveRatingFloor
}

// InteractionKind classifies a course interaction.
type InteractionKind string

const (
	// InteractionViewed indicates the course page was viewed.
	InteractionViewed InteractionKind = "viewed"
	// InteractionEnrolled indicates the user enrolled.
	InteractionEnrolled InteractionKind = "enrolled"
	// InteractionCompleted indicates the course was finished.
	InteractionCompleted InteractionKind = "completed"
	// InteractionDropped indicates the user abandoned the course.
	InteractionDropped InteractionKind = "dropped"
)

// Valid reports whether k is one of the known interaction kinds.
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionViewed, InteractionEnrolled, InteractionCompleted, InteractionDropped:
		return true
	default:
		return false
	}
}

// InteractionRecord is one stored user-course interaction.
type InteractionRecord struct {
	// CourseID is the interacted course.
	CourseID string `json:"course_id"`

	// Kind classifies the interaction.
	Kind InteractionKind `json:"kind"`

	// At is when the interaction occurred.
	At time.Time `json:"at"`
}

// Preferences holds the user's stored learning preferences.
// Empty string means the preference is unset.
type Preferences struct {
	// Topics is the ordered list of preferred topics.
	Topics []string `json:"topics"`

	// ExcludedTopics lists topics the user does not want to see.
	ExcludedTopics []string `json:"excluded_topics,omitempty"`

	// Difficulty is the preferred difficulty tier, if any.
	Difficulty string `json:"difficulty,omitempty"`

	// Style is the preferred learning style, if any.
	Style string `json:"style,omitempty"`

	// TimeCommitment is the preferred time commitment, if any.
	TimeCommitment string `json:"time_commitment,omitempty"`
}

// UserContext is a per-request snapshot of user state. It is built fresh
// for every recommendation request and never persisted by this package.
type UserContext struct {
	// UserID is the user the snapshot belongs to.
	UserID int `json:"user_id"`

	// Preferences are the stored learning preferences.
	Preferences Preferences `json:"preferences"`

	// RecentFeedback holds up to the 10 most recent feedback records,
	// newest first.
	RecentFeedback []FeedbackRecord `json:"recent_feedback"`

	// RecentInteractions holds up to the 20 most recent interactions,
	// newest first.
	RecentInteractions []InteractionRecord `json:"recent_interactions"`
}

// PositiveFeedback returns the recent feedback records with rating >= 4,
// preserving order.
func (uc *UserContext) PositiveFeedback() []FeedbackRecord {
	if uc == nil {
		return nil
	}
	out := make([]FeedbackRecord, 0, len(uc.RecentFeedback))
	for _, f := range uc.RecentFeedback {
		if f.Positive() {
			out = append(out, f)
		}
	}
	return out
}

// Request is one recommendation request.
type Request struct {
	// UserID is the user to recommend for.
	UserID int `json:"user_id"`

	// Query is the optional free-text query.
	Query string `json:"query,omitempty"`

	// QueryPresent distinguishes an explicitly supplied query (even an
	// empty one) from no query at all. The two must not share cache keys.
	QueryPresent bool `json:"-"`

	// Limit is the number of recommendations to return.
	// Defaults to Config.Limits.DefaultLimit when zero.
	Limit int `json:"limit,omitempty"`

	// ForceRefresh bypasses the result cache for this request.
	ForceRefresh bool `json:"force_refresh,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Response is the result of one recommendation request.
type Response struct {
	// Items is the ranked recommendation list, best first.
	Items []ScoredCandidate `json:"items"`

	// Metadata carries timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata carries timing and diagnostic information.
type ResponseMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// UserID is the user the recommendations are for.
	UserID int `json:"user_id"`

	// CacheHit indicates the list was served from cache.
	CacheHit bool `json:"cache_hit"`

	// SourcesUsed lists the candidate sources that contributed ("vector",
	// "content"). Empty when the fallback path produced the result.
	SourcesUsed []string `json:"sources_used"`

	// Fallback indicates the top-rated fallback supplier produced the
	// result because the pipeline failed.
	Fallback bool `json:"fallback"`

	// TotalCandidates is the number of fused candidates considered.
	TotalCandidates int `json:"total_candidates"`

	// LatencyMS is the total request latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}

// CatalogStore answers structured lookups over the course catalog.
// Implemented by the storage layer.
type CatalogStore interface {
	// GetCourse returns the course with the given ID, or nil when absent.
	GetCourse(ctx context.Context, id string) (*Candidate, error)

	// SearchContent returns courses matching the query by substring over
	// title, description, and topics, excluding the given IDs. An empty
	// query matches the whole catalog.
	SearchContent(ctx context.Context, query string, exclude map[string]struct{}) ([]Candidate, error)

	// TopRated returns up to limit courses ordered by descending rating.
	TopRated(ctx context.Context, limit int) ([]Candidate, error)
}

// VectorIndex performs nearest-neighbor search over course embeddings.
// Exclusion keywords are matched exactly against title tokens and topic
// tags; the call may return fewer than limit results after filtering.
type VectorIndex interface {
	Search(ctx context.Context, query string, limit int, minSimilarity float64, excludeKeywords []string) ([]Candidate, error)
}

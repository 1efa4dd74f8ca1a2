// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coursepilot/coursepilot/internal/logging"
	"github.com/coursepilot/coursepilot/internal/recommend"
)

// UserStateStore is the preference and history surface the handlers need.
type UserStateStore interface {
	GetPreferences(ctx context.Context, userID int) (recommend.Preferences, error)
	MergePreferences(ctx context.Context, userID int, update recommend.Preferences) (recommend.Preferences, error)
	RecordFeedback(ctx context.Context, userID int, fb recommend.FeedbackRecord) error
	RecordInteraction(ctx context.Context, userID int, in recommend.InteractionRecord) error
}

// CourseRater folds a new rating into a course's running average.
type CourseRater interface {
	RecordRating(ctx context.Context, courseID string, rating float64) error
}

// UserStateHandler handles feedback, preference and interaction endpoints.
type UserStateHandler struct {
	store UserStateStore
	rater CourseRater // nil when ratings are not propagated to the catalog
}

// NewUserStateHandler creates a user-state handler. rater may be nil.
func NewUserStateHandler(store UserStateStore, rater CourseRater) *UserStateHandler {
	return &UserStateHandler{store: store, rater: rater}
}

// FeedbackRequest is the POST /feedback body.
type FeedbackRequest struct {
	UserID     int    `json:"user_id" validate:"required,min=1"`
	CourseID   string `json:"course_id" validate:"required,max=200"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=2000"`
	Style      string `json:"style" validate:"omitempty,oneof=visual hands-on reading video interactive practical"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// PreferencesRequest is the PUT /preferences/{userID} body. Empty fields
// leave the stored value untouched; non-empty slices replace wholesale.
type PreferencesRequest struct {
	Topics         []string `json:"topics" validate:"max=50,dive,max=100"`
	ExcludedTopics []string `json:"excluded_topics" validate:"max=50,dive,max=100"`
	Difficulty     string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Style          string   `json:"style" validate:"omitempty,oneof=visual hands-on reading video interactive practical"`
	TimeCommitment string   `json:"time_commitment" validate:"max=100"`
}

// InteractionRequest is the POST /interactions body.
type InteractionRequest struct {
	UserID   int    `json:"user_id" validate:"required,min=1"`
	CourseID string `json:"course_id" validate:"required,max=200"`
	Kind     string `json:"kind" validate:"required,oneof=viewed enrolled completed dropped"`
}

// PostFeedback handles POST /api/v1/feedback. Ratings of 4 and above
// accrete the course's topics into the user's preferences; the rating
// also folds into the course's catalog average when a rater is wired.
func (h *UserStateHandler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	var body FeedbackRequest
	if err := decodeJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	fb := recommend.FeedbackRecord{
		CourseID:   body.CourseID,
		Rating:     body.Rating,
		Comment:    body.Comment,
		Style:      body.Style,
		Difficulty: body.Difficulty,
	}

	if err := h.store.RecordFeedback(r.Context(), body.UserID, fb); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to record feedback", err)
		return
	}

	if h.rater != nil {
		if err := h.rater.RecordRating(r.Context(), body.CourseID, float64(body.Rating)); err != nil {
			// The feedback itself is stored; a missing course is not an
			// error worth failing the request over.
			logging.Warn().Err(err).Str("course_id", body.CourseID).Msg("Rating not folded into catalog")
		}
	}

	respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"user_id":   body.UserID,
		"course_id": body.CourseID,
		"recorded":  true,
	})
}

// GetPreferences handles GET /api/v1/preferences/{userID}. Users with no
// stored preferences get the zero value, not an error.
func (h *UserStateHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	prefs, err := h.store.GetPreferences(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load preferences", err)
		return
	}

	respondSuccess(w, http.StatusOK, prefs)
}

// PutPreferences handles PUT /api/v1/preferences/{userID}, merging the
// body into the stored preferences and returning the merged result.
func (h *UserStateHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var body PreferencesRequest
	if err := decodeJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	update := recommend.Preferences{
		Topics:         body.Topics,
		ExcludedTopics: body.ExcludedTopics,
		Difficulty:     body.Difficulty,
		Style:          body.Style,
		TimeCommitment: body.TimeCommitment,
	}

	merged, err := h.store.MergePreferences(r.Context(), userID, update)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to update preferences", err)
		return
	}

	respondSuccess(w, http.StatusOK, merged)
}

// PostInteraction handles POST /api/v1/interactions.
func (h *UserStateHandler) PostInteraction(w http.ResponseWriter, r *http.Request) {
	var body InteractionRequest
	if err := decodeJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	in := recommend.InteractionRecord{
		CourseID: body.CourseID,
		Kind:     recommend.InteractionKind(body.Kind),
		At:       time.Now(),
	}

	if err := h.store.RecordInteraction(r.Context(), body.UserID, in); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to record interaction", err)
		return
	}

	respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"user_id":   body.UserID,
		"course_id": body.CourseID,
		"kind":      body.Kind,
		"recorded":  true,
	})
}

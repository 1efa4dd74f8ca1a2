// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coursepilot/coursepilot/internal/catalog"
)

// CourseStore is the catalog surface the handlers need.
type CourseStore interface {
	Get(ctx context.Context, id string) (*catalog.Course, error)
	Upsert(ctx context.Context, course *catalog.Course) error
	List(ctx context.Context, filter catalog.Filter) ([]catalog.Course, error)
}

// CatalogHandler handles course catalog endpoints.
type CatalogHandler struct {
	store CourseStore
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(store CourseStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// CourseRequest is the PUT /courses/{courseID} body. The course ID comes
// from the URL path, not the body.
type CourseRequest struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Description string   `json:"description" validate:"max=5000"`
	Topics      []string `json:"topics" validate:"max=20,dive,max=100"`
	Difficulty  string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration    string   `json:"duration" validate:"max=100"`
	Format      string   `json:"format" validate:"max=100"`
	Instructor  string   `json:"instructor" validate:"max=200"`
	URL         string   `json:"url" validate:"omitempty,url"`
	Rating      float64  `json:"rating" validate:"min=0,max=5"`
	RatingCount int      `json:"rating_count" validate:"min=0"`
}

// ListCourses handles GET /api/v1/courses.
// Query params: topic, difficulty, limit, offset.
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{
		Topic:      r.URL.Query().Get("topic"),
		Difficulty: r.URL.Query().Get("difficulty"),
		Limit:      getIntParam(r, "limit", defaultCourseListLimit),
		Offset:     getIntParam(r, "offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > maxCourseListLimit {
		filter.Limit = defaultCourseListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	courses, err := h.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list courses", err)
		return
	}
	if courses == nil {
		courses = []catalog.Course{}
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"courses": courses,
		"count":   len(courses),
	})
}

// GetCourse handles GET /api/v1/courses/{courseID}.
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	course, err := h.store.Get(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Course not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load course", err)
		return
	}

	respondSuccess(w, http.StatusOK, course)
}

// PutCourse handles PUT /api/v1/courses/{courseID}, creating or
// replacing the course.
func (h *CatalogHandler) PutCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var body CourseRequest
	if err := decodeJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	course := &catalog.Course{
		ID:          courseID,
		Title:       body.Title,
		Description: body.Description,
		Topics:      body.Topics,
		Difficulty:  body.Difficulty,
		Duration:    body.Duration,
		Format:      body.Format,
		Instructor:  body.Instructor,
		URL:         body.URL,
		Rating:      body.Rating,
		RatingCount: body.RatingCount,
	}

	if err := h.store.Upsert(r.Context(), course); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to store course", err)
		return
	}

	respondSuccess(w, http.StatusOK, course)
}

const (
	defaultCourseListLimit = 50
	maxCourseListLimit     = 500
)

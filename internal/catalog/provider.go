// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package catalog

import (
	"context"
	"errors"

	"github.com/coursepilot/coursepilot/internal/recommend"
)

// Provider adapts the Store to the engine's CatalogStore interface,
// mapping catalog records onto candidates and translating ErrNotFound
// into the nil-course convention the engine expects.
type Provider struct {
	store *Store
}

// NewProvider wraps a store for the recommendation engine.
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

var _ recommend.CatalogStore = (*Provider)(nil)

func (p *Provider) GetCourse(ctx context.Context, id string) (*recommend.Candidate, error) {
	course, err := p.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := toCandidate(course)
	return &c, nil
}

func (p *Provider) SearchContent(ctx context.Context, query string, exclude map[string]struct{}) ([]recommend.Candidate, error) {
	courses, err := p.store.Search(ctx, query, exclude)
	if err != nil {
		return nil, err
	}
	return toCandidates(courses), nil
}

func (p *Provider) TopRated(ctx context.Context, limit int) ([]recommend.Candidate, error) {
	courses, err := p.store.TopRated(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toCandidates(courses), nil
}

// CourseTopics returns the topic tags for a course. A missing course
// yields no topics rather than an error, matching the accretion path's
// best-effort semantics.
func (p *Provider) CourseTopics(ctx context.Context, courseID string) ([]string, error) {
	course, err := p.store.Get(ctx, courseID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return course.Topics, nil
}

func toCandidate(c *Course) recommend.Candidate {
	return recommend.Candidate{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Topics:      c.Topics,
		Difficulty:  c.Difficulty,
		Duration:    c.Duration,
		Format:      c.Format,
		Rating:      c.Rating,
	}
}

func toCandidates(courses []Course) []recommend.Candidate {
	out := make([]recommend.Candidate, len(courses))
	for i := range courses {
		out[i] = toCandidate(&courses[i])
	}
	return out
}

// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package catalog provides the durable course catalog backed by BadgerDB.
// It is the content-candidate source for the recommendation engine and
// the system of record behind the course endpoints.
package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a course ID has no record.
var ErrNotFound = errors.New("course not found")

// courseKeyPrefix namespaces catalog records inside the shared Badger
// keyspace.
const courseKeyPrefix = "course:"

// Course is a catalog record. Rating is the running average in [0, 5];
// RatingCount is how many feedback submissions produced it.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Topics      []string  `json:"topics"`
	Difficulty  string    `json:"difficulty"`
	Duration    string    `json:"duration"`
	Format      string    `json:"format"`
	Instructor  string    `json:"instructor,omitempty"`
	URL         string    `json:"url,omitempty"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows ListCourses results. Zero values match everything.
type Filter struct {
	Topic      string
	Difficulty string
	Limit      int
	Offset     int
}

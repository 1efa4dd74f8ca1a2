// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Store is a BadgerDB-backed course catalog. Safe for concurrent use;
// Badger transactions provide the isolation.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore wraps an open Badger database. The caller owns the database
// lifecycle when sharing it across stores.
func NewStore(db *badger.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "catalog").Logger(),
		now:    time.Now,
	}
}

// Open opens a Badger database at path and wraps it in a Store. The
// returned store owns the database; callers must Close it.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for catalog: %w", err)
	}
	return NewStore(db, logger), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes a course record, stamping UpdatedAt and, for new
// records, CreatedAt.
func (s *Store) Upsert(ctx context.Context, course *Course) error {
	if course.ID == "" {
		return fmt.Errorf("course id is required")
	}

	existing, err := s.Get(ctx, course.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	now := s.now()
	if existing != nil {
		course.CreatedAt = existing.CreatedAt
	} else if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	data, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(courseKeyPrefix+course.ID), data)
	})
}

// Get retrieves a course by ID. Returns ErrNotFound for unknown IDs.
func (s *Store) Get(ctx context.Context, id string) (*Course, error) {
	var course Course

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(courseKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &course)
		})
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Delete removes a course. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(courseKeyPrefix + id))
	})
}

// List returns courses matching the filter, ordered by ID.
func (s *Store) List(ctx context.Context, filter Filter) ([]Course, error) {
	var courses []Course

	err := s.iterate(func(c *Course) bool {
		if filter.Topic != "" && !hasTopic(c.Topics, filter.Topic) {
			return true
		}
		if filter.Difficulty != "" && !strings.EqualFold(c.Difficulty, filter.Difficulty) {
			return true
		}
		courses = append(courses, *c)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(courses) {
			return []Course{}, nil
		}
		courses = courses[filter.Offset:]
	}
	if filter.Limit > 0 && len(courses) > filter.Limit {
		courses = courses[:filter.Limit]
	}
	return courses, nil
}

// TopRated returns up to limit courses by descending rating. Ties break
// on higher rating count, then ID for determinism.
func (s *Store) TopRated(ctx context.Context, limit int) ([]Course, error) {
	var courses []Course
	if err := s.iterate(func(c *Course) bool {
		courses = append(courses, *c)
		return true
	}); err != nil {
		return nil, err
	}

	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Rating != courses[j].Rating {
			return courses[i].Rating > courses[j].Rating
		}
		if courses[i].RatingCount != courses[j].RatingCount {
			return courses[i].RatingCount > courses[j].RatingCount
		}
		return courses[i].ID < courses[j].ID
	})

	if limit > 0 && len(courses) > limit {
		courses = courses[:limit]
	}
	return courses, nil
}

// Search returns courses whose title, description, or topics contain any
// token of the query, case-insensitively, excluding the given IDs. An
// empty query matches the whole catalog minus exclusions. Results are
// ordered by ID so downstream scoring sees a stable input order.
func (s *Store) Search(ctx context.Context, query string, exclude map[string]struct{}) ([]Course, error) {
	tokens := strings.Fields(strings.ToLower(query))

	var courses []Course
	err := s.iterate(func(c *Course) bool {
		if _, skip := exclude[c.ID]; skip {
			return true
		}
		if len(tokens) > 0 && !matchesAny(c, tokens) {
			return true
		}
		courses = append(courses, *c)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

// Count returns the number of courses in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.iterate(func(*Course) bool {
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RecordRating folds a new rating into the course's running average.
func (s *Store) RecordRating(ctx context.Context, courseID string, rating float64) error {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return err
	}

	total := course.Rating*float64(course.RatingCount) + rating
	course.RatingCount++
	course.Rating = total / float64(course.RatingCount)

	return s.Upsert(ctx, course)
}

// iterate walks every course record, decoding each and passing it to fn.
// fn returning false stops the walk.
func (s *Store) iterate(fn func(*Course) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(courseKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var course Course
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &course)
			})
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("key", string(it.Item().Key())).
					Msg("skipping undecodable course record")
				continue
			}
			if !fn(&course) {
				return nil
			}
		}
		return nil
	})
}

func hasTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}

// matchesAny reports whether any query token appears in the course's
// title, description, or topic list.
func matchesAny(c *Course, tokens []string) bool {
	title := strings.ToLower(c.Title)
	desc := strings.ToLower(c.Description)
	for _, tok := range tokens {
		if strings.Contains(title, tok) || strings.Contains(desc, tok) {
			return true
		}
		for _, topic := range c.Topics {
			if strings.Contains(strings.ToLower(topic), tok) {
				return true
			}
		}
	}
	return false
}

// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package userstate persists per-user preferences, feedback, and
// interaction history in BadgerDB and assembles the per-request user
// context snapshot for the recommendation engine.
package userstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/coursepilot/coursepilot/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	prefsKeyPrefix        = "prefs:"
	feedbackKeyPrefix     = "feedback:"
	interactionsKeyPrefix = "interactions:"
)

// History caps. Newest records are kept, oldest dropped.
const (
	maxFeedbackRecords    = 10
	maxInteractionRecords = 20
)

// TopicSource resolves a course ID to its topic tags, used for
// preference accretion on positive feedback.
type TopicSource interface {
	CourseTopics(ctx context.Context, courseID string) ([]string, error)
}

// Store is a BadgerDB-backed user state store. Safe for concurrent use.
type Store struct {
	db     *badger.DB
	topics TopicSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore wraps an open Badger database. topics may be nil, which
// disables preference accretion.
func NewStore(db *badger.DB, topics TopicSource, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		topics: topics,
		logger: logger.With().Str("component", "userstate").Logger(),
		now:    time.Now,
	}
}

// Open opens a Badger database at path and wraps it in a Store. The
// returned store owns the database; callers must Close it.
func Open(path string, topics TopicSource, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for user state: %w", err)
	}
	return NewStore(db, topics, logger), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetPreferences returns the user's stored preferences, or the zero
// value when none are stored yet.
func (s *Store) GetPreferences(ctx context.Context, userID int) (recommend.Preferences, error) {
	var prefs recommend.Preferences
	err := s.getJSON(prefsKey(userID), &prefs)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return recommend.Preferences{}, nil
	}
	if err != nil {
		return recommend.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// MergePreferences folds the update into the stored preferences and
// returns the result. Scalar fields overwrite only when non-empty; topic
// lists replace only when non-nil, so a partial update never clears
// fields it does not mention.
func (s *Store) MergePreferences(ctx context.Context, userID int, update recommend.Preferences) (recommend.Preferences, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return recommend.Preferences{}, err
	}

	if update.Topics != nil {
		prefs.Topics = update.Topics
	}
	if update.ExcludedTopics != nil {
		prefs.ExcludedTopics = update.ExcludedTopics
	}
	if update.Difficulty != "" {
		prefs.Difficulty = update.Difficulty
	}
	if update.Style != "" {
		prefs.Style = update.Style
	}
	if update.TimeCommitment != "" {
		prefs.TimeCommitment = update.TimeCommitment
	}

	if err := s.putJSON(prefsKey(userID), &prefs); err != nil {
		return recommend.Preferences{}, fmt.Errorf("store preferences: %w", err)
	}
	return prefs, nil
}

// RecordFeedback prepends the feedback to the user's history, capped at
// the newest records. Positive feedback (rating >= 4) accretes the
// course's topics into the user's preferred topics; accretion failures
// are logged and do not fail the write.
func (s *Store) RecordFeedback(ctx context.Context, userID int, fb recommend.FeedbackRecord) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}

	var history []recommend.FeedbackRecord
	if err := s.getJSON(feedbackKey(userID), &history); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("get feedback history: %w", err)
	}

	history = append([]recommend.FeedbackRecord{fb}, history...)
	if len(history) > maxFeedbackRecords {
		history = history[:maxFeedbackRecords]
	}

	if err := s.putJSON(feedbackKey(userID), history); err != nil {
		return fmt.Errorf("store feedback history: %w", err)
	}

	if fb.Positive() {
		s.accreteTopics(ctx, userID, fb)
	}
	return nil
}

// accreteTopics unions the rated course's topics into the user's
// preferred topics, plus any style/difficulty stated with the feedback.
func (s *Store) accreteTopics(ctx context.Context, userID int, fb recommend.FeedbackRecord) {
	update := recommend.Preferences{Style: fb.Style, Difficulty: fb.Difficulty}

	if s.topics != nil {
		topics, err := s.topics.CourseTopics(ctx, fb.CourseID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int("user_id", userID).
				Str("course_id", fb.CourseID).
				Msg("topic lookup failed, skipping preference accretion")
		} else if len(topics) > 0 {
			prefs, err := s.GetPreferences(ctx, userID)
			if err == nil {
				update.Topics = unionTopics(prefs.Topics, topics)
			}
		}
	}

	if update.Topics == nil && update.Style == "" && update.Difficulty == "" {
		return
	}
	if _, err := s.MergePreferences(ctx, userID, update); err != nil {
		s.logger.Warn().
			Err(err).
			Int("user_id", userID).
			Msg("preference accretion failed")
	}
}

// RecordInteraction prepends the interaction to the user's history,
// capped at the newest records. Unknown kinds are rejected.
func (s *Store) RecordInteraction(ctx context.Context, userID int, in recommend.InteractionRecord) error {
	if !in.Kind.Valid() {
		return fmt.Errorf("invalid interaction kind %q", in.Kind)
	}
	if in.At.IsZero() {
		in.At = s.now()
	}

	var history []recommend.InteractionRecord
	if err := s.getJSON(interactionsKey(userID), &history); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("get interaction history: %w", err)
	}

	history = append([]recommend.InteractionRecord{in}, history...)
	if len(history) > maxInteractionRecords {
		history = history[:maxInteractionRecords]
	}

	if err := s.putJSON(interactionsKey(userID), history); err != nil {
		return fmt.Errorf("store interaction history: %w", err)
	}
	return nil
}

// GetFeedback returns the user's feedback history, newest first.
func (s *Store) GetFeedback(ctx context.Context, userID int) ([]recommend.FeedbackRecord, error) {
	var history []recommend.FeedbackRecord
	err := s.getJSON(feedbackKey(userID), &history)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback history: %w", err)
	}
	return history, nil
}

// GetInteractions returns the user's interaction history, newest first.
func (s *Store) GetInteractions(ctx context.Context, userID int) ([]recommend.InteractionRecord, error) {
	var history []recommend.InteractionRecord
	err := s.getJSON(interactionsKey(userID), &history)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction history: %w", err)
	}
	return history, nil
}

// BuildContext assembles the engine's per-request snapshot of the user.
// A user with no stored state yields a valid empty context.
func (s *Store) BuildContext(ctx context.Context, userID int) (*recommend.UserContext, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	feedback, err := s.GetFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}
	interactions, err := s.GetInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &recommend.UserContext{
		UserID:             userID,
		Preferences:        prefs,
		RecentFeedback:     feedback,
		RecentInteractions: interactions,
	}, nil
}

func (s *Store) getJSON(key string, dst interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
}

func (s *Store) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// unionTopics appends the new topics not already present,
// case-insensitively, preserving existing order.
func unionTopics(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[strings.ToLower(t)] = struct{}{}
	}

	merged := append([]string(nil), existing...)
	for _, t := range incoming {
		tl := strings.ToLower(t)
		if _, dup := seen[tl]; dup {
			continue
		}
		seen[tl] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

func prefsKey(userID int) string        { return prefsKeyPrefix + strconv.Itoa(userID) }
func feedbackKey(userID int) string     { return feedbackKeyPrefix + strconv.Itoa(userID) }
func interactionsKey(userID int) string { return interactionsKeyPrefix + strconv.Itoa(userID) }

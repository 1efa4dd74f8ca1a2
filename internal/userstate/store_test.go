// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package userstate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/coursepilot/coursepilot/internal/recommend"
)

// mockTopicSource implements TopicSource for testing.
type mockTopicSource struct {
	topics map[string][]string
	err    error
}

func (m *mockTopicSource) CourseTopics(ctx context.Context, courseID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.topics[courseID], nil
}

func newTestStore(t *testing.T, topics TopicSource) *Store {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil // Disable logging for tests
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStore(db, topics, zerolog.Nop())
}

func TestPreferencesDefaultEmpty(t *testing.T) {
	s := newTestStore(t, nil)

	prefs, err := s.GetPreferences(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(prefs, recommend.Preferences{}) {
		t.Errorf("expected zero preferences, got %+v", prefs)
	}
}

func TestMergePreferences(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	first, err := s.MergePreferences(ctx, 1, recommend.Preferences{
		Topics:     []string{"go", "testing"},
		Difficulty: "beginner",
		Style:      "hands-on",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Topics) != 2 || first.Difficulty != "beginner" {
		t.Errorf("unexpected merged preferences: %+v", first)
	}

	// Partial update: unset fields keep their stored values.
	second, err := s.MergePreferences(ctx, 1, recommend.Preferences{Difficulty: "advanced"})
	if err != nil {
		t.Fatal(err)
	}
	if second.Difficulty != "advanced" {
		t.Errorf("difficulty not updated: %+v", second)
	}
	if !reflect.DeepEqual(second.Topics, []string{"go", "testing"}) || second.Style != "hands-on" {
		t.Errorf("partial update clobbered other fields: %+v", second)
	}

	// Non-nil topic list replaces.
	third, _ := s.MergePreferences(ctx, 1, recommend.Preferences{Topics: []string{"rust"}})
	if !reflect.DeepEqual(third.Topics, []string{"rust"}) {
		t.Errorf("topics not replaced: %+v", third)
	}
}

func TestRecordFeedbackCapsHistory(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	for i := 0; i < maxFeedbackRecords+5; i++ {
		fb := recommend.FeedbackRecord{CourseID: fmt.Sprintf("c%d", i), Rating: 3}
		if err := s.RecordFeedback(ctx, 1, fb); err != nil {
			t.Fatal(err)
		}
	}

	history, err := s.GetFeedback(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != maxFeedbackRecords {
		t.Fatalf("history length = %d, want %d", len(history), maxFeedbackRecords)
	}
	// Newest first.
	if history[0].CourseID != "c14" || history[len(history)-1].CourseID != "c5" {
		t.Errorf("unexpected history window: first %s last %s", history[0].CourseID, history[len(history)-1].CourseID)
	}
	if history[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestRecordFeedbackAccretesTopics(t *testing.T) {
	topics := &mockTopicSource{topics: map[string][]string{
		"go-101": {"go", "programming"},
	}}
	s := newTestStore(t, topics)
	ctx := context.Background()

	if _, err := s.MergePreferences(ctx, 1, recommend.Preferences{Topics: []string{"Go", "testing"}}); err != nil {
		t.Fatal(err)
	}

	err := s.RecordFeedback(ctx, 1, recommend.FeedbackRecord{
		CourseID:   "go-101",
		Rating:     5,
		Style:      "hands-on",
		Difficulty: "intermediate",
	})
	if err != nil {
		t.Fatal(err)
	}

	prefs, _ := s.GetPreferences(ctx, 1)
	// "go" already present case-insensitively; only "programming" is new.
	if !reflect.DeepEqual(prefs.Topics, []string{"Go", "testing", "programming"}) {
		t.Errorf("topics not accreted: %+v", prefs.Topics)
	}
	if prefs.Style != "hands-on" || prefs.Difficulty != "intermediate" {
		t.Errorf("feedback style/difficulty not stored: %+v", prefs)
	}
}

func TestRecordFeedbackNoAccretionBelowFloor(t *testing.T) {
	topics := &mockTopicSource{topics: map[string][]string{"c1": {"go"}}}
	s := newTestStore(t, topics)
	ctx := context.Background()

	if err := s.RecordFeedback(ctx, 1, recommend.FeedbackRecord{CourseID: "c1", Rating: 3}); err != nil {
		t.Fatal(err)
	}

	prefs, _ := s.GetPreferences(ctx, 1)
	if len(prefs.Topics) != 0 {
		t.Errorf("negative feedback accreted topics: %+v", prefs.Topics)
	}
}

func TestRecordFeedbackAccretionFailureIsNonFatal(t *testing.T) {
	topics := &mockTopicSource{err: errors.New("catalog down")}
	s := newTestStore(t, topics)
	ctx := context.Background()

	if err := s.RecordFeedback(ctx, 1, recommend.FeedbackRecord{CourseID: "c1", Rating: 5}); err != nil {
		t.Fatalf("feedback write failed on accretion error: %v", err)
	}

	history, _ := s.GetFeedback(ctx, 1)
	if len(history) != 1 {
		t.Errorf("feedback not stored: %+v", history)
	}
}

func TestRecordInteraction(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	for i := 0; i < maxInteractionRecords+3; i++ {
		in := recommend.InteractionRecord{CourseID: fmt.Sprintf("c%d", i), Kind: recommend.InteractionViewed}
		if err := s.RecordInteraction(ctx, 1, in); err != nil {
			t.Fatal(err)
		}
	}

	history, err := s.GetInteractions(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != maxInteractionRecords {
		t.Fatalf("history length = %d, want %d", len(history), maxInteractionRecords)
	}
	if history[0].CourseID != "c22" {
		t.Errorf("newest record not first: %+v", history[0])
	}
	if history[0].At.IsZero() {
		t.Error("At not stamped")
	}
}

func TestRecordInteractionRejectsUnknownKind(t *testing.T) {
	s := newTestStore(t, nil)
	err := s.RecordInteraction(context.Background(), 1, recommend.InteractionRecord{
		CourseID: "c1",
		Kind:     "skimmed",
	})
	if err == nil {
		t.Error("expected error for unknown interaction kind")
	}
}

func TestBuildContext(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	// Unknown user yields a valid empty context.
	empty, err := s.BuildContext(ctx, 99)
	if err != nil {
		t.Fatal(err)
	}
	if empty.UserID != 99 || len(empty.RecentFeedback) != 0 || len(empty.RecentInteractions) != 0 {
		t.Errorf("unexpected empty context: %+v", empty)
	}

	if _, err := s.MergePreferences(ctx, 1, recommend.Preferences{Topics: []string{"go"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordFeedback(ctx, 1, recommend.FeedbackRecord{CourseID: "c1", Rating: 5}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordInteraction(ctx, 1, recommend.InteractionRecord{CourseID: "c1", Kind: recommend.InteractionCompleted}); err != nil {
		t.Fatal(err)
	}

	uc, err := s.BuildContext(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(uc.Preferences.Topics) != 1 || len(uc.RecentFeedback) != 1 || len(uc.RecentInteractions) != 1 {
		t.Errorf("context incomplete: %+v", uc)
	}
}

// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/coursepilot/coursepilot/internal/catalog"
	"github.com/coursepilot/coursepilot/internal/logging"
	"github.com/coursepilot/coursepilot/internal/models"
	"github.com/coursepilot/coursepilot/internal/recommend"
)

// mockEngineCatalog backs a real engine in tests.
type mockEngineCatalog struct {
	courses []recommend.Candidate
}

func (m *mockEngineCatalog) GetCourse(_ context.Context, id string) (*recommend.Candidate, error) {
	for i := range m.courses {
		if m.courses[i].ID == id {
			c := m.courses[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockEngineCatalog) SearchContent(_ context.Context, _ string, exclude map[string]struct{}) ([]recommend.Candidate, error) {
	var out []recommend.Candidate
	for _, c := range m.courses {
		if _, skip := exclude[c.ID]; !skip {
			c.Source = recommend.SourceContent
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockEngineCatalog) TopRated(_ context.Context, limit int) ([]recommend.Candidate, error) {
	if limit > len(m.courses) {
		limit = len(m.courses)
	}
	return append([]recommend.Candidate(nil), m.courses[:limit]...), nil
}

// mockEngineVector returns fixed vector candidates.
type mockEngineVector struct {
	results []recommend.Candidate
}

func (m *mockEngineVector) Search(_ context.Context, _ string, _ int, _ float64, _ []string) ([]recommend.Candidate, error) {
	out := make([]recommend.Candidate, len(m.results))
	copy(out, m.results)
	for i := range out {
		out[i].Source = recommend.SourceVector
	}
	return out, nil
}

type mockUserContextSource struct {
	uc  *recommend.UserContext
	err error
}

func (m *mockUserContextSource) BuildContext(_ context.Context, userID int) (*recommend.UserContext, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.uc == nil {
		return &recommend.UserContext{UserID: userID}, nil
	}
	return m.uc, nil
}

type mockExplainer struct {
	text  string
	calls int
}

func (m *mockExplainer) Explain(_ context.Context, _ []recommend.ScoredCandidate, _ *recommend.UserContext, _ string) string {
	m.calls++
	return m.text
}

type mockSearcher struct {
	results      []recommend.Candidate
	err          error
	lastQuery    string
	lastLimit    int
	lastMinSim   float64
	lastExcluded []string
}

func (m *mockSearcher) Search(_ context.Context, query string, limit int, minSimilarity float64, excludeKeywords []string) ([]recommend.Candidate, error) {
	m.lastQuery = query
	m.lastLimit = limit
	m.lastMinSim = minSimilarity
	m.lastExcluded = excludeKeywords
	return m.results, m.err
}

type mockCourseStore struct {
	courses map[string]*catalog.Course
	listErr error
	upserts []*catalog.Course
}

func (m *mockCourseStore) Get(_ context.Context, id string) (*catalog.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, catalog.ErrNotFound
}

func (m *mockCourseStore) Upsert(_ context.Context, course *catalog.Course) error {
	m.upserts = append(m.upserts, course)
	return nil
}

func (m *mockCourseStore) List(_ context.Context, _ catalog.Filter) ([]catalog.Course, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []catalog.Course
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

type mockUserStateStore struct {
	prefs        recommend.Preferences
	prefsErr     error
	feedback     []recommend.FeedbackRecord
	feedbackErr  error
	interactions []recommend.InteractionRecord
}

func (m *mockUserStateStore) GetPreferences(_ context.Context, _ int) (recommend.Preferences, error) {
	return m.prefs, m.prefsErr
}

func (m *mockUserStateStore) MergePreferences(_ context.Context, _ int, update recommend.Preferences) (recommend.Preferences, error) {
	if m.prefsErr != nil {
		return recommend.Preferences{}, m.prefsErr
	}
	if len(update.Topics) > 0 {
		m.prefs.Topics = update.Topics
	}
	if update.Difficulty != "" {
		m.prefs.Difficulty = update.Difficulty
	}
	return m.prefs, nil
}

func (m *mockUserStateStore) RecordFeedback(_ context.Context, _ int, fb recommend.FeedbackRecord) error {
	if m.feedbackErr != nil {
		return m.feedbackErr
	}
	m.feedback = append(m.feedback, fb)
	return nil
}

func (m *mockUserStateStore) RecordInteraction(_ context.Context, _ int, in recommend.InteractionRecord) error {
	m.interactions = append(m.interactions, in)
	return nil
}

type mockRater struct {
	ratings map[string]float64
	err     error
}

func (m *mockRater) RecordRating(_ context.Context, courseID string, rating float64) error {
	if m.err != nil {
		return m.err
	}
	if m.ratings == nil {
		m.ratings = make(map[string]float64)
	}
	m.ratings[courseID] = rating
	return nil
}

type mockCounter struct {
	count int
	err   error
}

func (m *mockCounter) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

type mockVectorHealth struct {
	err   error
	state string
}

func (m *mockVectorHealth) Health(_ context.Context) error { return m.err }
func (m *mockVectorHealth) State() string                  { return m.state }

// testFixture bundles the mocks behind a routed handler.
type testFixture struct {
	handler   http.Handler
	catalog   *mockCourseStore
	userState *mockUserStateStore
	rater     *mockRater
	searcher  *mockSearcher
	explainer *mockExplainer
	counter   *mockCounter
	vector    *mockVectorHealth
}

func sampleCandidates() []recommend.Candidate {
	return []recommend.Candidate{
		{ID: "go-101", Title: "Practical Go", Topics: []string{"go"}, Difficulty: "beginner", Rating: 4.6, Similarity: 0.9},
		{ID: "py-201", Title: "Python Deep Dive", Topics: []string{"python"}, Difficulty: "intermediate", Rating: 4.2, Similarity: 0.7},
		{ID: "ml-301", Title: "Machine Learning", Topics: []string{"ml"}, Difficulty: "advanced", Rating: 4.8, Similarity: 0.6},
	}
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	logger := logging.NewTestLogger(testWriter{t})

	engine, err := recommend.NewEngine(
		recommend.DefaultConfig(),
		logger,
		&mockEngineCatalog{courses: sampleCandidates()},
		&mockEngineVector{results: sampleCandidates()},
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	f := &testFixture{
		catalog: &mockCourseStore{courses: map[string]*catalog.Course{
			"go-101": {ID: "go-101", Title: "Practical Go", Topics: []string{"go"}, Difficulty: "beginner", Rating: 4.6},
		}},
		userState: &mockUserStateStore{},
		rater:     &mockRater{},
		searcher:  &mockSearcher{results: sampleCandidates()},
		explainer: &mockExplainer{text: "These match your interest in Go."},
		counter:   &mockCounter{count: 3},
		vector:    &mockVectorHealth{state: "closed"},
	}

	router := NewRouter(
		&MiddlewareConfig{CORSAllowedOrigins: []string{"*"}},
		NewRecommendHandler(engine, &mockUserContextSource{}, f.searcher, f.explainer),
		NewCatalogHandler(f.catalog),
		NewUserStateHandler(f.userState, f.rater),
		NewHealthHandler(f.counter, f.vector, "test"),
	)
	f.handler = router.Routes()

	return f
}

// testWriter routes logger output through t.Log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// doRequest serves req through the router and decodes the envelope.
func doRequest(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, *models.APIResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return rec, &envelope
}

// dataMap asserts the envelope data is a JSON object.
func dataMap(t *testing.T, envelope *models.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data type = %T, want object", envelope.Data)
	}
	return m
}

var errStore = errors.New("store unavailable")

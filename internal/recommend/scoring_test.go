// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"math"
	"testing"
)

func defaultScorer() *Scorer {
	return NewScorer(DefaultConfig().Weights)
}

func TestScoreOrderingAndStability(t *testing.T) {
	s := defaultScorer()
	candidates := []Candidate{
		{ID: "low", Rating: 2.0, Similarity: 0.1},
		{ID: "tie-first", Rating: 4.0, Similarity: 0.5},
		{ID: "tie-second", Rating: 4.0, Similarity: 0.5},
		{ID: "high", Rating: 5.0, Similarity: 0.9},
	}

	scored := s.Score(candidates, nil, nil)

	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Fatalf("scores not non-increasing at %d: %v", i, scored)
		}
	}
	if scored[0].ID != "high" || scored[3].ID != "low" {
		t.Errorf("unexpected extremes: %+v", scored)
	}

	// Equal scores keep input order.
	if scored[1].ID != "tie-first" || scored[2].ID != "tie-second" {
		t.Errorf("tie order not stable: %s before %s", scored[1].ID, scored[2].ID)
	}
}

func TestScoreAnonymousFormula(t *testing.T) {
	s := defaultScorer()
	c := Candidate{ID: "a", Rating: 4.0, Similarity: 0.5}

	scored := s.Score([]Candidate{c}, nil, nil)
	want := 4.0/5.0 + 0.5*0.5
	if math.Abs(scored[0].Score-want) > 1e-9 {
		t.Errorf("anonymous score = %f, want %f", scored[0].Score, want)
	}
}

func TestScorePerItemDegradation(t *testing.T) {
	s := defaultScorer()
	uc := &UserContext{Preferences: Preferences{Topics: []string{"go"}}}
	candidates := []Candidate{
		{ID: "good", Rating: 4.0, Similarity: 0.8, Topics: []string{"go"}},
		{ID: "nan-sim", Rating: 3.0, Similarity: math.NaN()},
		{ID: "bad-rating", Rating: 9.0, Similarity: 0.5},
	}

	scored := s.Score(candidates, uc, nil)

	byID := make(map[string]float64, len(scored))
	for _, sc := range scored {
		byID[sc.ID] = sc.Score
	}

	// Malformed items degrade to rating-only, clamped into [0, 1].
	if got := byID["nan-sim"]; math.Abs(got-3.0/5.0) > 1e-9 {
		t.Errorf("nan-sim score = %f, want %f", got, 3.0/5.0)
	}
	if got := byID["bad-rating"]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("bad-rating score = %f, want 1.0", got)
	}

	// The well-formed item still gets the full formula.
	if byID["good"] <= 0.6 {
		t.Errorf("good item score unexpectedly low: %f", byID["good"])
	}
}

func TestScoreVectorProvenanceBonus(t *testing.T) {
	s := defaultScorer()
	uc := &UserContext{}
	base := Candidate{ID: "x", Rating: 4.0, Similarity: 0.5}

	fromVector := base
	fromVector.Source = SourceVector
	fromContent := base
	fromContent.Source = SourceContent

	vs := s.Score([]Candidate{fromVector}, uc, nil)[0].Score
	cs := s.Score([]Candidate{fromContent}, uc, nil)[0].Score
	if math.Abs(vs-cs-0.02) > 1e-9 {
		t.Errorf("vector bonus = %f, want 0.02", vs-cs)
	}
}

func TestTopicAffinity(t *testing.T) {
	tests := []struct {
		name      string
		topics    []string
		preferred []string
		positive  []string
		want      float64
	}{
		{"no topics", nil, []string{"go"}, nil, 0},
		{"no signals", []string{"go"}, nil, nil, 0},
		{"full preferred match", []string{"go"}, []string{"go"}, nil, 1.0},
		{"half preferred match", []string{"python", "fundamentals"}, []string{"python", "data science"}, nil, 0.5},
		{"case insensitive", []string{"Go"}, []string{"gO"}, nil, 1.0},
		{"history frequency capped", []string{"go"}, nil, []string{"go", "go", "go", "go"}, 0.8},
		{"history frequency partial", []string{"go"}, nil, []string{"go"}, 1.0 / 3.0},
		{"sum capped at one", []string{"go"}, []string{"go"}, []string{"go", "go", "go"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := topicAffinity(tt.topics, tt.preferred, tt.positive)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("topicAffinity() = %f, want %f", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("topicAffinity() = %f outside [0,1]", got)
			}
		})
	}
}

func TestTopicAffinityMonotonic(t *testing.T) {
	preferred := []string{"go", "testing", "concurrency"}
	prev := -1.0
	for n := 0; n <= len(preferred); n++ {
		topics := append(preferred[:n:n], "filler-1", "filler-2", "filler-3")
		affinity := topicAffinity(topics, preferred, nil)
		if affinity < prev {
			t.Fatalf("affinity decreased with more matches: n=%d got %f after %f", n, affinity, prev)
		}
		prev = affinity
	}
}

func TestDifficultyFit(t *testing.T) {
	tests := []struct {
		difficulty string
		preferred  string
		want       float64
	}{
		{"", "beginner", 0.5},
		{"advanced", "", 0.5},
		{"beginner", "beginner", 1.0},
		{"Beginner", "BEGINNER", 1.0},
		{"beginner", "intermediate", 0.7},
		{"beginner", "advanced", 0.3},
		{"advanced", "beginner", 0.3},
		{"expert", "beginner", 0.5},
	}

	for _, tt := range tests {
		got := difficultyFit(tt.difficulty, tt.preferred)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("difficultyFit(%q, %q) = %f, want %f", tt.difficulty, tt.preferred, got, tt.want)
		}
	}
}

func TestStyleFit(t *testing.T) {
	tests := []struct {
		format    string
		preferred string
		want      float64
	}{
		{"", "hands-on", 0.5},
		{"video", "", 0.5},
		{"interactive video", "video", 1.0},
		{"Video lectures", "video", 1.0},
		{"hands-on labs", "practical", 0.8},
		{"video", "visual", 0.8},
		{"text", "hands-on", 0.4},
	}

	for _, tt := range tests {
		got := styleFit(tt.format, tt.preferred)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("styleFit(%q, %q) = %f, want %f", tt.format, tt.preferred, got, tt.want)
		}
	}
}

func TestDiversityBonus(t *testing.T) {
	tests := []struct {
		name      string
		topics    []string
		preferred []string
		want      float64
	}{
		{"no candidate topics", nil, []string{"go"}, 0.2},
		{"no preferred topics", []string{"go"}, nil, 0.2},
		{"all new", []string{"rust", "zig"}, []string{"go"}, 0.5},
		{"half new", []string{"go", "rust"}, []string{"go"}, 0.25},
		{"none new", []string{"go"}, []string{"go"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diversityBonus(tt.topics, tt.preferred)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("diversityBonus() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestScoreEndToEndScenario(t *testing.T) {
	s := defaultScorer()
	uc := &UserContext{
		UserID: 1,
		Preferences: Preferences{
			Topics:     []string{"python", "data science"},
			Difficulty: "beginner",
		},
	}
	best := Candidate{
		ID:         "py-101",
		Topics:     []string{"python", "fundamentals"},
		Rating:     4.5,
		Difficulty: "beginner",
		Format:     "interactive",
		Similarity: 0.6,
		Source:     SourceVector,
	}
	worse := Candidate{
		ID:         "misc",
		Topics:     []string{"cooking"},
		Rating:     3.0,
		Difficulty: "advanced",
		Similarity: 0.2,
		Source:     SourceContent,
	}

	scored := s.Score([]Candidate{worse, best}, uc, nil)

	if scored[0].ID != "py-101" {
		t.Fatalf("expected py-101 ranked first, got %s", scored[0].ID)
	}
	if got := scored[0].Score; got < 0.55 || got > 0.75 {
		t.Errorf("composite score = %f, want in [0.55, 0.75]", got)
	}
}

// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"reflect"
	"testing"
)

func TestExtractNegativeKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query",
			query: "",
			want:  nil,
		},
		{
			name:  "no negative intent",
			query: "machine learning for beginners",
			want:  nil,
		},
		{
			name:  "dont want to learn",
			query: "I don't want to learn javascript",
			want:  []string{"javascript"},
		},
		{
			// The catch-all "not X" pattern also fires here. Union
			// policy keeps its token rather than preferring the
			// longer phrase match.
			name:  "not interested in",
			query: "not interested in web development",
			want:  []string{"development", "interested", "web"},
		},
		{
			name:  "avoid",
			query: "python courses, avoid statistics",
			want:  []string{"statistics"},
		},
		{
			name:  "but not",
			query: "I want data science but not statistics",
			want:  []string{"statistics"},
		},
		{
			name:  "except",
			query: "anything except frontend frameworks",
			want:  []string{"frameworks", "frontend"},
		},
		{
			name:  "without",
			query: "backend engineering without devops",
			want:  []string{"devops"},
		},
		{
			name:  "i dont like",
			query: "I don't like math heavy content",
			want:  []string{"content", "heavy", "math"},
		},
		{
			name:  "captured span stops at punctuation",
			query: "avoid databases, and show me golang",
			want:  []string{"databases"},
		},
		{
			name:  "multiple patterns union deduplicated",
			query: "avoid rust, but not rust macros",
			want:  []string{"macros", "rust"},
		},
		{
			name:  "case insensitive",
			query: "AVOID Kubernetes",
			want:  []string{"kubernetes"},
		},
		{
			name:  "punctuation trimmed from tokens",
			query: "no 'legacy systems'!",
			want:  []string{"legacy", "systems"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNegativeKeywords(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractNegativeKeywords(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestExtractNegativeKeywordsSorted(t *testing.T) {
	got := ExtractNegativeKeywords("avoid zebra topics, except alpha subjects")
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("keywords not sorted: %v", got)
		}
	}
}

func TestExtractNegativeKeywordsDeterministic(t *testing.T) {
	query := "I don't want to learn php, avoid perl, but not assembly"
	first := ExtractNegativeKeywords(query)
	for i := 0; i < 10; i++ {
		again := ExtractNegativeKeywords(query)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %v vs %v", i, again, first)
		}
	}
}

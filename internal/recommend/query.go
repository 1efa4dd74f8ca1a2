// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import "strings"

// fallbackQuery keeps downstream search meaningful when nothing else
// produced a search string.
const fallbackQuery = "programming software development technology"

// SynthesizeQueries builds the ordered search strings for one request,
// most important first, capped at maxParts. Components are appended only
// when their data exists:
//
//  1. the explicit query, verbatim
//  2. a phrase combining the user's preferred topics
//  3. a phrase combining learning style and difficulty preference
//  4. title+topic phrases from recently well-rated courses
//
// Negative phrases are left in the explicit query untouched; filtering
// them is the extractor's job, not the synthesizer's. When no component
// produces anything the generic fallback phrase is returned so search is
// never given an empty query.
func SynthesizeQueries(query string, uc *UserContext, positiveCourses []Candidate, maxParts int) []string {
	queries := make([]string, 0, 4)

	if strings.TrimSpace(query) != "" {
		queries = append(queries, query)
	}

	if uc != nil {
		if len(uc.Preferences.Topics) > 0 {
			queries = append(queries, "courses about "+strings.Join(uc.Preferences.Topics, " "))
		}

		var style strings.Builder
		if uc.Preferences.Style != "" {
			style.WriteString(uc.Preferences.Style + " learning")
		}
		if uc.Preferences.Difficulty != "" {
			if style.Len() > 0 {
				style.WriteString(" ")
			}
			style.WriteString(uc.Preferences.Difficulty + " level")
		}
		if style.Len() > 0 {
			queries = append(queries, style.String())
		}
	}

	for _, course := range positiveCourses {
		parts := append([]string{course.Title}, course.Topics...)
		queries = append(queries, strings.Join(parts, " "))
	}

	if len(queries) == 0 {
		return []string{fallbackQuery}
	}
	if maxParts > 0 && len(queries) > maxParts {
		queries = queries[:maxParts]
	}
	return queries
}

// CombineQueries joins synthesized search strings into the single query
// text passed to the vector index.
func CombineQueries(queries []string) string {
	return strings.Join(queries, " ")
}

// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

// FuseCandidates merges vector-sourced and content-sourced candidate
// lists into a single deduplicated list keyed on course ID. Every vector
// candidate is preserved; content candidates are added only for IDs
// absent from the vector set, so on collision the vector record and its
// similarity value win. Provenance is stamped on each output record.
//
// The merge is pure, order-preserving (vector list first, then new
// content items in input order), idempotent, and O(n+m).
func FuseCandidates(vector, content []Candidate) []Candidate {
	fused := make([]Candidate, 0, len(vector)+len(content))
	seen := make(map[string]struct{}, len(vector)+len(content))

	for _, c := range vector {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		c.Source = SourceVector
		fused = append(fused, c)
	}

	for _, c := range content {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		c.Source = SourceContent
		c.Similarity = 0
		fused = append(fused, c)
	}

	return fused
}

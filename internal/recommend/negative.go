// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"regexp"
	"sort"
	"strings"
)

// negativePatterns are the phrase patterns that signal exclusion intent.
// The captured span runs to the next clause boundary. All matches across
// all patterns are unioned; overlapping matches are not disambiguated.
// Longest-match-wins was considered and rejected to keep parity with the
// established extraction behavior (see negative_test.go for the
// overlapping-phrase case).
var negativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`don't want to learn ([^,.!?]+)`),
	regexp.MustCompile(`not interested in ([^,.!?]+)`),
	regexp.MustCompile(`avoid ([^,.!?]+)`),
	regexp.MustCompile(`but not ([^,.!?]+)`),
	regexp.MustCompile(`except ([^,.!?]+)`),
	regexp.MustCompile(`without ([^,.!?]+)`),
	regexp.MustCompile(`no ([^,.!?]+)`),
	regexp.MustCompile(`i don't like ([^,.!?]+)`),
	// Catch-all for bare "not X".
	regexp.MustCompile(`not (\w+)`),
}

// keywordCutset is stripped from both ends of every extracted token.
const keywordCutset = ".,!?;:'\"()"

// ExtractNegativeKeywords parses a free-text query for exclusion phrases
// and returns the deduplicated, lowercased keyword tokens, sorted for
// determinism. Returns nil for empty input. The function is pure.
func ExtractNegativeKeywords(query string) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	lower := strings.ToLower(query)
	seen := make(map[string]struct{})

	for _, pat := range negativePatterns {
		for _, m := range pat.FindAllStringSubmatch(lower, -1) {
			for _, tok := range strings.Fields(m[1]) {
				tok = strings.Trim(tok, keywordCutset)
				if tok == "" {
					continue
				}
				seen[tok] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for kw := range seen {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

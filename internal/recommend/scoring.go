// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"math"
	"sort"
	"strings"
)

// formatStyleCompat maps format keywords to compatible learning-style
// keywords. A preferred style matching any compatible keyword scores 0.8.
var formatStyleCompat = map[string][]string{
	"hands-on":      {"hands-on", "practical", "project-based", "interactive"},
	"video":         {"visual", "auditory", "multimedia"},
	"interactive":   {"hands-on", "visual", "engaging"},
	"text":          {"reading", "theoretical", "self-paced"},
	"live":          {"interactive", "collaborative", "social"},
	"project-based": {"hands-on", "practical", "applied"},
}

// Scorer computes composite scores for fused candidates.
type Scorer struct {
	weights SignalWeights
}

// NewScorer creates a scorer with the given signal weights.
func NewScorer(weights SignalWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score ranks the fused candidates in strictly non-increasing composite
// score order. Ties preserve input order (stable sort). uc may be nil for
// anonymous requests, in which case the coarse rating+similarity formula
// applies. positiveTopics are the topics of the user's recently
// well-rated courses, duplicates kept: frequency drives the history
// contribution in topicAffinity.
//
// A candidate with an unusable shape (NaN/Inf similarity, rating outside
// [0, 5]) degrades to the rating-only score for that item alone rather
// than failing the whole batch.
func (s *Scorer) Score(candidates []Candidate, uc *UserContext, positiveTopics []string) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredCandidate{Candidate: c, Score: s.scoreOne(c, uc, positiveTopics)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// scoreOne computes the composite score for a single candidate.
func (s *Scorer) scoreOne(c Candidate, uc *UserContext, positiveTopics []string) float64 {
	if !usableShape(c) {
		return ratingOnlyScore(c)
	}

	if uc == nil {
		return ratingOnlyScore(c) + s.weights.AnonymousSimilarity*c.Similarity
	}

	prefs := uc.Preferences
	score := s.weights.Rating * (c.Rating / 5.0)
	score += s.weights.Similarity * c.Similarity
	score += s.weights.TopicAffinity * topicAffinity(c.Topics, prefs.Topics, positiveTopics)
	score += s.weights.DifficultyFit * difficultyFit(c.Difficulty, prefs.Difficulty)
	score += s.weights.StyleFit * styleFit(c.Format, prefs.Style)
	score += s.weights.Diversity * diversityBonus(c.Topics, prefs.Topics)
	if c.Source == SourceVector {
		score += s.weights.VectorBonus
	}
	return score
}

// usableShape reports whether the candidate's numeric fields are sane
// enough for full scoring.
func usableShape(c Candidate) bool {
	if math.IsNaN(c.Similarity) || math.IsInf(c.Similarity, 0) {
		return false
	}
	if c.Similarity < 0 || c.Similarity > 1 {
		return false
	}
	if math.IsNaN(c.Rating) || c.Rating < 0 || c.Rating > 5 {
		return false
	}
	return true
}

// ratingOnlyScore is the degraded score used for anonymous base scoring
// and per-item failure isolation.
func ratingOnlyScore(c Candidate) float64 {
	r := c.Rating
	if math.IsNaN(r) || r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return r / 5.0
}

// topicAffinity scores how well candidate topics match the user's
// preferred topics and positively-rated history. Each candidate topic
// matching a preferred topic contributes 1.0; each candidate topic seen
// in positive history contributes min(frequency/3, 0.8) where frequency
// counts occurrences across recent positive feedback. The sum is divided
// by the candidate topic count and capped at 1.0.
func topicAffinity(topics, preferred, positive []string) float64 {
	if len(topics) == 0 {
		return 0
	}

	prefSet := lowerSet(preferred)
	positiveFreq := make(map[string]int, len(positive))
	for _, t := range positive {
		positiveFreq[strings.ToLower(t)]++
	}

	var score float64
	for _, t := range topics {
		tl := strings.ToLower(t)
		if _, ok := prefSet[tl]; ok {
			score += 1.0
		}
		if freq := positiveFreq[tl]; freq > 0 {
			score += math.Min(float64(freq)/3.0, 0.8)
		}
	}

	return math.Min(score/float64(len(topics)), 1.0)
}

// difficultyFit scores how close the candidate difficulty is to the
// preferred one: 1.0 exact, 0.7 one tier apart, 0.3 beyond, 0.5 when
// either side is missing or unmapped.
func difficultyFit(difficulty, preferred string) float64 {
	if difficulty == "" || preferred == "" {
		return 0.5
	}
	dl, pl := strings.ToLower(difficulty), strings.ToLower(preferred)
	if dl == pl {
		return 1.0
	}

	di, pi := tierIndex(dl), tierIndex(pl)
	if di < 0 || pi < 0 {
		return 0.5
	}
	if abs(di-pi) == 1 {
		return 0.7
	}
	return 0.3
}

// tierIndex maps a difficulty tier onto its position in the ordered tier
// list, or -1 when unmapped.
func tierIndex(tier string) int {
	for i, t := range difficultyTiers {
		if t == tier {
			return i
		}
	}
	return -1
}

// styleFit scores format/learning-style compatibility: 1.0 when the
// preferred style is a substring of the format, 0.8 on a compatibility
// table match, 0.4 otherwise, 0.5 when either side is missing.
func styleFit(format, preferred string) float64 {
	if format == "" || preferred == "" {
		return 0.5
	}
	fl, pl := strings.ToLower(format), strings.ToLower(preferred)
	if strings.Contains(fl, pl) {
		return 1.0
	}

	for formatKey, compatible := range formatStyleCompat {
		if !strings.Contains(fl, formatKey) {
			continue
		}
		for _, style := range compatible {
			if strings.Contains(pl, style) {
				return 0.8
			}
		}
	}
	return 0.4
}

// diversityBonus rewards exploring topics beyond current preferences:
// half the fraction of candidate topics not already preferred, 0.2 when
// either side has no topics.
func diversityBonus(topics, preferred []string) float64 {
	if len(topics) == 0 || len(preferred) == 0 {
		return 0.2
	}
	prefSet := lowerSet(preferred)
	newTopics := 0
	for _, t := range topics {
		if _, ok := prefSet[strings.ToLower(t)]; !ok {
			newTopics++
		}
	}
	return 0.5 * float64(newTopics) / float64(len(topics))
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

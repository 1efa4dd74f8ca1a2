// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package recommend implements the recommendation scoring and fusion engine.
//
// The engine blends two candidate sources - nearest-neighbor vector search
// and content-based catalog filtering - into a single ranked list:
//
//  1. Search intent is synthesized from the explicit query, stored
//     preferences, and topics of recently well-rated courses. Negative
//     phrases in the query ("but not statistics") become exclusion
//     keywords applied by the vector index.
//  2. Both sources are queried concurrently; a failure in one degrades
//     the request to the other source alone.
//  3. Candidates are merged by course ID with vector results taking
//     priority, then ranked under a weighted composite of rating, vector
//     similarity, topic affinity, difficulty fit, format fit, and a small
//     diversity bonus. Ties preserve input order.
//  4. Ranked lists are memoized per (user, query, limit) for a short TTL.
//  5. Any pipeline failure falls back to a top-rated list; the engine
//     never returns an error alongside an empty result while the catalog
//     is reachable.
//
// The package depends only on its collaborator interfaces (CatalogStore,
// VectorIndex) so it can be wired to any storage or index backend without
// circular imports.
package recommend

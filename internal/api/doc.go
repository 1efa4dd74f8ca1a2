// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package api exposes the HTTP surface: recommendation, catalog, feedback,
// preference, interaction and health endpoints on a chi router.
//
// Every response uses the models.APIResponse envelope. Handlers take the
// user ID from the URL path; there is no session layer. Rate limiting,
// CORS, request-ID propagation and Prometheus instrumentation are applied
// as router middleware.
package api

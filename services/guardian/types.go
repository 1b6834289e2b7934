// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardian

import (
	"time"

	"github.com/AleutianAI/guardian/services/guardian/detect"
)

// =============================================================================
// Requests
// =============================================================================

// SoloRequest is the request body for POST /v1/guardian/solo.
type SoloRequest struct {
	// Containers names the containers to keep visible.
	Containers []string `json:"containers" binding:"required,min=1,dive,required"`
}

// ToggleRequest is the request body for POST /v1/guardian/toggle. The
// selection is only used when the scene is in normal mode.
type ToggleRequest struct {
	Containers []string `json:"containers"`
}

// ShotRequest is the request body for PUT /v1/guardian/shot.
type ShotRequest struct {
	Shot string `json:"shot" binding:"required"`
}

// ArtistRequest is the request body for PUT /v1/guardian/artist.
type ArtistRequest struct {
	Artist string `json:"artist" binding:"required"`
}

// DetectorRequest is the request body for PUT /v1/guardian/checks/:kind.
type DetectorRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// =============================================================================
// Responses
// =============================================================================

// ReportResponse is the JSON form of a Report.
type ReportResponse struct {
	Document  string    `json:"document"`
	CheckedAt time.Time `json:"checked_at"`

	// OK is true when every enabled detector ran and found nothing.
	OK bool `json:"ok"`

	// Offenders is the total across detectors.
	Offenders int `json:"offenders"`

	Results map[detect.Kind]detect.CheckResult `json:"results"`

	// Faults maps faulted detectors to their error message.
	Faults map[detect.Kind]string `json:"faults,omitempty"`
}

// NewReportResponse converts a report.
func NewReportResponse(r Report) ReportResponse {
	resp := ReportResponse{
		Document:  string(r.Document),
		CheckedAt: r.CheckedAt,
		OK:        r.OK(),
		Offenders: r.Offenders(),
		Results:   r.Results,
	}
	if len(r.Faults) > 0 {
		resp.Faults = make(map[detect.Kind]string, len(r.Faults))
		for k, err := range r.Faults {
			resp.Faults[k] = err.Error()
		}
	}
	return resp
}

// DetectorsResponse lists the enabled detectors.
type DetectorsResponse struct {
	Enabled []detect.Kind `json:"enabled"`
}

// ArtistResponse is the response for GET|PUT /v1/guardian/artist.
type ArtistResponse struct {
	Artist string `json:"artist"`
}

// HealthResponse is the response for GET /v1/guardian/health.
type HealthResponse struct {
	// Status is "healthy", or "degraded" when no document is open.
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details []string `json:"details,omitempty"`
}

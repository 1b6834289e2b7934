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

import "errors"

// Sentinel errors for the guardian service.
var (
	// ErrNoDocument indicates no scene is open in the session.
	ErrNoDocument = errors.New("no document open")

	// ErrNoReport indicates no validation pass has published a report yet.
	ErrNoReport = errors.New("no report published yet")

	// ErrSettingsUnavailable indicates the session has no settings store.
	ErrSettingsUnavailable = errors.New("artist settings not configured")

	// ErrSnapshotsUnavailable indicates the session has no snapshot manager.
	ErrSnapshotsUnavailable = errors.New("snapshots not configured")
)

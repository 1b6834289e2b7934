// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import "errors"

var (
	// ErrNoSnapshots is returned when the snapshot directory holds no
	// snapshot images.
	ErrNoSnapshots = errors.New("no snapshots found")

	// ErrAlreadyProcessed is returned when the newest snapshot was already
	// converted.
	ErrAlreadyProcessed = errors.New("snapshot already processed")

	// ErrConversionFailed is returned when the converter fails and left no
	// output behind.
	ErrConversionFailed = errors.New("snapshot conversion failed")

	// ErrNoOutputRoot is returned for an unsaved document when no fallback
	// output root is configured.
	ErrNoOutputRoot = errors.New("no output root for unsaved document")

	// ErrInvalidConverter is returned for a converter command without a
	// program or without {src}/{dst} placeholders.
	ErrInvalidConverter = errors.New("invalid converter command")
)

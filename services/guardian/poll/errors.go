// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package poll

import "errors"

var (
	// ErrPanicked wraps a panic recovered from work run on the loop.
	ErrPanicked = errors.New("panic on main loop")

	// ErrStopped is returned when submitting to a loop that is not running
	// anymore.
	ErrStopped = errors.New("main loop stopped")

	// ErrInvalidInterval is returned for a poll interval outside
	// [MinInterval, MaxInterval].
	ErrInvalidInterval = errors.New("poll interval out of range")
)

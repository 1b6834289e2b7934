// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package solo

import "errors"

var (
	// ErrEmptySelection is returned by Enter when no container is selected.
	// Nothing is changed; callers show a message to the user.
	ErrEmptySelection = errors.New("no containers selected")

	// ErrUnknownContainer is returned when a selected name is not a
	// container of the document.
	ErrUnknownContainer = errors.New("unknown container")
)

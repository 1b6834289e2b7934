// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOrphans is returned when top-level nodes are neither group roots nor
	// of an exempt type. Synchronization does not start.
	ErrOrphans = errors.New("top-level nodes outside any group")

	// ErrAssignFailed marks a node whose container assignment failed. It is
	// logged and counted; the pass continues.
	ErrAssignFailed = errors.New("container assignment failed")
)

// MaxOrphanNames is how many orphan names an OrphanError carries.
const MaxOrphanNames = 5

// OrphanError lists the top-level nodes that block synchronization.
type OrphanError struct {
	// Names holds up to MaxOrphanNames orphan names in document order.
	Names []string

	// Total is the number of orphans.
	Total int
}

func (e *OrphanError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrOrphans, strings.Join(e.Names, ", "))
	if more := e.Total - len(e.Names); more > 0 {
		msg += fmt.Sprintf(" and %d more", more)
	}
	return msg
}

// Is reports whether target is ErrOrphans.
func (e *OrphanError) Is(target error) bool {
	return target == ErrOrphans
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traverse

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// ErrNodeUnreadable marks a node the host failed to read during a walk.
// The node and its subtree are skipped.
var ErrNodeUnreadable = errors.New("node unreadable")

// NodeError wraps a host read failure for one node.
type NodeError struct {
	ID  scene.NodeID
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrNodeUnreadable, e.ID, e.Err)
}

// Unwrap returns both the sentinel and the host error.
func (e *NodeError) Unwrap() []error {
	return []error{ErrNodeUnreadable, e.Err}
}

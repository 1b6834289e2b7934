// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scene

import "errors"

// Sentinel errors returned by host implementations.
var (
	// ErrNodeNotFound is returned when a node id does not resolve.
	ErrNodeNotFound = errors.New("node not found")

	// ErrContainerNotFound is returned when a container name does not resolve.
	ErrContainerNotFound = errors.New("container not found")

	// ErrContainerExists is returned when creating a container whose name
	// is already taken.
	ErrContainerExists = errors.New("container already exists")

	// ErrAttributeUnavailable is returned by Reader.Attr when the host has
	// no value at the requested attribute path. Callers treat it as an
	// optional capability and fall back silently.
	ErrAttributeUnavailable = errors.New("attribute unavailable")

	// ErrFeatureUnavailable is returned when an optional host capability
	// is missing (for example a type display-name lookup).
	ErrFeatureUnavailable = errors.New("host feature unavailable")

	// ErrTransactionOpen is returned by Mutator.Begin while another
	// transaction is still open.
	ErrTransactionOpen = errors.New("transaction already open")

	// ErrTransactionClosed is returned when mutating through a Txn after End.
	ErrTransactionClosed = errors.New("transaction closed")

	// ErrUnknownShot is returned when activating a shot that does not exist.
	ErrUnknownShot = errors.New("unknown shot")

	// ErrInvalidValue is returned when parsing an invalid enumerated value.
	ErrInvalidValue = errors.New("invalid value")
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scene provides the typed view over a host scene graph.
//
// The package contains the node model (nodes, tracks, containers, render
// settings) and the interfaces a host application implements so that the
// validation engine, the synchronizer and the solo controller can read and
// mutate its graph.
//
// # Ownership Model
//
// Nodes belong to the host. Nothing in this module allocates or frees nodes;
// values returned by Reader are snapshots of host state taken at call time.
//
// # Thread Safety
//
// Host graphs are not safe for concurrent use. Every Reader, Mutator and
// ShotRegistry call must be made from the single goroutine that owns the
// document (see the poll package's Loop).
package scene

import "fmt"

// NodeID is a host-assigned node identity, stable for a session.
//
// The zero value is never a valid node and is used as "no node"
// (for example the Parent of a top-level node).
type NodeID uint64

// String returns the identifier in the form "#42".
func (id NodeID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// TypeID is a host type identifier.
type TypeID int32

// Well-known host type identifiers.
//
// The light subtypes form the fixed allow-list used by the detectors'
// classifier before it falls back to matching the type's display name.
const (
	TypeUnknown TypeID = 0

	TypePolygon TypeID = 5100
	TypeLight   TypeID = 5102
	TypeCamera  TypeID = 5103
	TypeNull    TypeID = 5140
	TypeSky     TypeID = 5105

	TypeAreaLight   TypeID = 1036751
	TypeSunLight    TypeID = 1036754
	TypeDomeLight   TypeID = 1036755
	TypeIESLight    TypeID = 1036756
	TypePortalLight TypeID = 1036757

	TypeRenderCamera TypeID = 1057516
)

// Visibility is the tri-state editor/render visibility of a node.
type Visibility int

const (
	// VisibilityInherit defers to the nearest ancestor with an explicit state.
	VisibilityInherit Visibility = iota

	// VisibilityOn forces the node visible in the channel.
	VisibilityOn

	// VisibilityOff forces the node hidden in the channel.
	VisibilityOff
)

// String returns "inherit", "on", "off" or "unknown".
func (v Visibility) String() string {
	switch v {
	case VisibilityInherit:
		return "inherit"
	case VisibilityOn:
		return "on"
	case VisibilityOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseVisibility parses the String form. Empty input means inherit.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "inherit", "default":
		return VisibilityInherit, nil
	case "on", "true", "visible":
		return VisibilityOn, nil
	case "off", "false", "hidden":
		return VisibilityOff, nil
	default:
		return VisibilityInherit, fmt.Errorf("%w: visibility %q", ErrInvalidValue, s)
	}
}

// Node is a snapshot of one scene graph entry.
//
// Children, animation tracks and numeric attributes are fetched with
// separate Reader calls so that a traversal only pays for what it reads.
type Node struct {
	ID               NodeID
	Type             TypeID
	Name             string
	Parent           NodeID
	EditorVisibility Visibility
	RenderVisibility Visibility

	// Enabled is the node's own enable switch, used by solo to take
	// unassigned nodes out of the scene without touching visibility.
	Enabled bool
}

// IsTopLevel reports whether the node has no parent.
func (n Node) IsTopLevel() bool {
	return n.Parent == 0
}

// Property is the animated property a track addresses.
type Property int

const (
	PropertyOther Property = iota
	PropertyPosition
	PropertyRotation
	PropertyScale
)

// String returns the lowercase property name.
func (p Property) String() string {
	switch p {
	case PropertyPosition:
		return "position"
	case PropertyRotation:
		return "rotation"
	case PropertyScale:
		return "scale"
	default:
		return "other"
	}
}

// Axis is the sub-component a track addresses.
type Axis int

const (
	// AxisNone marks a track whose addressing is not recognized.
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

// String returns "x", "y", "z" or "none".
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "none"
	}
}

// Track is one animation track on a node.
type Track struct {
	Property Property
	Axis     Axis
}

// RenderSetting is one render-configuration entry of a document.
type RenderSetting struct {
	Name string
}

// Well-known numeric attribute names.
const (
	// AttrFilmOffsetX is the primary path for horizontal optical shift.
	AttrFilmOffsetX = "film_offset_x"

	// AttrFilmOffsetY is the primary path for vertical optical shift.
	AttrFilmOffsetY = "film_offset_y"
)

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

import "fmt"

// RGB is a color with components in [0, 1].
type RGB struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", toByte(c.R), toByte(c.G), toByte(c.B))
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// ContainerFlags are the independently togglable switches of a container.
type ContainerFlags struct {
	View        bool `json:"view" yaml:"view"`
	Render      bool `json:"render" yaml:"render"`
	Manager     bool `json:"manager" yaml:"manager"`
	Generators  bool `json:"generators" yaml:"generators"`
	Deformers   bool `json:"deformers" yaml:"deformers"`
	Expressions bool `json:"expressions" yaml:"expressions"`
	Animation   bool `json:"animation" yaml:"animation"`
	Locked      bool `json:"locked" yaml:"locked"`
}

// DefaultContainerFlags returns the flags of a freshly created container:
// everything on, unlocked.
func DefaultContainerFlags() ContainerFlags {
	return ContainerFlags{
		View:        true,
		Render:      true,
		Manager:     true,
		Generators:  true,
		Deformers:   true,
		Expressions: true,
		Animation:   true,
	}
}

// WithIsolation returns a copy with the visibility and behavior switches
// (view, render, generators, deformers, expressions, animation) set to on.
// Manager and Locked are left unchanged.
func (f ContainerFlags) WithIsolation(on bool) ContainerFlags {
	f.View = on
	f.Render = on
	f.Generators = on
	f.Deformers = on
	f.Expressions = on
	f.Animation = on
	return f
}

// IsolationOn reports whether every isolation switch is on.
func (f ContainerFlags) IsolationOn() bool {
	return f.View && f.Render && f.Generators && f.Deformers && f.Expressions && f.Animation
}

// Hidden reports whether either visibility switch is off.
func (f ContainerFlags) Hidden() bool {
	return !f.View || !f.Render
}

// Container is a named grouping that nodes are assigned to.
//
// Name is unique within a document and joins the container to the
// top-level group node of the same name.
type Container struct {
	Name  string         `json:"name" yaml:"name"`
	Color RGB            `json:"color" yaml:"color"`
	Flags ContainerFlags `json:"flags" yaml:"flags"`
}

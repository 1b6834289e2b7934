// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package detect

import (
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// Category is the coarse class of a node type.
type Category int

const (
	CategoryOther Category = iota
	CategoryGroup
	CategoryLight
	CategoryCamera
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryGroup:
		return "group"
	case CategoryLight:
		return "light"
	case CategoryCamera:
		return "camera"
	default:
		return "other"
	}
}

// lightSubtypes is the fixed allow-list of renderer light types checked
// after the built-in light type and before display-name matching.
var lightSubtypes = map[scene.TypeID]struct{}{
	scene.TypeAreaLight:   {},
	scene.TypeSunLight:    {},
	scene.TypeDomeLight:   {},
	scene.TypeIESLight:    {},
	scene.TypePortalLight: {},
}

var cameraTypes = map[scene.TypeID]struct{}{
	scene.TypeCamera:       {},
	scene.TypeRenderCamera: {},
}

// Classifier maps type ids to categories.
//
// Description:
//
//	Classification tries, in order: the exact built-in type id, the fixed
//	list of renderer light and camera subtypes, then a case-insensitive
//	substring match on the host's type display name ("light", "camera").
//	Display-name lookups are slow on real hosts, so every TypeID is
//	classified once and memoized. A failed name lookup classifies the type
//	as other.
//
// Thread Safety: Not safe for concurrent use.
type Classifier struct {
	memo    map[scene.TypeID]Category
	lookups int
}

// NewClassifier creates an empty classifier.
func NewClassifier() *Classifier {
	return &Classifier{memo: make(map[scene.TypeID]Category)}
}

// Classify returns the category of t, consulting r for the display name
// only the first time t is seen.
func (c *Classifier) Classify(r scene.Reader, t scene.TypeID) Category {
	if cat, ok := c.memo[t]; ok {
		return cat
	}
	cat := c.classify(r, t)
	c.memo[t] = cat
	return cat
}

// IsLight reports whether t is a light type.
func (c *Classifier) IsLight(r scene.Reader, t scene.TypeID) bool {
	return c.Classify(r, t) == CategoryLight
}

// IsCamera reports whether t is a camera type.
func (c *Classifier) IsCamera(r scene.Reader, t scene.TypeID) bool {
	return c.Classify(r, t) == CategoryCamera
}

// NameLookups returns how many display-name lookups were made.
func (c *Classifier) NameLookups() int {
	return c.lookups
}

func (c *Classifier) classify(r scene.Reader, t scene.TypeID) Category {
	switch t {
	case scene.TypeNull:
		return CategoryGroup
	case scene.TypeLight:
		return CategoryLight
	}
	if _, ok := lightSubtypes[t]; ok {
		return CategoryLight
	}
	if _, ok := cameraTypes[t]; ok {
		return CategoryCamera
	}

	c.lookups++
	name, err := r.TypeName(t)
	if err != nil {
		return CategoryOther
	}
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "light"):
		return CategoryLight
	case strings.Contains(name, "camera"):
		return CategoryCamera
	default:
		return CategoryOther
	}
}

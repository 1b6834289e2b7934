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
	"math"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/cespare/xxhash/v2"
)

// Container color parameters.
const (
	// ColorSaturation is the fixed HSV saturation of container colors.
	ColorSaturation = 0.65

	// ColorValue is the fixed HSV value of container colors.
	ColorValue = 0.95

	// goldenRatio64 is 2^64 divided by the golden ratio. Multiplying a hash by
	// it modulo 2^64 yields the fractional part of hash × 0.618… as a 64-bit
	// fixed-point number.
	goldenRatio64 uint64 = 0x9E3779B97F4A7C15
)

// ColorFor returns the deterministic display color for a container name.
//
// Description:
//
//	The name is hashed with xxhash; the fractional part of hash times the
//	golden-ratio conjugate becomes the hue, with fixed saturation and
//	value. The same name always yields the same color across runs and
//	machines.
func ColorFor(name string) scene.RGB {
	h := xxhash.Sum64String(name) * goldenRatio64
	hue := float64(h>>11) / (1 << 53)
	return hsvToRGB(hue, ColorSaturation, ColorValue)
}

// hsvToRGB converts h, s, v in [0, 1) × [0, 1] × [0, 1] to RGB.
func hsvToRGB(h, s, v float64) scene.RGB {
	if s <= 0 {
		return scene.RGB{R: v, G: v, B: v}
	}

	h = math.Mod(h, 1) * 6
	sector := math.Floor(h)
	f := h - sector
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch int(sector) {
	case 0:
		return scene.RGB{R: v, G: t, B: p}
	case 1:
		return scene.RGB{R: q, G: v, B: p}
	case 2:
		return scene.RGB{R: p, G: v, B: t}
	case 3:
		return scene.RGB{R: p, G: q, B: v}
	case 4:
		return scene.RGB{R: t, G: p, B: v}
	default:
		return scene.RGB{R: v, G: p, B: q}
	}
}

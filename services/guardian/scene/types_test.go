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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in   string
		want Visibility
	}{
		{"", VisibilityInherit},
		{"inherit", VisibilityInherit},
		{"on", VisibilityOn},
		{"visible", VisibilityOn},
		{"off", VisibilityOff},
		{"hidden", VisibilityOff},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVisibility(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseVisibility("sometimes")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestContainerFlags_Isolation(t *testing.T) {
	flags := DefaultContainerFlags()
	flags.Locked = true
	assert.True(t, flags.IsolationOn())
	assert.False(t, flags.Hidden())

	off := flags.WithIsolation(false)
	assert.True(t, off.Hidden())
	assert.False(t, off.IsolationOn())
	assert.True(t, off.Manager, "manager switch is not an isolation flag")
	assert.True(t, off.Locked, "lock is not an isolation flag")

	assert.Equal(t, flags, off.WithIsolation(true))
}

func TestRGB_Hex(t *testing.T) {
	assert.Equal(t, "#ff0000", RGB{R: 1}.Hex())
	assert.Equal(t, "#000000", RGB{R: -1, G: 0, B: 0}.Hex())
	assert.Equal(t, "#808080", RGB{R: 0.5, G: 0.5, B: 0.5}.Hex())
}

func TestNodeID_String(t *testing.T) {
	assert.Equal(t, "#42", NodeID(42).String())
	assert.True(t, Node{ID: 1}.IsTopLevel())
	assert.False(t, Node{ID: 2, Parent: 1}.IsTopLevel())
}

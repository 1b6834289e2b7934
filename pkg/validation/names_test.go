// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArtistName(t *testing.T) {
	tests := []struct {
		name    string
		artist  string
		wantErr bool
	}{
		// Valid names
		{"simple", "Jo", false},
		{"with space", "Ana Ruiz", false},
		{"with digits", "artist42", false},
		{"dots and hyphens", "j.doe-fx", false},
		{"non-latin", "Zoë Ōta", false},
		{"max length", strings.Repeat("a", MaxNameLength), false},

		// Invalid names
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
		{"path traversal", "../etc", true},
		{"slash", "ana/ruiz", true},
		{"backslash", `ana\ruiz`, true},
		{"leading dot", ".hidden", true},
		{"leading space", " ana", true},
		{"trailing dot", "ana.", true},
		{"newline", "ana\nruiz", true},
		{"reserved char", "ana:ruiz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtistName(tt.artist)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeArtistName(t *testing.T) {
	got, err := SanitizeArtistName("  Ana Ruiz \t")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", got)

	_, err = SanitizeArtistName("   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"shot_010", "shot_010"},
		{"shot 010/v2", "shot 010_v2"},
		{`a\b:c*d?e"f<g>h|i`, "a_b_c_d_e_f_g_h_i"},
		{"tab\there", "tab_here"},
		{"..", "untitled"},
		{".", "untitled"},
		{"", "untitled"},
		{"  .scene. ", "scene"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePathComponent(tt.in, "untitled"))
		})
	}
}

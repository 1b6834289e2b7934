// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/guardian/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFile(t *testing.T) {
	s := New(t.TempDir())
	assert.Equal(t, "", s.Artist())
}

func TestStore_SetArtistPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prefs")
	s := New(dir)

	got, err := s.SetArtist("  Ana Ruiz ")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", got)
	assert.Equal(t, "Ana Ruiz", s.Artist())

	reopened := New(dir)
	assert.Equal(t, "Ana Ruiz", reopened.Artist())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, FileName, entries[0].Name())
}

func TestStore_SetArtistRejectsInvalid(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.SetArtist("Ana")
	require.NoError(t, err)

	_, err = s.SetArtist("../root")
	assert.ErrorIs(t, err, validation.ErrInvalidName)
	assert.Equal(t, "Ana", s.Artist(), "previous value kept")
}

func TestStore_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("artist: [unclosed"), 0o644))

	s := New(dir)
	assert.Equal(t, "", s.Artist())

	_, err := s.SetArtist("Jo")
	require.NoError(t, err)
	assert.Equal(t, "Jo", New(dir).Artist())
}

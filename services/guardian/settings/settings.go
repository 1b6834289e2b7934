// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package settings persists the artist preference.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/guardian/pkg/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the preferences file inside the preferences directory.
const FileName = "guardian_prefs.yaml"

type prefsFile struct {
	Artist string `yaml:"artist"`
}

// Store reads and writes the preferences file.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	path string

	mu     sync.Mutex
	loaded bool
	prefs  prefsFile
}

// New creates a store for <dir>/guardian_prefs.yaml. Nothing is read
// until the first call.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the preferences file path.
func (s *Store) Path() string {
	return s.path
}

// Artist returns the saved artist name, or "" when none is set.
//
// A missing file is not an error. An unreadable or corrupt file is
// logged and treated as empty so the host keeps working.
func (s *Store) Artist() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.prefs.Artist
}

// SetArtist validates and saves the artist name.
//
// Outputs:
//   - string: The trimmed name that was saved.
//   - error: validation.ErrInvalidName, or a write failure.
func (s *Store) SetArtist(name string) (string, error) {
	clean, err := validation.SanitizeArtistName(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()

	next := s.prefs
	next.Artist = clean
	if err := s.writeLocked(next); err != nil {
		return "", err
	}
	s.prefs = next
	return clean, nil
}

func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err == nil {
		err = yaml.Unmarshal(data, &s.prefs)
	}
	if err != nil {
		slog.Warn("ignoring unreadable preferences",
			slog.String("component", "settings"),
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		s.prefs = prefsFile{}
	}
}

func (s *Store) writeLocked(p prefsFile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create the preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*")
	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// Artist and scene names end up as directory and file names under the
// project output tree. Using these validators prevents path traversal and
// names the host filesystem cannot store.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxNameLength is the longest accepted artist name, in runes.
const MaxNameLength = 64

// ErrInvalidName is returned for names that cannot be used as a path
// component.
var ErrInvalidName = errors.New("invalid name")

// artistPattern matches valid artist display names.
// Allows: letters (any script), digits, spaces, dots, underscores, hyphens
// Must start with a letter or digit.
var artistPattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ._\-]*$`)

// ValidateArtistName validates an artist display name.
//
// Valid names:
//   - 1-64 characters after trimming
//   - Letters, digits, spaces, dots, underscores, hyphens
//   - No leading dot, space or separator
//
// Example:
//
//	if err := validation.ValidateArtistName(name); err != nil {
//	    return fmt.Errorf("invalid artist: %w", err)
//	}
//	// Safe to use as a directory name
func ValidateArtistName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: artist name cannot be empty", ErrInvalidName)
	}
	if n := len([]rune(name)); n > MaxNameLength {
		return fmt.Errorf("%w: artist name is %d characters (max %d)", ErrInvalidName, n, MaxNameLength)
	}
	if !artistPattern.MatchString(name) {
		return fmt.Errorf("%w: %q (letters, digits, spaces, dots, underscores or hyphens)", ErrInvalidName, name)
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return fmt.Errorf("%w: %q ends with a dot or space", ErrInvalidName, name)
	}
	return nil
}

// SanitizeArtistName trims and validates an artist name.
func SanitizeArtistName(name string) (string, error) {
	normalized := strings.TrimSpace(name)
	if err := ValidateArtistName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// SanitizePathComponent makes s safe to use as a single file or directory
// name.
//
// Separators, control characters and characters reserved on common
// filesystems are replaced with underscores. Leading and trailing dots and
// spaces are trimmed. The fallback is returned when nothing is left or the
// result is "." or "..".
//
// Example:
//
//	SanitizePathComponent("shot 010/v2", "untitled") // "shot 010_v2"
//	SanitizePathComponent("..", "untitled")          // "untitled"
func SanitizePathComponent(s, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return fallback
	}
	return out
}

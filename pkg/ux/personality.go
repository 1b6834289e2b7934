// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel defines the verbosity and richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables colors, icons, boxes and offender detail
	PersonalityFull PersonalityLevel = "full"

	// PersonalityStandard enables colors and icons with a short offender list
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses icons and counts only
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs tab-separated text suitable for scripting
	PersonalityMachine PersonalityLevel = "machine"
)

// PersonalityEnv overrides the detected personality level.
const PersonalityEnv = "GUARDIAN_PERSONALITY"

// Personality holds the current UX personality configuration
type Personality struct {
	// Level controls overall verbosity (full, standard, minimal, machine)
	Level PersonalityLevel

	// MaxOffenders caps the offender lines printed per check. Zero hides
	// them; machine output always prints every offender it was given.
	MaxOffenders int
}

var (
	currentPersonality = DefaultPersonality()
	personalityMu      sync.RWMutex
)

// GetPersonality returns the current personality settings
func GetPersonality() Personality {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentPersonality
}

// SetPersonality updates the current personality settings
func SetPersonality(p Personality) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality = p
}

// SetPersonalityLevel updates the level and the offender cap that goes
// with it.
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality.Level = level
	currentPersonality.MaxOffenders = offenderCapFor(level)
}

func offenderCapFor(level PersonalityLevel) int {
	switch level {
	case PersonalityFull:
		return 20
	case PersonalityStandard:
		return 5
	default:
		return 0
	}
}

// ParsePersonalityLevel converts a string to PersonalityLevel
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return PersonalityFull
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitPersonality initializes personality from the environment, falling
// back to machine output when stdout is not a terminal.
func InitPersonality() {
	if envLevel := os.Getenv(PersonalityEnv); envLevel != "" {
		SetPersonalityLevel(ParsePersonalityLevel(envLevel))
		return
	}

	if !isTerminal(os.Stdout) {
		SetPersonalityLevel(PersonalityMachine)
		return
	}

	SetPersonalityLevel(PersonalityFull)
}

// isTerminal reports whether f is a terminal, including Cygwin/MSYS ptys
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive returns true if we should show interactive prompts
func IsInteractive() bool {
	p := GetPersonality()
	return p.Level != PersonalityMachine && isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// DefaultPersonality returns the default personality settings
func DefaultPersonality() Personality {
	return Personality{
		Level:        PersonalityFull,
		MaxOffenders: offenderCapFor(PersonalityFull),
	}
}

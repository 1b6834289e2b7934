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
	"sync"
	"testing"
)

// =============================================================================
// GetPersonality / SetPersonality Tests
// =============================================================================

func TestSetPersonality_AndGet(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonality(Personality{Level: PersonalityMinimal, MaxOffenders: 3})

	got := GetPersonality()
	if got.Level != PersonalityMinimal {
		t.Errorf("expected level %v, got %v", PersonalityMinimal, got.Level)
	}
	if got.MaxOffenders != 3 {
		t.Errorf("expected MaxOffenders 3, got %d", got.MaxOffenders)
	}
}

// =============================================================================
// SetPersonalityLevel Tests
// =============================================================================

func TestSetPersonalityLevel(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	tests := []struct {
		level        PersonalityLevel
		maxOffenders int
	}{
		{PersonalityFull, 20},
		{PersonalityStandard, 5},
		{PersonalityMinimal, 0},
		{PersonalityMachine, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			SetPersonalityLevel(tt.level)
			got := GetPersonality()
			if got.Level != tt.level {
				t.Errorf("expected %v, got %v", tt.level, got.Level)
			}
			if got.MaxOffenders != tt.maxOffenders {
				t.Errorf("expected MaxOffenders %d, got %d", tt.maxOffenders, got.MaxOffenders)
			}
		})
	}
}

// =============================================================================
// ParsePersonalityLevel Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		input string
		want  PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"F", PersonalityFull},
		{"standard", PersonalityStandard},
		{"std", PersonalityStandard},
		{"minimal", PersonalityMinimal},
		{" min ", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"q", PersonalityMachine},
		{"", PersonalityStandard},
		{"loud", PersonalityStandard},
	}

	for _, tt := range tests {
		if got := ParsePersonalityLevel(tt.input); got != tt.want {
			t.Errorf("ParsePersonalityLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// InitPersonality Tests
// =============================================================================

func TestInitPersonality_WithEnvVar(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	t.Setenv(PersonalityEnv, "minimal")
	InitPersonality()

	if GetPersonality().Level != PersonalityMinimal {
		t.Errorf("expected PersonalityMinimal, got %v", GetPersonality().Level)
	}
}

func TestInitPersonality_NoEnvVar(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	t.Setenv(PersonalityEnv, "")
	InitPersonality()

	want := PersonalityMachine
	if isTerminal(os.Stdout) {
		want = PersonalityFull
	}
	if GetPersonality().Level != want {
		t.Errorf("expected %v, got %v", want, GetPersonality().Level)
	}
}

// =============================================================================
// Capability Tests
// =============================================================================

func TestIsInteractive_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)
	if IsInteractive() {
		t.Error("expected IsInteractive false in machine mode")
	}
}

func TestDefaultPersonality(t *testing.T) {
	p := DefaultPersonality()
	if p.Level != PersonalityFull {
		t.Errorf("expected PersonalityFull, got %v", p.Level)
	}
	if p.MaxOffenders != 20 {
		t.Errorf("expected MaxOffenders 20, got %d", p.MaxOffenders)
	}
}

func TestPersonality_ConcurrentAccess(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				SetPersonalityLevel(PersonalityMinimal)
			} else {
				SetPersonalityLevel(PersonalityFull)
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = GetPersonality()
		}()
	}
	wg.Wait()
}

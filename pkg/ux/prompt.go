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
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ErrNotInteractive is returned by prompts when stdin or stdout is not a
// terminal, or the personality is machine.
var ErrNotInteractive = errors.New("not an interactive terminal")

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt cancelled")

// maxDescription bounds option descriptions so long container notes do
// not wrap the picker.
const maxDescription = 48

// PromptOption is one choice in a selection prompt.
type PromptOption struct {
	Label       string
	Description string
	Value       string

	// Recommended options start selected.
	Recommended bool
}

// guardianTheme styles huh forms with the guardian palette.
func guardianTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorTealDeep)
	t.Focused.Title = t.Focused.Title.Foreground(ColorTealBright).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorSlate)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorTealPrimary)
	t.Focused.MultiSelectSelector = t.Focused.MultiSelectSelector.Foreground(ColorTealPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorTealBright)
	t.Focused.SelectedPrefix = lipgloss.NewStyle().Foreground(ColorSuccess).SetString("[✓] ")
	t.Focused.UnselectedPrefix = lipgloss.NewStyle().Foreground(ColorSlate).SetString("[ ] ")
	t.Focused.FocusedButton = t.Focused.FocusedButton.Background(ColorTealDeep)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Focused.Base.BorderStyle(lipgloss.HiddenBorder())
	return t
}

// SelectMany asks the user to pick one or more options and returns their
// values.
func SelectMany(title string, options []PromptOption) ([]string, error) {
	if !IsInteractive() {
		return nil, ErrNotInteractive
	}

	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		label := o.Label
		if o.Description != "" {
			label += "  " + Styles.Muted.Render(truncate(o.Description, maxDescription))
		}
		opts = append(opts, huh.NewOption(label, o.Value).Selected(o.Recommended))
	}

	var selected []string
	field := huh.NewMultiSelect[string]().
		Title(title).
		Options(opts...).
		Value(&selected).
		Validate(func(v []string) error {
			if len(v) == 0 {
				return errors.New("select at least one")
			}
			return nil
		})

	if err := runForm(field); err != nil {
		return nil, err
	}
	return selected, nil
}

// Confirm asks a yes/no question.
func Confirm(title string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := runForm(field); err != nil {
		return false, err
	}
	return ok, nil
}

// Input asks for one line of text, starting from initial.
func Input(title, initial string, validate func(string) error) (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}
	value := initial
	field := huh.NewInput().
		Title(title).
		Value(&value)
	if validate != nil {
		field = field.Validate(validate)
	}
	if err := runForm(field); err != nil {
		return "", err
	}
	return value, nil
}

func runForm(field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).
		WithTheme(guardianTheme()).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}

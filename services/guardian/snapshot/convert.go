// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

// Converter turns a snapshot image into the output image.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(ctx context.Context, src, dst string) error

// Convert implements Converter.
func (f ConverterFunc) Convert(ctx context.Context, src, dst string) error {
	return f(ctx, src, dst)
}

// ExecConverter runs an external conversion command.
//
// Args[0] is the program. "{src}" and "{dst}" anywhere in an argument are
// replaced with the input and output paths. No shell is involved.
type ExecConverter struct {
	Args []string
}

// NewExecConverter validates the command template.
func NewExecConverter(args []string) (*ExecConverter, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidConverter)
	}
	hasSrc := slices.ContainsFunc(args[1:], func(a string) bool { return strings.Contains(a, "{src}") })
	hasDst := slices.ContainsFunc(args[1:], func(a string) bool { return strings.Contains(a, "{dst}") })
	if !hasSrc || !hasDst {
		return nil, fmt.Errorf("%w: %q needs {src} and {dst}", ErrInvalidConverter, strings.Join(args, " "))
	}
	return &ExecConverter{Args: slices.Clone(args)}, nil
}

// Convert implements Converter.
func (c *ExecConverter) Convert(ctx context.Context, src, dst string) error {
	r := strings.NewReplacer("{src}", src, "{dst}", dst)
	argv := make([]string, len(c.Args))
	for i, a := range c.Args {
		argv[i] = r.Replace(a)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if len(msg) > 512 {
			msg = msg[:512] + "..."
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

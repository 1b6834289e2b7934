// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command guardian validates and restructures 3D scenes.
//
// # Usage
//
//	guardian check --scene shot_010.yaml      # one validation pass
//	guardian watch --scene shot_010.yaml --tui
//	guardian sync --scene shot_010.yaml       # hierarchy to containers
//	guardian solo -i --scene shot_010.yaml    # pick containers to isolate
//	guardian serve --scene shot_010.yaml      # HTTP API + live reload
//
// # Exit Codes
//
//   - 0: Success
//   - 1: Error
//   - 2: Validation found offenders or detector faults (check only)
package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/AleutianAI/guardian/pkg/ux"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, a := newRootCmd()
	defer a.teardown()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	ux.SetOutput(stdout, stderr)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errChecksFailed):
		return 2
	default:
		ux.Error(err.Error())
		return 1
	}
}

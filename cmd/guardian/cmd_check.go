// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"

	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/scene/memhost"
	"github.com/AleutianAI/guardian/services/guardian/tui"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// newCheckCmd builds "guardian check".
//
// # Description
//
// Runs every enabled detector once against the scene and prints the
// report. The exit status is 2 when any detector found offenders or
// faulted, so the command can gate a publish step.
//
// # Examples
//
//	guardian check -s shot_010.yaml
//	guardian check -s shot_010.yaml --only lights,camera
//	guardian check -s shot_010.yaml --json | jq .offenders
func newCheckCmd(a *app) *cobra.Command {
	var (
		only       []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the scene checks once and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(only) > 0 {
				kinds := make([]string, 0, len(only))
				for _, s := range only {
					k, err := detect.ParseKind(s)
					if err != nil {
						return err
					}
					kinds = append(kinds, string(k))
				}
				a.cfg.Checks.Enabled = kinds
			}

			var rep guardian.Report
			var name string
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, doc *memhost.Document) error {
				name = doc.Name()
				var err error
				rep, err = s.Check(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(guardian.NewReportResponse(rep)); err != nil {
					return err
				}
			} else {
				view := tui.ReportView(rep, name)
				if err := ux.RenderReport(cmd.OutOrStdout(), view); err != nil {
					return err
				}
				ux.Summary(view.Counts())
			}

			if !rep.OK() {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil,
		"run only these detectors (lights, visibility, keyframes, camera, presets)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")
	return cmd
}

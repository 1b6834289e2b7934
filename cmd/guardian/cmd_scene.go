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
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/scene/memhost"
	"github.com/AleutianAI/guardian/services/guardian/solo"
	"github.com/spf13/cobra"
)

// =============================================================================
// sync
// =============================================================================

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Assign every top-level group's subtree to a container of the same name",
		Long: `Creates one container per top-level group (colored from the group name)
and assigns the group and all its descendants to it.

Nothing changes when a top-level object sits outside every group and is not
a light or camera; the offending objects are listed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res hierarchy.Result
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, _ *memhost.Document) error {
				var err error
				res, err = s.Synchronize(ctx)
				return err
			})

			var orphans *hierarchy.OrphanError
			if errors.As(err, &orphans) {
				content := strings.Join(orphans.Names, "\n")
				if more := orphans.Total - len(orphans.Names); more > 0 {
					content += fmt.Sprintf("\n… and %d more", more)
				}
				ux.WarningBox("Group these objects first", content)
				return err
			}
			if err != nil {
				return err
			}

			ux.Success(fmt.Sprintf("synced %d nodes", res.SyncedNodes))
			if len(res.Created) > 0 {
				ux.KeyValue("created", strings.Join(res.Created, ", "))
			}
			if len(res.Updated) > 0 {
				ux.KeyValue("updated", strings.Join(res.Updated, ", "))
			}
			if res.Failed > 0 {
				ux.Warning(fmt.Sprintf("%d nodes could not be assigned", res.Failed))
			}
			if res.Truncated {
				ux.Warning("node cap reached, the scene was only partly synced")
			}
			return nil
		},
	}
}

// =============================================================================
// solo / restore / toggle / mode
// =============================================================================

func newSoloCmd(a *app) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "solo [container...]",
		Short: "Isolate the named containers and hide everything else",
		Example: `  guardian solo -s shot_010.yaml Props Set
  guardian solo -s shot_010.yaml -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive && len(args) == 0 {
				return solo.ErrEmptySelection
			}
			var res solo.Result
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, _ *memhost.Document) error {
				selected := args
				if interactive {
					var err error
					if selected, err = pickContainers(ctx, s); err != nil {
						return err
					}
				}
				var err error
				res, err = s.Solo(ctx, selected)
				return err
			})
			if err != nil {
				return err
			}
			printSoloResult(res)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick the containers from a list")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Leave solo mode and make every container visible again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res solo.Result
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, _ *memhost.Document) error {
				var err error
				res, err = s.Restore(ctx)
				return err
			})
			if err != nil {
				return err
			}
			printSoloResult(res)
			return nil
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [container...]",
		Short: "Restore a soloed scene, or solo the named containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res solo.Result
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, _ *memhost.Document) error {
				var err error
				res, err = s.Toggle(ctx, args)
				return err
			})
			if err != nil {
				return err
			}
			printSoloResult(res)
			return nil
		},
	}
}

func newModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Show whether the scene is in solo mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st solo.State
			var containers []scene.Container
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, _ *memhost.Document) error {
				var err error
				if st, err = s.Mode(ctx); err != nil {
					return err
				}
				containers, err = s.Containers(ctx)
				return err
			})
			if err != nil {
				return err
			}

			ux.KeyValue("mode", st.Mode.String())
			if st.Mode == solo.ModeSolo {
				ux.KeyValue("selected", strings.Join(st.Selected, ", "))
			}
			ux.KeyValue("containers", strconv.Itoa(len(containers)))
			return nil
		},
	}
}

// pickContainers asks the user which containers to solo. Containers that
// are isolated right now start selected.
func pickContainers(ctx context.Context, s *guardian.Session) ([]string, error) {
	containers, err := s.Containers(ctx)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w: the scene has no containers (run sync first)", solo.ErrEmptySelection)
	}
	st, err := s.Mode(ctx)
	if err != nil {
		return nil, err
	}

	opts := make([]ux.PromptOption, 0, len(containers))
	for _, c := range containers {
		desc := "visible"
		if c.Flags.Hidden() {
			desc = "hidden"
		}
		opts = append(opts, ux.PromptOption{
			Label:       c.Name,
			Description: desc,
			Value:       c.Name,
			Recommended: st.Mode == solo.ModeSolo && slices.Contains(st.Selected, c.Name),
		})
	}
	return ux.SelectMany("Containers to solo", opts)
}

func printSoloResult(res solo.Result) {
	if res.Mode == solo.ModeSolo {
		ux.Success("solo: " + strings.Join(res.Selected, ", "))
	} else {
		ux.Success("normal mode")
	}
	ux.KeyValue("containers changed", strconv.Itoa(res.ContainersChanged))
	ux.KeyValue("nodes changed", strconv.Itoa(res.NodesChanged))
	if res.Failed > 0 {
		ux.Warning(fmt.Sprintf("%d writes failed", res.Failed))
	}
}

// =============================================================================
// shot
// =============================================================================

func newShotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shot [name]",
		Short: "Show the active shot, or switch to another one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info guardian.ShotInfo
			err := a.withSession(cmd.Context(), func(ctx context.Context, s *guardian.Session, _ *memhost.Document) error {
				if len(args) == 1 {
					if err := s.SetShot(ctx, args[0]); err != nil {
						return err
					}
				}
				var err error
				info, err = s.Shot(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if len(args) == 1 {
				ux.Success("active shot: " + info.Active)
				return nil
			}
			ux.KeyValue("active shot", info.Active)
			ux.KeyValue("shots", strings.Join(info.Shots, ", "))
			return nil
		},
	}
}

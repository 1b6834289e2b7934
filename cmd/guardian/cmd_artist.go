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
	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/pkg/validation"
	"github.com/spf13/cobra"
)

// newArtistCmd builds "guardian artist". The artist name picks the output
// folder snapshots are filed under; it does not need a scene.
func newArtistCmd(a *app) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "artist [name]",
		Short: "Show or set the artist name used for snapshot folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.settingsStore()
			current := store.Artist()

			var name string
			switch {
			case len(args) == 1:
				name = args[0]
			case interactive:
				var err error
				name, err = ux.Input("Artist name", current, func(s string) error {
					_, err := validation.SanitizeArtistName(s)
					return err
				})
				if err != nil {
					return err
				}
			default:
				if current == "" {
					ux.Muted("no artist set")
					ux.KeyValue("artist", "")
					return nil
				}
				ux.KeyValue("artist", current)
				return nil
			}

			saved, err := store.SetArtist(name)
			if err != nil {
				return err
			}
			ux.Success("artist: " + saved)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for the name")
	return cmd
}

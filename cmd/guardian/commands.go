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
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/guardian/pkg/logging"
	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian/config"
	"github.com/spf13/cobra"
)

var (
	// errChecksFailed makes check exit with status 2.
	errChecksFailed = errors.New("checks failed")

	// errNoScene is returned by commands that need --scene.
	errNoScene = errors.New("no scene given (use --scene)")
)

// app carries the state shared by all commands: flags bound on the root
// command and what PersistentPreRunE loads from them.
type app struct {
	configPath  string
	scenePath   string
	personality string
	logLevel    string
	dryRun      bool

	cfg    config.Config
	logger *logging.Logger
}

// newRootCmd builds the command tree. Every call returns fresh commands
// and flag state. Call teardown on the returned app once the command has
// run.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "guardian",
		Short: "Scene watchdog: validation, hierarchy sync and solo for 3D scenes",
		Long: `guardian watches an open 3D scene for common production mistakes
(stray lights, hidden objects, keyframed objects, shifted cameras, unknown
render presets) and restructures it: it syncs the top-level hierarchy into
containers and isolates ("solos") selected containers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.guardian/guardian.yaml)")
	flags.StringVarP(&a.scenePath, "scene", "s", "", "scene file to operate on")
	flags.StringVar(&a.personality, "personality", "", "output style: full, standard, minimal or machine")
	flags.StringVar(&a.logLevel, "log-level", "", "override logging.level from the config")
	flags.BoolVar(&a.dryRun, "dry-run", false, "do not write scene changes back to disk")

	rootCmd.AddCommand(
		newCheckCmd(a),
		newSyncCmd(a),
		newSoloCmd(a),
		newRestoreCmd(a),
		newToggleCmd(a),
		newModeCmd(a),
		newShotCmd(a),
		newArtistCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newSnapshotCmd(a),
		newConfigCmd(a),
	)
	return rootCmd, a
}

// setup applies the output style, loads the config and builds the logger.
// Print helpers already write to the command's writers (see run).
func (a *app) setup(cmd *cobra.Command) error {
	if a.personality != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(a.personality))
	} else {
		ux.InitPersonality()
	}

	if a.configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	levelName := cfg.Logging.Level
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		LogDir: cfg.Logging.Dir,
		JSON:   cfg.Logging.JSON,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to create the logger: %w", err)
	}
	a.logger = logger
	slog.SetDefault(logger.Slog())
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Slog()
}

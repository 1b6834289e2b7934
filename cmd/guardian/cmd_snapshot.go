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
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian/snapshot"
	"github.com/AleutianAI/guardian/services/guardian/storage/badger"
	"github.com/spf13/cobra"
)

// errSnapshotsNotConfigured is returned when snapshot.dir is empty.
var errSnapshotsNotConfigured = errors.New("snapshots not configured (set snapshot.dir in the config)")

// ledgerPrefix namespaces the processed-snapshot keys in the ledger.
const ledgerPrefix = "snapshot"

// snapshotManager builds the manager from the snapshot config section.
//
// # Description
//
// The processed-file ledger lives in a badger database under
// snapshot.ledger_dir, or in memory when that is empty. When
// snapshot.bucket is set every processed image is also uploaded to Cloud
// Storage with application default credentials.
//
// # Outputs
//
//   - *snapshot.Manager: The manager.
//   - func(): Releases the ledger and the storage client.
//   - error: errSnapshotsNotConfigured, or a setup failure.
func (a *app) snapshotManager(ctx context.Context) (*snapshot.Manager, func(), error) {
	sc := a.cfg.Snapshot
	if sc.Dir == "" {
		return nil, nil, errSnapshotsNotConfigured
	}
	logger := a.log()

	converter, err := snapshot.NewExecConverter(sc.Converter)
	if err != nil {
		return nil, nil, err
	}

	dbCfg := badger.InMemoryConfig()
	if sc.LedgerDir != "" {
		dbCfg = badger.DefaultConfig(sc.LedgerDir)
	}
	dbCfg.Logger = logger
	db, err := badger.Open(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot ledger: %w", err)
	}
	closers := []func() error{db.Close}

	opts := []snapshot.Option{
		snapshot.WithFallbackRoot(sc.FallbackRoot),
		snapshot.WithLogger(logger),
	}
	if sc.Bucket != "" {
		pub, err := snapshot.NewGCSPublisher(ctx, sc.Bucket, sc.Prefix, "")
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closers = append(closers, pub.Close)
		opts = append(opts, snapshot.WithPublisher(pub))
	}

	ledger := badger.NewLedger(db, ledgerPrefix, sc.LedgerTTL)
	m := snapshot.New(sc.Dir, converter, ledger, opts...)
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	return m, release, nil
}

// snapshotRequest describes the --scene document for filing. Without a
// scene the snapshot is filed as untitled under the fallback root.
func (a *app) snapshotRequest() (snapshot.Request, error) {
	req := snapshot.Request{Artist: a.settingsStore().Artist()}
	if a.scenePath == "" {
		return req, nil
	}
	doc, _, err := a.openScene()
	if err != nil {
		return snapshot.Request{}, err
	}
	req.DocPath = doc.Path()
	req.DocName = doc.Name()
	return req, nil
}

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "File renderer snapshots into the project output folder",
		Long: `Converts the newest snapshot (*.exr) from the snapshot directory to
<scene>.png under <scene dir>/Output/<artist>/<YYMMDD>. A snapshot is only
filed once.`,
	}
	cmd.AddCommand(
		newSnapshotProcessCmd(a),
		newSnapshotListCmd(a),
		newSnapshotCleanupCmd(a),
		newSnapshotWatchCmd(a),
	)
	return cmd
}

func newSnapshotProcessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Convert and file the newest snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := a.snapshotManager(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			req, err := a.snapshotRequest()
			if err != nil {
				return err
			}

			var res snapshot.Result
			err = ux.WithSpinner("Filing snapshot", func() error {
				var err error
				res, err = m.Process(cmd.Context(), req)
				return err
			})
			if err != nil {
				return err
			}
			printSnapshotResult(res)
			return nil
		},
	}
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := a.snapshotManager(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			files, err := m.List()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				ux.Muted("no snapshots in " + m.Dir())
				return nil
			}
			for _, f := range files {
				ux.KeyValue(f.ModTime.Format(time.DateTime), filepath.Base(f.Path))
			}
			return nil
		},
	}
}

func newSnapshotCleanupCmd(a *app) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Snapshot.KeepLast
			}
			m, release, err := a.snapshotManager(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			removed, err := m.Cleanup(keep)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("removed %d snapshots, kept %d", len(removed), keep))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 10, "how many snapshots to keep (default snapshot.keep_last)")
	return cmd
}

func newSnapshotWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "File snapshots as they land",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, release, err := a.snapshotManager(ctx)
			if err != nil {
				return err
			}
			defer release()

			req := func(context.Context) (snapshot.Request, error) {
				return a.snapshotRequest()
			}
			ux.Info("watching " + m.Dir())
			return m.Watch(ctx, req, a.cfg.Snapshot.KeepLast, func(r snapshot.WatchResult) {
				if r.Err != nil {
					ux.Error(r.Err.Error())
					return
				}
				printSnapshotResult(r.Result)
			})
		},
	}
}

func printSnapshotResult(res snapshot.Result) {
	ux.Success("saved " + res.Output)
	ux.KeyValue("source", filepath.Base(res.Source.Path))
	if res.URL != "" {
		ux.KeyValue("published", res.URL)
	}
	if res.Warning != "" {
		ux.Warning(res.Warning)
	}
	if !res.Source.ModTime.IsZero() {
		ux.KeyValue("taken", res.Source.ModTime.Format(time.DateTime))
	}
}

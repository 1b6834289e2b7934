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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/guardian/services/guardian/fswatch"
)

// RequestFunc describes the active document at the time a snapshot lands.
type RequestFunc func(ctx context.Context) (Request, error)

// WatchResult is delivered for every snapshot Watch processes.
type WatchResult struct {
	Result Result
	Err    error
}

// Watch processes new snapshots as they land until ctx is cancelled.
//
// Description:
//
//	Each debounced batch of snapshot writes triggers one Process for the
//	newest snapshot. Already-processed snapshots are ignored. When
//	keepLast is positive, older snapshots are cleaned up after every
//	successful conversion. onResult, when non-nil, receives every outcome
//	except duplicates.
//
// Outputs:
//   - error: Non-nil if the directory cannot be watched.
func (m *Manager) Watch(ctx context.Context, req RequestFunc, keepLast int, onResult func(WatchResult), opts ...fswatch.Option) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	handle := func(changes []fswatch.Change) {
		landed := false
		for _, c := range changes {
			if c.Op == fswatch.OpCreate || c.Op == fswatch.OpWrite || c.Op == fswatch.OpRename {
				landed = true
				break
			}
		}
		if !landed {
			return
		}

		r, err := req(ctx)
		var res Result
		if err == nil {
			res, err = m.Process(ctx, r)
		}
		if errors.Is(err, ErrAlreadyProcessed) || errors.Is(err, ErrNoSnapshots) {
			return
		}
		if err != nil {
			m.logger.Warn("snapshot watch failed",
				slog.String("component", "snapshot"),
				slog.String("error", err.Error()))
		} else if keepLast > 0 {
			if _, cerr := m.Cleanup(keepLast); cerr != nil {
				m.logger.Warn("snapshot cleanup failed",
					slog.String("component", "snapshot"),
					slog.String("error", cerr.Error()))
			}
		}
		if onResult != nil {
			onResult(WatchResult{Result: res, Err: err})
		}
	}

	opts = append([]fswatch.Option{
		fswatch.WithFilter(fswatch.MatchExt(Extension)),
		fswatch.WithLogger(m.logger),
	}, opts...)
	w, err := fswatch.New([]string{m.dir}, handle, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

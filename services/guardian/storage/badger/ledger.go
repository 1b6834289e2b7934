// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Ledger records keys that have been handled, with an optional TTL.
//
// Keys live under a prefix so several ledgers can share one database.
//
// Thread Safety: Safe for concurrent use.
type Ledger struct {
	db     *DB
	prefix []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLedger creates a ledger under prefix. A zero ttl keeps entries
// forever.
func NewLedger(db *DB, prefix string, ttl time.Duration) *Ledger {
	return &Ledger{db: db, prefix: []byte(prefix + "/"), ttl: ttl, now: time.Now}
}

func (l *Ledger) key(k string) []byte {
	out := make([]byte, 0, len(l.prefix)+len(k))
	out = append(out, l.prefix...)
	return append(out, k...)
}

// Seen reports whether k has been recorded and not expired.
func (l *Ledger) Seen(ctx context.Context, k string) (bool, error) {
	seen := false
	err := l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(l.key(k))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	return seen, err
}

// MarkIfNew records k unless it is already present.
//
// Outputs:
//   - bool: True if k was new and is now recorded.
//   - error: Storage failure. badger.ErrConflict is retried once.
func (l *Ledger) MarkIfNew(ctx context.Context, k string) (bool, error) {
	added, err := l.markIfNew(ctx, k)
	if errors.Is(err, badger.ErrConflict) {
		added, err = l.markIfNew(ctx, k)
	}
	return added, err
}

func (l *Ledger) markIfNew(ctx context.Context, k string) (bool, error) {
	added := false
	err := l.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := l.key(k)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		var val [8]byte
		binary.BigEndian.PutUint64(val[:], uint64(l.now().UnixNano()))
		e := badger.NewEntry(key, val[:])
		if l.ttl > 0 {
			e = e.WithTTL(l.ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

// Forget removes k.
func (l *Ledger) Forget(ctx context.Context, k string) error {
	return l.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(l.key(k))
	})
}

// Len counts the live entries.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	n := 0
	err := l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = l.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
